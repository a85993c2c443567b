package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvloznov/statement-analyst/internal/config"
	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/dvloznov/statement-analyst/internal/gcsuploader"
	"github.com/dvloznov/statement-analyst/internal/llm"
	"github.com/dvloznov/statement-analyst/internal/logger"
	"github.com/dvloznov/statement-analyst/internal/pipeline"
	"github.com/dvloznov/statement-analyst/internal/session"
	"github.com/dvloznov/statement-analyst/internal/tabular"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	// Logs go to stderr so command output can be piped.
	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: os.Stderr})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "table":
		runTable(cfg, log)
	case "classify":
		runClassify(cfg, log)
	case "extract":
		runExtract(cfg, log)
	case "ask":
		runAsk(cfg, log)
	case "chat":
		runChat(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Analyst CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  table     Print a spreadsheet as CSV")
	fmt.Println("  classify  Identify the statement type of a spreadsheet")
	fmt.Println("  extract   Classify and extract a statement as JSON")
	fmt.Println("  ask       Answer one question over uploaded statements")
	fmt.Println("  chat      Ask questions interactively")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nFiles may be local paths or gs://bucket/object URIs.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

func runTable(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("table", flag.ExitOnError)
	file := fs.String("file", "", "Spreadsheet path or gs:// URI")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Usage: cli table -file PATH")
	}

	ctx := logger.WithContext(context.Background(), log)
	fmt.Print(readTable(ctx, cfg, log, *file))
}

func runClassify(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	file := fs.String("file", "", "Spreadsheet path or gs:// URI")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Usage: cli classify -file PATH")
	}

	ctx := logger.WithContext(context.Background(), log)
	analyst := newAnalyst(ctx, cfg, log)
	table := readTable(ctx, cfg, log, *file)

	id, err := analyst.Classify(ctx, table)
	if err != nil {
		log.Fatal().Err(err).Msg("Classification failed")
	}
	printJSON(id)
}

func runExtract(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	file := fs.String("file", "", "Spreadsheet path or gs:// URI")
	kind := fs.String("type", "", "Skip classification: profit_and_loss or balance_sheet")
	raw := fs.Bool("raw", false, "Print the Balance Sheet as returned, before keying by account")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Usage: cli extract -file PATH [-type KIND] [-raw]")
	}

	ctx := logger.WithContext(context.Background(), log)
	analyst := newAnalyst(ctx, cfg, log)
	table := readTable(ctx, cfg, log, *file)

	statementKind := domain.StatementKind(*kind)
	if statementKind == "" {
		id, err := analyst.Classify(ctx, table)
		if err != nil {
			log.Fatal().Err(err).Msg("Classification failed")
		}
		log.Info().Str("type", string(id.StatementType)).Float64("confidence", id.Confidence).Msg("Statement identified")
		statementKind = id.StatementType
	}

	var (
		result interface{}
		err    error
	)
	switch {
	case statementKind == domain.KindProfitAndLoss:
		result, err = analyst.ExtractProfitAndLoss(ctx, table)
	case statementKind == domain.KindBalanceSheet && *raw:
		result, err = analyst.ExtractBalanceSheetRaw(ctx, table)
	case statementKind == domain.KindBalanceSheet:
		result, err = analyst.ExtractBalanceSheet(ctx, table)
	default:
		log.Fatal().Str("type", string(statementKind)).Msg(pipeline.UnknownStatementMessage)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}
	printJSON(result)
}

func runAsk(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	pl := fs.String("pl", "", "Profit and Loss spreadsheet path or gs:// URI")
	bs := fs.String("bs", "", "Balance Sheet spreadsheet path or gs:// URI")
	asJSON := fs.Bool("json", false, "Print the full answer as JSON")
	fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		log.Fatal().Msg("Usage: cli ask [-pl PATH] [-bs PATH] QUESTION")
	}

	ctx := logger.WithContext(context.Background(), log)
	s := newSession(ctx, cfg, log)
	uploadAll(ctx, cfg, log, s, *pl, *bs)

	result, err := s.Ask(ctx, question)
	if err != nil {
		if pipeline.CodeOf(err) == pipeline.CodeEmptyStore {
			fmt.Println(pipeline.EmptyStoreMessage)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Question failed")
	}

	if *asJSON {
		printJSON(result)
		return
	}
	fmt.Print(result.Response)
}

func runChat(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	pl := fs.String("pl", "", "Profit and Loss spreadsheet path or gs:// URI")
	bs := fs.String("bs", "", "Balance Sheet spreadsheet path or gs:// URI")
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	s := newSession(ctx, cfg, log)
	uploadAll(ctx, cfg, log, s, *pl, *bs)

	fmt.Println("Ask about your statements. Commands: :pl PATH, :bs PATH, :status, :reset, :quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			return
		case line == ":reset":
			if err := s.Reset(); err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Println("Cleared.")
		case line == ":status":
			printStatus(s.Status())
		case strings.HasPrefix(line, ":pl "), strings.HasPrefix(line, ":bs "):
			slot := domain.KindProfitAndLoss
			if strings.HasPrefix(line, ":bs ") {
				slot = domain.KindBalanceSheet
			}
			msg, err := upload(ctx, cfg, log, s, slot, strings.TrimSpace(line[4:]))
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Println(msg)
		default:
			result, err := s.Ask(ctx, line)
			if err != nil {
				if pipeline.CodeOf(err) == pipeline.CodeEmptyStore {
					fmt.Println(pipeline.EmptyStoreMessage)
					continue
				}
				fmt.Println("Error:", err)
				continue
			}
			fmt.Println(result.Response)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Reading input failed")
	}
}

func printStatus(st session.Status) {
	if st.ProfitAndLoss == nil && st.BalanceSheet == nil {
		fmt.Println("No statements loaded.")
		return
	}
	if st.ProfitAndLoss != nil {
		fmt.Println(st.ProfitAndLoss.Summary)
	}
	if st.BalanceSheet != nil {
		fmt.Println(st.BalanceSheet.Summary)
	}
	fmt.Printf("Questions asked: %d\n", st.Turns)
}

// newAnalyst wires the Gemini service and, when needed, GCS into an analyst.
func newAnalyst(ctx context.Context, cfg *config.Config, log zerolog.Logger) *pipeline.Analyst {
	if err := cfg.RequireService(); err != nil {
		log.Fatal().Err(err).Msg("Extraction service is not configured")
	}

	service, err := llm.NewGeminiService(ctx, llm.Options{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.Model,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extraction service")
	}
	return pipeline.NewAnalyst(service, pipeline.WithJSONRepair(cfg.RepairModelJSON))
}

func newSession(ctx context.Context, cfg *config.Config, log zerolog.Logger) *session.Session {
	return session.NewRegistry(newAnalyst(ctx, cfg, log)).Create(ctx)
}

func uploadAll(ctx context.Context, cfg *config.Config, log zerolog.Logger, s *session.Session, pl, bs string) {
	for _, u := range []struct {
		slot   domain.StatementKind
		source string
	}{{domain.KindProfitAndLoss, pl}, {domain.KindBalanceSheet, bs}} {
		if u.source == "" {
			continue
		}
		msg, err := upload(ctx, cfg, log, s, u.slot, u.source)
		if err != nil {
			log.Fatal().Err(err).Str("file", u.source).Msg("Upload failed")
		}
		fmt.Println(msg)
	}
}

// upload reads source and loads it into s, returning the upload summary.
func upload(ctx context.Context, cfg *config.Config, log zerolog.Logger, s *session.Session, slot domain.StatementKind, source string) (string, error) {
	data, name, err := readSource(ctx, cfg, log, source)
	if err != nil {
		return "", err
	}

	result, err := s.Upload(ctx, pipeline.UploadInput{Slot: slot, Filename: name, Data: data})
	if err != nil {
		return "", err
	}
	return result.Message, nil
}

// readSource returns the bytes and file name of a local path or gs:// URI.
func readSource(ctx context.Context, cfg *config.Config, log zerolog.Logger, source string) ([]byte, string, error) {
	if !gcsuploader.IsGCSURI(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", source, err)
		}
		return data, filepath.Base(source), nil
	}

	downloader, err := gcsuploader.NewDownloader(ctx, gcsuploader.Options{
		CredentialsFile: cfg.GCSCredentialsFile,
		MaxBytes:        cfg.MaxUploadBytes,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create GCS client: %w", err)
	}
	defer downloader.Close()

	log.Info().Str("gcs_uri", source).Msg("Fetching spreadsheet from GCS")
	data, err := downloader.FetchFromGCS(ctx, source)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", source, err)
	}
	return data, downloader.ExtractFilenameFromGCSURI(source), nil
}

func readTable(ctx context.Context, cfg *config.Config, log zerolog.Logger, source string) string {
	data, name, err := readSource(ctx, cfg, log, source)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}
	table, err := tabular.Normalize(data, name)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read spreadsheet")
	}
	return table
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
