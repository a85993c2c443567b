package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/dvloznov/statement-analyst/internal/llm"
	"github.com/dvloznov/statement-analyst/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/genai"
)

const (
	plCSV = "Acme Ltd,\nProfit and Loss,\nJanuary - March 2025,\nIncome,\nSales,12000\nExpenses,\nRent,3000\nNet Income,12345.5\n"
	bsCSV = "Acme Ltd,,\nBalance Sheet,,\nAs of March 31 2025,,\n,Jan 2025,Feb 2025\nChecking,4875,4570.45\nTotal Assets,4875,4570.45\n"

	plIdentification = `{"statement_type":"profit_and_loss","confidence":0.95,"reasoning":"Income and Net Income rows"}`
	bsIdentification = `{"statement_type":"balance_sheet","confidence":0.9,"reasoning":"Assets by month"}`

	plExtraction = `{"statement_type":"profit_and_loss","company_name":"Acme Ltd","period_start":"2025-01-01","period_end":"2025-03-31",
		"income_items":[{"display_name":"Sales","value":12000,"period":null,"parent_category":"Income"}],
		"expense_items":[{"display_name":"Rent","value":3000,"period":null,"parent_category":"Expenses"}],
		"cogs_items":[],"gross_profit":null,"net_income":12345.5,"total_income":12000,"total_expenses":3000}`

	bsExtraction = `{"statement_type":"balance_sheet","company_name":"Acme Ltd","as_of_date":"March 31 2025",
		"time_periods":["Jan 2025","Feb 2025"],
		"asset_items":[
			{"display_name":"Checking","value":4875,"period":"Jan 2025","parent_category":"Bank Accounts"},
			{"display_name":"Checking","value":4570.45,"period":"Feb 2025","parent_category":"Bank Accounts"}],
		"liability_items":[],"equity_items":[],
		"total_assets":[4875,4570.45],"total_liabilities":null,"total_equity":null}`
)

// expectStructured registers one structured call and checks its schema.
func expectStructured(svc *llm.MockService, wantSchema func(*genai.Schema) bool, resp string, err error) *gomock.Call {
	return svc.EXPECT().
		GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, schema *genai.Schema) (string, error) {
			if !wantSchema(schema) {
				return "", errors.New("unexpected schema")
			}
			return resp, err
		})
}

func hasProperty(name string) func(*genai.Schema) bool {
	return func(s *genai.Schema) bool {
		_, ok := s.Properties[name]
		return ok
	}
}

func TestAnalyst_Classify_ReturnsDecodedIdentification(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl)

	svc.EXPECT().
		GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt string, schema *genai.Schema) (string, error) {
			assert.Contains(t, prompt, bsCSV)
			assert.Equal(t, []string{"profit_and_loss", "balance_sheet", "unknown"}, schema.Properties["statement_type"].Enum)
			return bsIdentification, nil
		})

	got, err := pipeline.NewAnalyst(svc).Classify(context.Background(), bsCSV)
	require.NoError(t, err)
	assert.Equal(t, &domain.StatementIdentification{
		StatementType: domain.KindBalanceSheet,
		Confidence:    0.9,
		Reasoning:     "Assets by month",
	}, got)
}

func TestAnalyst_Upload_ProfitAndLoss(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl)
	gomock.InOrder(
		expectStructured(svc, hasProperty("confidence"), plIdentification, nil),
		expectStructured(svc, hasProperty("income_items"), plExtraction, nil),
	)

	store := domain.NewStatementStore()
	got, err := pipeline.NewAnalyst(svc).Upload(context.Background(), store, pipeline.UploadInput{
		Slot:     domain.KindProfitAndLoss,
		Filename: "pl.csv",
		Data:     []byte(plCSV),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.KindProfitAndLoss, got.Type)
	assert.True(t, got.Success)
	assert.Equal(t, "✅ P&L uploaded successfully\n- Period: 2025-01-01 to 2025-03-31\n- Net Income: $12,345.50", got.Message)
	require.NotNil(t, got.Identification)
	assert.Equal(t, 0.95, got.Identification.Confidence)

	require.NotNil(t, store.ProfitAndLoss())
	assert.Equal(t, "Acme Ltd", *store.ProfitAndLoss().CompanyName)
	assert.Nil(t, store.BalanceSheet())
}

func TestAnalyst_Upload_BalanceSheet(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl)
	gomock.InOrder(
		expectStructured(svc, hasProperty("confidence"), bsIdentification, nil),
		expectStructured(svc, hasProperty("asset_items"), bsExtraction, nil),
	)

	store := domain.NewStatementStore()
	got, err := pipeline.NewAnalyst(svc).Upload(context.Background(), store, pipeline.UploadInput{
		Slot:     domain.KindBalanceSheet,
		Filename: "bs.csv",
		Data:     []byte(bsCSV),
	})
	require.NoError(t, err)

	assert.True(t, got.Success)
	assert.Equal(t, "✅ Balance Sheet uploaded successfully\n- Time Periods: Jan 2025, Feb 2025\n- Asset Accounts: 1", got.Message)

	bs := store.BalanceSheet()
	require.NotNil(t, bs)
	assert.Equal(t, 4570.45, *bs.Assets["Checking"]["Feb 2025"])
	assert.Equal(t, 4875.0, *bs.TotalAssets["Jan 2025"])
	assert.Nil(t, bs.TotalLiabilities)
}

func TestAnalyst_Upload_Unknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl)
	expectStructured(svc, hasProperty("confidence"),
		`{"statement_type":"unknown","confidence":0.3,"reasoning":"a shopping list"}`, nil)

	store := domain.NewStatementStore()
	got, err := pipeline.NewAnalyst(svc).Upload(context.Background(), store, pipeline.UploadInput{
		Filename: "list.csv",
		Data:     []byte("eggs,milk\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.KindUnknown, got.Type)
	assert.False(t, got.Success)
	assert.Equal(t, pipeline.UnknownStatementMessage, got.Message)
	assert.True(t, store.Empty())
}

func TestAnalyst_Upload_SlotMismatchIsNoted(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl)
	gomock.InOrder(
		expectStructured(svc, hasProperty("confidence"), bsIdentification, nil),
		expectStructured(svc, hasProperty("asset_items"), bsExtraction, nil),
	)

	store := domain.NewStatementStore()
	got, err := pipeline.NewAnalyst(svc).Upload(context.Background(), store, pipeline.UploadInput{
		Slot:     domain.KindProfitAndLoss,
		Filename: "bs.csv",
		Data:     []byte(bsCSV),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.KindBalanceSheet, got.Type)
	assert.True(t, strings.HasSuffix(got.Message, "- Note: uploaded as P&L but identified as Balance Sheet"))
	assert.NotNil(t, store.BalanceSheet())
	assert.Nil(t, store.ProfitAndLoss())
}

func TestAnalyst_Upload_FailuresLeaveStoreUntouched(t *testing.T) {
	previous := &domain.ProfitAndLoss{StatementType: "profit_and_loss"}

	tests := []struct {
		name     string
		input    pipeline.UploadInput
		setup    func(svc *llm.MockService)
		wantCode pipeline.ErrorCode
	}{
		{
			name:     "unreadable spreadsheet",
			input:    pipeline.UploadInput{Filename: "statement.pdf", Data: []byte("%PDF-1.7")},
			setup:    func(svc *llm.MockService) {},
			wantCode: pipeline.CodeReadFailure,
		},
		{
			name:     "no data",
			input:    pipeline.UploadInput{Filename: "pl.csv"},
			setup:    func(svc *llm.MockService) {},
			wantCode: pipeline.CodeReadFailure,
		},
		{
			name:     "gcs without storage",
			input:    pipeline.UploadInput{GCSURI: "gs://bucket/pl.xlsx"},
			setup:    func(svc *llm.MockService) {},
			wantCode: pipeline.CodeReadFailure,
		},
		{
			name:  "classifier unavailable",
			input: pipeline.UploadInput{Filename: "pl.csv", Data: []byte(plCSV)},
			setup: func(svc *llm.MockService) {
				expectStructured(svc, hasProperty("confidence"), "", errors.New("503 unavailable"))
			},
			wantCode: pipeline.CodeServiceFailure,
		},
		{
			name:  "classifier returns prose",
			input: pipeline.UploadInput{Filename: "pl.csv", Data: []byte(plCSV)},
			setup: func(svc *llm.MockService) {
				expectStructured(svc, hasProperty("confidence"), "It is a P&L.", nil)
			},
			wantCode: pipeline.CodeSchemaViolation,
		},
		{
			name:  "extraction violates schema",
			input: pipeline.UploadInput{Filename: "pl.csv", Data: []byte(plCSV)},
			setup: func(svc *llm.MockService) {
				gomock.InOrder(
					expectStructured(svc, hasProperty("confidence"), plIdentification, nil),
					expectStructured(svc, hasProperty("income_items"), `{"statement_type":"profit_and_loss","income_items":"lots"}`, nil),
				)
			},
			wantCode: pipeline.CodeSchemaViolation,
		},
		{
			name:  "extraction unavailable",
			input: pipeline.UploadInput{Filename: "bs.csv", Data: []byte(bsCSV)},
			setup: func(svc *llm.MockService) {
				gomock.InOrder(
					expectStructured(svc, hasProperty("confidence"), bsIdentification, nil),
					expectStructured(svc, hasProperty("asset_items"), "", context.DeadlineExceeded),
				)
			},
			wantCode: pipeline.CodeServiceFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := llm.NewMockService(ctrl)
			tt.setup(svc)

			store := domain.NewStatementStore()
			store.SetProfitAndLoss(previous)

			got, err := pipeline.NewAnalyst(svc).Upload(context.Background(), store, tt.input)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, tt.wantCode, pipeline.CodeOf(err))

			assert.Same(t, previous, store.ProfitAndLoss())
			assert.Nil(t, store.BalanceSheet())
		})
	}
}

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) FetchFromGCS(_ context.Context, uri string) ([]byte, error) {
	data, ok := f.objects[uri]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeStorage) ExtractFilenameFromGCSURI(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

func TestAnalyst_Upload_FromGCS(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl)
	gomock.InOrder(
		expectStructured(svc, hasProperty("confidence"), plIdentification, nil),
		expectStructured(svc, hasProperty("income_items"), plExtraction, nil),
	)

	storage := &fakeStorage{objects: map[string][]byte{"gs://statements/2025/pl.csv": []byte(plCSV)}}
	analyst := pipeline.NewAnalyst(svc, pipeline.WithStorage(storage))

	store := domain.NewStatementStore()
	got, err := analyst.Upload(context.Background(), store, pipeline.UploadInput{GCSURI: "gs://statements/2025/pl.csv"})
	require.NoError(t, err)
	assert.True(t, got.Success)

	_, err = analyst.Upload(context.Background(), store, pipeline.UploadInput{GCSURI: "gs://statements/missing.csv"})
	assert.Equal(t, pipeline.CodeReadFailure, pipeline.CodeOf(err))
}

func TestAnalyst_Answer_EmptyStoreNeverCallsService(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl) // no expectations: any call fails the test

	got, err := pipeline.NewAnalyst(svc).Answer(context.Background(), domain.NewStatementStore(), "What is my net income?")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, pipeline.CodeEmptyStore, pipeline.CodeOf(err))

	var pe *pipeline.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Please upload a financial statement first.", pe.Message)
}

func TestAnalyst_Answer_KeepsEmissionOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl)

	store := domain.NewStatementStore()
	f := 1201.0
	store.SetBalanceSheet(&domain.BalanceSheet{
		StatementType: "balance_sheet",
		TimePeriods:   []string{"Apr 2025"},
		Assets:        domain.KeyedAccounts{"Checking": {"Apr 2025": &f}},
	})

	svc.EXPECT().
		GenerateWithCodeExecution(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt string) ([]domain.Segment, error) {
			assert.Contains(t, prompt, "USER QUESTION: Checking balance in April?")
			assert.Contains(t, prompt, `"has_bs": true`)
			assert.Contains(t, prompt, `"has_pl": false`)
			assert.Contains(t, prompt, `"Checking":{"Apr 2025":1201}`)
			assert.NotContains(t, prompt, "pl_data")
			return []domain.Segment{
				{Kind: domain.SegmentText, Content: "A"},
				{Kind: domain.SegmentCode, Content: "B", Language: "PYTHON"},
				{Kind: domain.SegmentOutput, Content: "C"},
				{Kind: domain.SegmentText, Content: "D"},
			}, nil
		})

	got, err := pipeline.NewAnalyst(svc).Answer(context.Background(), store, "Checking balance in April?")
	require.NoError(t, err)

	assert.Equal(t, "A\n\n```python\nB\n```\n\nC\nD\n", got.Response)
	assert.Equal(t, []string{"B"}, got.Code)
	assert.Equal(t, []string{"C"}, got.Execution)
	assert.Len(t, got.Transcript.Segments, 4)

	a := strings.Index(got.Response, "A")
	b := strings.Index(got.Response, "B")
	c := strings.Index(got.Response, "C")
	d := strings.Index(got.Response, "D")
	assert.True(t, a < b && b < c && c < d)
}

func TestAnalyst_Answer_ServiceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl)
	svc.EXPECT().GenerateWithCodeExecution(gomock.Any(), gomock.Any()).Return(nil, errors.New("quota exceeded"))

	store := domain.NewStatementStore()
	store.SetProfitAndLoss(&domain.ProfitAndLoss{StatementType: "profit_and_loss"})

	_, err := pipeline.NewAnalyst(svc).Answer(context.Background(), store, "q")
	assert.Equal(t, pipeline.CodeServiceFailure, pipeline.CodeOf(err))
}

func TestAnalyst_Answer_ProfitAndLossSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := llm.NewMockService(ctrl)

	ni := 250.0
	store := domain.NewStatementStore()
	store.SetProfitAndLoss(&domain.ProfitAndLoss{
		StatementType: "profit_and_loss",
		NetIncome:     &ni,
		IncomeItems:   []domain.LineItem{{DisplayName: "Sales"}},
	})

	svc.EXPECT().
		GenerateWithCodeExecution(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt string) ([]domain.Segment, error) {
			assert.Contains(t, prompt, `"has_pl": true`)
			assert.Contains(t, prompt, `"net_income": 250`)
			assert.Contains(t, prompt, `"expense_items": []`)
			assert.Contains(t, prompt, `"display_name": "Sales"`)
			assert.Contains(t, prompt, `"has_bs": false`)
			assert.NotContains(t, prompt, `"bs_data": {`)
			return nil, nil
		})

	got, err := pipeline.NewAnalyst(svc).Answer(context.Background(), store, "Net income?")
	require.NoError(t, err)
	assert.Empty(t, got.Response)
	assert.NotNil(t, got.Code)
	assert.NotNil(t, got.Execution)
}
