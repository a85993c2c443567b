package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/dvloznov/statement-analyst/internal/domain"
)

// Decoder turns raw service text into validated statement records.
//
// With Repair set, text that fails to parse is passed through json-repair
// once before giving up. Repaired output is still validated field by field.
type Decoder struct {
	Repair bool
}

// DecodeIdentification parses a classifier response.
func (d Decoder) DecodeIdentification(raw string) (*domain.StatementIdentification, error) {
	obj, err := d.decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("DecodeIdentification: %w", err)
	}
	id, err := transformIdentification(obj)
	if err != nil {
		return nil, fmt.Errorf("DecodeIdentification: %w", err)
	}
	return id, nil
}

// DecodeProfitAndLoss parses a P&L extraction response.
func (d Decoder) DecodeProfitAndLoss(raw string) (*domain.ProfitAndLoss, error) {
	obj, err := d.decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("DecodeProfitAndLoss: %w", err)
	}
	pl, err := transformProfitAndLoss(obj)
	if err != nil {
		return nil, fmt.Errorf("DecodeProfitAndLoss: %w", err)
	}
	return pl, nil
}

// DecodeBalanceSheetRaw parses a Balance Sheet extraction response.
func (d Decoder) DecodeBalanceSheetRaw(raw string) (*domain.BalanceSheetRaw, error) {
	obj, err := d.decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("DecodeBalanceSheetRaw: %w", err)
	}
	bs, err := transformBalanceSheetRaw(obj)
	if err != nil {
		return nil, fmt.Errorf("DecodeBalanceSheetRaw: %w", err)
	}
	return bs, nil
}

func (d Decoder) decodeObject(raw string) (map[string]interface{}, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("empty response")
	}

	var parsed interface{}
	err := json.Unmarshal([]byte(clean), &parsed)
	if err != nil && d.Repair {
		repaired, rerr := jsonrepair.RepairJSON(clean)
		if rerr == nil {
			err = json.Unmarshal([]byte(repaired), &parsed)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}

	obj, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("top-level value is %T, want object", parsed)
	}
	return obj, nil
}

// cleanModelJSON strips Markdown fences and any prose around a JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// ```json ... ``` or ``` ... ```
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
		if end := strings.LastIndex(s, "```"); end != -1 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	// A top-level array is left intact so it fails the object check.
	if strings.HasPrefix(s, "[") {
		return s
	}

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
