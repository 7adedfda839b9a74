package extract

import "github.com/sells-group/edgar-graph/internal/model"

// FilingExtraction is the consolidated output of one orchestrator run,
// persisted in the artifact cache between the extract and load stages.
type FilingExtraction struct {
	CIK  string `json:"cik"`
	Year int    `json:"year"`

	Website             string               `json:"website,omitempty"`
	BusinessDescription string               `json:"business_description,omitempty"`
	RiskFactors         string               `json:"risk_factors,omitempty"`
	Metadata            *Metadata            `json:"metadata,omitempty"`
	Relationships       []model.Relationship `json:"relationships,omitempty"`
}

// Collect shapes the orchestrator's field map into a FilingExtraction.
func Collect(cik string, year int, fields map[string]any) *FilingExtraction {
	fe := &FilingExtraction{CIK: cik, Year: year}
	if v, ok := fields["website"].(string); ok {
		fe.Website = v
	}
	if v, ok := fields["business_description"].(string); ok {
		fe.BusinessDescription = v
	}
	if v, ok := fields["risk_factors"].(string); ok {
		fe.RiskFactors = v
	}
	if v, ok := fields["filing_metadata"].(*Metadata); ok {
		fe.Metadata = v
	}
	if v, ok := fields["relationships"].([]model.Relationship); ok {
		fe.Relationships = v
	}
	return fe
}
