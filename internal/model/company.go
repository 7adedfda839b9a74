// Package model defines the core entities shared across pipeline stages.
package model

import "time"

// Company is a U.S. public filer keyed by its zero-padded 10-digit CIK.
// Fields are populated incrementally: bootstrap sets CIK/ticker/name,
// enrichment and extraction stages fill the rest as they discover values.
type Company struct {
	CIK    string `json:"cik"`
	Ticker string `json:"ticker"`
	Name   string `json:"name"`

	LegalName string `json:"legal_name,omitempty"`
	SICCode   string `json:"sic_code,omitempty"`
	NAICSCode string `json:"naics_code,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Industry  string `json:"industry,omitempty"`

	MarketCap float64 `json:"market_cap,omitempty"`
	Revenue   float64 `json:"revenue,omitempty"`
	Employees int     `json:"employees,omitempty"`

	HQCity    string `json:"hq_city,omitempty"`
	HQState   string `json:"hq_state,omitempty"`
	HQCountry string `json:"hq_country,omitempty"`

	AccessionNumber string `json:"accession_number,omitempty"`
	FilingDate      string `json:"filing_date,omitempty"`
	FiscalYearEnd   string `json:"fiscal_year_end,omitempty"`

	BusinessDescription string `json:"business_description,omitempty"`
	RiskFactors         string `json:"risk_factors,omitempty"`

	Website string `json:"website,omitempty"`
	Domain  string `json:"domain,omitempty"`
}

// Domain is a canonical root domain (PSL-normalized) associated with companies.
type Domain struct {
	FinalDomain string `json:"final_domain"`
	Title       string `json:"title,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Description string `json:"description,omitempty"`
}

// Technology is a named technology optionally grouped into a category.
type Technology struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Document is one logical filing section, keyed {cik}_{section}_{year}.
type Document struct {
	DocID       string `json:"doc_id"`
	CIK         string `json:"cik"`
	SectionType string `json:"section_type"`
	Year        int    `json:"year"`
	ChunkCount  int    `json:"chunk_count"`
	Source      string `json:"source,omitempty"`
}

// Chunk is a bounded-token slice of a document, keyed {doc_id}_chunk_{index}.
type Chunk struct {
	ChunkID    string    `json:"chunk_id"`
	DocID      string    `json:"doc_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Metadata   string    `json:"metadata,omitempty"` // JSON blob
	Embedding  []float32 `json:"embedding,omitempty"`
}

// Relationship is a directed, typed company-to-company edge extracted from
// filing text.
type Relationship struct {
	FromCIK    string  `json:"from_cik"`
	ToCIK      string  `json:"to_cik"`
	Type       string  `json:"type"` // HAS_COMPETITOR, HAS_SUPPLIER, HAS_CUSTOMER, HAS_PARTNER
	Confidence float64 `json:"confidence"`
	RawMention string  `json:"raw_mention"`
	Context    string  `json:"context"`
}

// DomainResult is a single source's verdict on a company's domain.
type DomainResult struct {
	Domain      string            `json:"domain,omitempty"`
	Source      string            `json:"source"`
	Confidence  float64           `json:"confidence"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CompanyResult is the consensus outcome over all domain sources.
type CompanyResult struct {
	CIK         string             `json:"cik"`
	Ticker      string             `json:"ticker"`
	Domain      string             `json:"domain,omitempty"`
	Sources     []string           `json:"sources,omitempty"`
	Confidence  float64            `json:"confidence"`
	Candidates  map[string]float64 `json:"candidates,omitempty"`
	Description string             `json:"description,omitempty"`
	NoDomain    bool               `json:"no_domain,omitempty"`
	CollectedAt time.Time          `json:"collected_at"`
}
