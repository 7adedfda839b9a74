package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/model"
)

// ReadRecords runs a read query and collects all records. Callers own the
// cypher text; anything dynamic in it must pass the validation gates first.
func (l *Loader) ReadRecords(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := l.session(ctx)
	defer session.Close(ctx) //nolint:errcheck
	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, eris.Wrap(err, "graph: read")
	}
	return out.([]*neo4j.Record), nil
}

func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Companies returns the company universe already present in the graph.
// limit <= 0 returns everything.
func (l *Loader) Companies(ctx context.Context, limit int) ([]model.Company, error) {
	cypher := "MATCH (c:Company) RETURN c.cik AS cik, c.ticker AS ticker, c.name AS name ORDER BY c.cik"
	params := map[string]any{}
	if limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = limit
	}
	records, err := l.ReadRecords(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	companies := make([]model.Company, 0, len(records))
	for _, rec := range records {
		companies = append(companies, model.Company{
			CIK:    recordString(rec, "cik"),
			Ticker: recordString(rec, "ticker"),
			Name:   recordString(rec, "name"),
		})
	}
	return companies, nil
}

// CompanyAttributes is one company's non-vector facts used by the
// categorical similarity metrics.
type CompanyAttributes struct {
	CIK          string
	SICCode      string
	Industry     string
	MarketCap    float64
	Revenue      float64
	Employees    float64
	Technologies []string
	Keywords     []string
}

// CompanyProfiles pulls industry classifiers, size figures, and the
// technology and keyword sets reachable through each company's domain.
// limit <= 0 returns everything.
func (l *Loader) CompanyProfiles(ctx context.Context, limit int) ([]CompanyAttributes, error) {
	cypher := `
MATCH (c:Company)
OPTIONAL MATCH (c)-[:HAS_DOMAIN]->(dom:Domain)
OPTIONAL MATCH (dom)-[:USES]->(t:Technology)
RETURN c.cik AS cik, c.sic_code AS sic_code, c.industry AS industry,
       c.market_cap AS market_cap, c.revenue AS revenue, c.employees AS employees,
       collect(DISTINCT t.name) AS technologies, collect(DISTINCT dom.keywords) AS keywords
ORDER BY cik`
	params := map[string]any{}
	if limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = limit
	}
	records, err := l.ReadRecords(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	rows := make([]CompanyAttributes, 0, len(records))
	for _, rec := range records {
		cik := recordString(rec, "cik")
		if cik == "" {
			continue
		}
		rows = append(rows, CompanyAttributes{
			CIK:          cik,
			SICCode:      recordString(rec, "sic_code"),
			Industry:     recordString(rec, "industry"),
			MarketCap:    recordFloat(rec, "market_cap"),
			Revenue:      recordFloat(rec, "revenue"),
			Employees:    recordFloat(rec, "employees"),
			Technologies: recordStrings(rec, "technologies"),
			Keywords:     recordStrings(rec, "keywords"),
		})
	}
	return rows, nil
}

func recordFloat(rec *neo4j.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch f := v.(type) {
	case float64:
		return f
	case int64:
		return float64(f)
	}
	return 0
}

func recordStrings(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// VectorRow is one node key and its stored embedding.
type VectorRow struct {
	Key    string
	Vector []float32
}

// NodeVectors pulls (key, vector) pairs for one label. Label, key property,
// and vector property all pass the validation gates before interpolation.
func (l *Loader) NodeVectors(ctx context.Context, label, keyProp, vecProp string, limit int) ([]VectorRow, error) {
	if !ValidLabel(label) {
		return nil, eris.Errorf("graph: label %q not allowed", label)
	}
	if !ValidPropName(keyProp) || !ValidPropName(vecProp) {
		return nil, eris.Errorf("graph: property pair (%q, %q) not allowed", keyProp, vecProp)
	}

	cypher := fmt.Sprintf(
		"MATCH (n:%s) WHERE n.%s IS NOT NULL RETURN n.%s AS key, n.%s AS vector ORDER BY key",
		label, vecProp, keyProp, vecProp,
	)
	params := map[string]any{}
	if limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = limit
	}
	records, err := l.ReadRecords(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	rows := make([]VectorRow, 0, len(records))
	for _, rec := range records {
		key := recordString(rec, "key")
		raw, ok := rec.Get("vector")
		if !ok || key == "" {
			continue
		}
		vec := toFloat32Slice(raw)
		if vec == nil {
			continue
		}
		rows = append(rows, VectorRow{Key: key, Vector: vec})
	}
	return rows, nil
}

// toFloat32Slice converts the driver's []any of float64 into []float32.
func toFloat32Slice(raw any) []float32 {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(items))
	for _, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil
		}
		out = append(out, float32(f))
	}
	return out
}
