// Package graph loads nodes and relationships into the labeled property
// graph. All label and relationship-type strings are gated before they are
// interpolated; values always travel as parameters.
package graph

import (
	"context"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/config"
	"github.com/sells-group/edgar-graph/internal/resilience"
)

// Node labels the loader will touch. Anything else is refused.
var allowedLabels = map[string]struct{}{
	"Domain":     {},
	"Company":    {},
	"Chunk":      {},
	"Document":   {},
	"Technology": {},
}

var (
	relTypeRe  = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	propNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// ValidLabel reports whether label is on the allow-list.
func ValidLabel(label string) bool {
	_, ok := allowedLabels[label]
	return ok
}

// ValidRelType reports whether relType is safe to interpolate.
func ValidRelType(relType string) bool {
	return relTypeRe.MatchString(relType)
}

// ValidPropName reports whether a property name is safe to interpolate.
func ValidPropName(name string) bool {
	return propNameRe.MatchString(name)
}

// Loader batches upserts against the graph database.
type Loader struct {
	driver      neo4j.DriverWithContext
	database    string
	nodeBatch   int
	edgeBatch   int
	deleteBatch int
	retry       resilience.RetryConfig
}

// NewLoader connects and verifies reachability. Connection failure at
// startup is fatal for every stage that writes to the graph.
func NewLoader(ctx context.Context, cfg config.GraphConfig) (*Loader, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, eris.Wrap(err, "graph: create driver")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, eris.Wrapf(err, "graph: unreachable at %s", cfg.URI)
	}
	retry := resilience.FreeConfig()
	retry.OnRetry = resilience.RetryLogger("neo4j", "write")
	return &Loader{
		driver:      driver,
		database:    cfg.Database,
		nodeBatch:   orDefault(cfg.NodeBatchSize, 1000),
		edgeBatch:   orDefault(cfg.EdgeBatchSize, 5000),
		deleteBatch: orDefault(cfg.DeleteBatchSize, 10000),
		retry:       retry,
	}, nil
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

// Close releases the driver's connection pool.
func (l *Loader) Close(ctx context.Context) error {
	return l.driver.Close(ctx)
}

func (l *Loader) session(ctx context.Context) neo4j.SessionWithContext {
	return l.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.database})
}

// write runs one batch statement. The driver retries leader switches inside
// ExecuteWrite; the outer retry covers dropped connections to the server.
func (l *Loader) write(ctx context.Context, cypher string, params map[string]any) error {
	err := resilience.Do(ctx, l.retry, func(ctx context.Context) error {
		session := l.session(ctx)
		defer session.Close(ctx) //nolint:errcheck
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			return nil, res.Err()
		})
		return err
	})
	return eris.Wrap(err, "graph: write")
}

var constraintStatements = []string{
	"CREATE CONSTRAINT domain_final_domain IF NOT EXISTS FOR (d:Domain) REQUIRE d.final_domain IS UNIQUE",
	"CREATE CONSTRAINT technology_name IF NOT EXISTS FOR (t:Technology) REQUIRE t.name IS UNIQUE",
	"CREATE CONSTRAINT company_cik IF NOT EXISTS FOR (c:Company) REQUIRE c.cik IS UNIQUE",
	"CREATE CONSTRAINT document_doc_id IF NOT EXISTS FOR (d:Document) REQUIRE d.doc_id IS UNIQUE",
	"CREATE CONSTRAINT chunk_chunk_id IF NOT EXISTS FOR (c:Chunk) REQUIRE c.chunk_id IS UNIQUE",
	"CREATE INDEX company_ticker IF NOT EXISTS FOR (c:Company) ON (c.ticker)",
	"CREATE INDEX company_sector IF NOT EXISTS FOR (c:Company) ON (c.sector)",
	"CREATE INDEX company_industry IF NOT EXISTS FOR (c:Company) ON (c.industry)",
	"CREATE INDEX company_sic_code IF NOT EXISTS FOR (c:Company) ON (c.sic_code)",
	"CREATE INDEX company_naics_code IF NOT EXISTS FOR (c:Company) ON (c.naics_code)",
	"CREATE INDEX company_filing_date IF NOT EXISTS FOR (c:Company) ON (c.filing_date)",
	"CREATE VECTOR INDEX chunk_embedding IF NOT EXISTS FOR (c:Chunk) ON (c.embedding) " +
		"OPTIONS {indexConfig: {`vector.dimensions`: 1536, `vector.similarity_function`: 'cosine'}}",
}

// EnsureConstraints provisions uniqueness constraints, secondary indexes,
// and the chunk vector index. Idempotent.
func (l *Loader) EnsureConstraints(ctx context.Context) error {
	for _, stmt := range constraintStatements {
		if err := l.write(ctx, stmt, nil); err != nil {
			return eris.Wrapf(err, "graph: constraint %q", stmt)
		}
	}
	zap.L().Info("graph: constraints and indexes ensured", zap.Int("statements", len(constraintStatements)))
	return nil
}

// cleanProps strips empty strings and nils so a merge never overwrites a
// populated attribute with an empty one.
func cleanProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// UpsertNodes merges a batch of nodes keyed by keyedBy. Rows missing the key
// property are skipped with a warning.
func (l *Loader) UpsertNodes(ctx context.Context, label, keyedBy string, rows []map[string]any) (int, error) {
	if !ValidLabel(label) {
		zap.L().Warn("graph: refusing disallowed label", zap.String("label", label))
		return 0, eris.Errorf("graph: label %q not allowed", label)
	}
	if !ValidPropName(keyedBy) {
		zap.L().Warn("graph: refusing disallowed key property", zap.String("property", keyedBy))
		return 0, eris.Errorf("graph: key property %q not allowed", keyedBy)
	}

	cypher := fmt.Sprintf(
		"UNWIND $rows AS row MERGE (n:%s {%s: row.key}) SET n += row.props, n.loaded_at = datetime()",
		label, keyedBy,
	)

	total := 0
	for start := 0; start < len(rows); start += l.nodeBatch {
		end := start + l.nodeBatch
		if end > len(rows) {
			end = len(rows)
		}
		batch := make([]map[string]any, 0, end-start)
		for _, row := range rows[start:end] {
			key, ok := row[keyedBy]
			if !ok || key == nil || key == "" {
				zap.L().Warn("graph: node row missing key", zap.String("label", label), zap.String("key", keyedBy))
				continue
			}
			batch = append(batch, map[string]any{"key": key, "props": cleanProps(row)})
		}
		if len(batch) == 0 {
			continue
		}
		if err := l.write(ctx, cypher, map[string]any{"rows": batch}); err != nil {
			return total, eris.Wrapf(err, "graph: upsert %s nodes", label)
		}
		total += len(batch)
	}
	return total, nil
}

// Edge is one relationship row: endpoint keys plus edge properties.
type Edge struct {
	FromKey any
	ToKey   any
	Props   map[string]any
}

// UpsertRelationships merges a batch of typed edges between two labeled
// node sets. Both endpoints must already exist.
func (l *Loader) UpsertRelationships(ctx context.Context, relType, fromLabel, fromKey, toLabel, toKey string, edges []Edge) (int, error) {
	if !ValidRelType(relType) {
		zap.L().Warn("graph: refusing disallowed relationship type", zap.String("type", relType))
		return 0, eris.Errorf("graph: relationship type %q not allowed", relType)
	}
	if !ValidLabel(fromLabel) || !ValidLabel(toLabel) {
		return 0, eris.Errorf("graph: label pair (%q, %q) not allowed", fromLabel, toLabel)
	}
	if !ValidPropName(fromKey) || !ValidPropName(toKey) {
		return 0, eris.Errorf("graph: key pair (%q, %q) not allowed", fromKey, toKey)
	}

	cypher := fmt.Sprintf(
		"UNWIND $rows AS row MATCH (a:%s {%s: row.from}) MATCH (b:%s {%s: row.to}) "+
			"MERGE (a)-[r:%s]->(b) SET r += row.props, r.loaded_at = datetime()",
		fromLabel, fromKey, toLabel, toKey, relType,
	)

	total := 0
	for start := 0; start < len(edges); start += l.edgeBatch {
		end := start + l.edgeBatch
		if end > len(edges) {
			end = len(edges)
		}
		batch := make([]map[string]any, 0, end-start)
		for _, e := range edges[start:end] {
			batch = append(batch, map[string]any{"from": e.FromKey, "to": e.ToKey, "props": cleanProps(e.Props)})
		}
		if err := l.write(ctx, cypher, map[string]any{"rows": batch}); err != nil {
			return total, eris.Wrapf(err, "graph: upsert %s edges", relType)
		}
		total += len(batch)
	}
	return total, nil
}

// DeleteRelationships removes every edge of relType between the two labels,
// in bounded batches so huge edge sets do not blow the transaction.
func (l *Loader) DeleteRelationships(ctx context.Context, relType, fromLabel, toLabel string) (int64, error) {
	if !ValidRelType(relType) {
		zap.L().Warn("graph: refusing disallowed relationship type", zap.String("type", relType))
		return 0, eris.Errorf("graph: relationship type %q not allowed", relType)
	}
	if !ValidLabel(fromLabel) || !ValidLabel(toLabel) {
		return 0, eris.Errorf("graph: label pair (%q, %q) not allowed", fromLabel, toLabel)
	}

	cypher := fmt.Sprintf(
		"MATCH (:%s)-[r:%s]->(:%s) WITH r LIMIT $limit DELETE r RETURN count(r)",
		fromLabel, relType, toLabel,
	)

	var total int64
	for {
		session := l.session(ctx)
		deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, cypher, map[string]any{"limit": l.deleteBatch})
			if err != nil {
				return nil, err
			}
			rec, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			return rec.Values[0], nil
		})
		_ = session.Close(ctx)
		if err != nil {
			return total, eris.Wrapf(err, "graph: delete %s edges", relType)
		}
		n, _ := deleted.(int64)
		total += n
		if n < int64(l.deleteBatch) {
			return total, nil
		}
	}
}
