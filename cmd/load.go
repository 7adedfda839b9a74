package main

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/cache"
	"github.com/sells-group/edgar-graph/internal/embed"
	"github.com/sells-group/edgar-graph/internal/filing/extract"
	"github.com/sells-group/edgar-graph/internal/graph"
	"github.com/sells-group/edgar-graph/internal/model"
)

// graphPayload accumulates everything one load run writes.
type graphPayload struct {
	companies []map[string]any
	domains   []map[string]any
	documents []map[string]any
	chunks    []map[string]any

	hasDomain   []graph.Edge
	hasDoc      []graph.Edge // Company-HAS->Document
	partOfDoc   []graph.Edge // Chunk-PART_OF_DOCUMENT->Document
	nextChunk   []graph.Edge
	companyRels map[string][]graph.Edge // keyed by relationship type
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load companies, domains, documents, and chunks into the graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "load", true)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		companies, err := universe(ctx, env, false)
		if err != nil {
			return err
		}

		chunker := embed.NewChunker(cfg.Embedding.Model, cfg.Embedding.ChunkTokens, cfg.Embedding.OverlapTokens)
		payload := buildPayload(ctx, env, companies, chunker)

		zap.L().Info("load plan",
			zap.Int("companies", len(payload.companies)),
			zap.Int("domains", len(payload.domains)),
			zap.Int("documents", len(payload.documents)),
			zap.Int("chunks", len(payload.chunks)),
			zap.Int("company_relationships", countEdges(payload.companyRels)),
		)
		if !flagExecute {
			zap.L().Info("dry run: no writes performed")
			return nil
		}

		if err := env.Loader.EnsureConstraints(ctx); err != nil {
			return err
		}
		return writePayload(ctx, env.Loader, payload)
	},
}

func buildPayload(ctx context.Context, env *appEnv, companies []model.Company, chunker *embed.Chunker) *graphPayload {
	p := &graphPayload{companyRels: map[string][]graph.Edge{}}
	for _, c := range companies {
		cik := model.PadCIK(c.CIK)
		if cik == "" {
			continue
		}
		merged := cachedCompany(ctx, env.Store, cik, c)
		p.companies = append(p.companies, companyRow(cik, merged))

		if result := cachedConsensus(ctx, env.Store, cik); result != nil && !result.NoDomain {
			p.domains = append(p.domains, map[string]any{
				"final_domain": result.Domain,
				"description":  result.Description,
			})
			p.hasDomain = append(p.hasDomain, graph.Edge{
				FromKey: cik,
				ToKey:   result.Domain,
				Props:   map[string]any{"confidence": result.Confidence},
			})
		}

		fe := cachedExtraction(ctx, env.Store, cik)
		if fe == nil {
			continue
		}
		source := filingSource(fe)
		addSection(p, chunker, cik, "business_description", fe.Year, source, fe.BusinessDescription)
		addSection(p, chunker, cik, "risk_factors", fe.Year, source, fe.RiskFactors)
		for _, rel := range fe.Relationships {
			if !graph.ValidRelType(rel.Type) {
				zap.L().Warn("skipping disallowed relationship type", zap.String("type", rel.Type))
				continue
			}
			p.companyRels[rel.Type] = append(p.companyRels[rel.Type], graph.Edge{
				FromKey: rel.FromCIK,
				ToKey:   rel.ToCIK,
				Props: map[string]any{
					"confidence":  rel.Confidence,
					"raw_mention": rel.RawMention,
					"context":     rel.Context,
				},
			})
		}
	}
	return p
}

// filingSource names the filing a document came from: the accession number
// when extraction found one, the form type otherwise.
func filingSource(fe *extract.FilingExtraction) string {
	if fe.Metadata != nil && fe.Metadata.AccessionNumber != "" {
		return fe.Metadata.AccessionNumber
	}
	return "10-K"
}

// addSection turns one narrative section into a Document node, its chunk
// chain, and the linking edges.
func addSection(p *graphPayload, chunker *embed.Chunker, cik, sectionType string, year int, source, text string) {
	if text == "" {
		return
	}
	docID := model.DocID(cik, sectionType, year)
	pieces := chunker.Chunk(text)
	p.documents = append(p.documents, map[string]any{
		"doc_id":       docID,
		"cik":          cik,
		"section_type": sectionType,
		"year":         year,
		"chunk_count":  len(pieces),
		"source":       source,
	})
	p.hasDoc = append(p.hasDoc, graph.Edge{FromKey: cik, ToKey: docID})

	meta, _ := json.Marshal(map[string]any{
		"cik":          cik,
		"section_type": sectionType,
		"year":         year,
	})
	var prevID string
	for i, piece := range pieces {
		chunkID := model.ChunkID(docID, i)
		p.chunks = append(p.chunks, map[string]any{
			"chunk_id":    chunkID,
			"doc_id":      docID,
			"chunk_index": i,
			"text":        piece,
			"metadata":    string(meta),
		})
		p.partOfDoc = append(p.partOfDoc, graph.Edge{FromKey: chunkID, ToKey: docID})
		if prevID != "" {
			p.nextChunk = append(p.nextChunk, graph.Edge{FromKey: prevID, ToKey: chunkID})
		}
		prevID = chunkID
	}
}

func writePayload(ctx context.Context, loader *graph.Loader, p *graphPayload) error {
	if _, err := loader.UpsertNodes(ctx, "Company", "cik", p.companies); err != nil {
		return err
	}
	if _, err := loader.UpsertNodes(ctx, "Domain", "final_domain", p.domains); err != nil {
		return err
	}
	if _, err := loader.UpsertNodes(ctx, "Document", "doc_id", p.documents); err != nil {
		return err
	}
	if _, err := loader.UpsertNodes(ctx, "Chunk", "chunk_id", p.chunks); err != nil {
		return err
	}

	if _, err := loader.UpsertRelationships(ctx, "HAS_DOMAIN", "Company", "cik", "Domain", "final_domain", p.hasDomain); err != nil {
		return err
	}
	if _, err := loader.UpsertRelationships(ctx, "HAS", "Company", "cik", "Document", "doc_id", p.hasDoc); err != nil {
		return err
	}
	if _, err := loader.UpsertRelationships(ctx, "PART_OF_DOCUMENT", "Chunk", "chunk_id", "Document", "doc_id", p.partOfDoc); err != nil {
		return err
	}
	if _, err := loader.UpsertRelationships(ctx, "NEXT_CHUNK", "Chunk", "chunk_id", "Chunk", "chunk_id", p.nextChunk); err != nil {
		return err
	}
	for relType, edges := range p.companyRels {
		if _, err := loader.UpsertRelationships(ctx, relType, "Company", "cik", "Company", "cik", edges); err != nil {
			return err
		}
	}
	zap.L().Info("load complete")
	return nil
}

func companyRow(cik string, c model.Company) map[string]any {
	return map[string]any{
		"cik":                  cik,
		"ticker":               c.Ticker,
		"name":                 c.Name,
		"legal_name":           c.LegalName,
		"sic_code":             c.SICCode,
		"naics_code":           c.NAICSCode,
		"sector":               c.Sector,
		"industry":             c.Industry,
		"market_cap":           zeroToNil(c.MarketCap),
		"revenue":              zeroToNil(c.Revenue),
		"employees":            intZeroToNil(c.Employees),
		"hq_city":              c.HQCity,
		"hq_state":             c.HQState,
		"hq_country":           c.HQCountry,
		"accession_number":     c.AccessionNumber,
		"filing_date":          c.FilingDate,
		"fiscal_year_end":      c.FiscalYearEnd,
		"website":              c.Website,
		"domain":               c.Domain,
		"business_description": c.BusinessDescription,
		"risk_factors":         c.RiskFactors,
	}
}

func zeroToNil(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}

func intZeroToNil(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func cachedCompany(ctx context.Context, store cache.Store, cik string, base model.Company) model.Company {
	raw, ok, err := store.Get(ctx, cache.NSCompanyProperties, cik)
	if err != nil || !ok {
		return base
	}
	merged := base
	if err := json.Unmarshal(raw, &merged); err != nil {
		return base
	}
	merged.CIK = cik
	return merged
}

func cachedConsensus(ctx context.Context, store cache.Store, cik string) *model.CompanyResult {
	raw, ok, err := store.Get(ctx, cache.NSCompanyDomains, cik)
	if err != nil || !ok {
		return nil
	}
	var result model.CompanyResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return &result
}

func cachedExtraction(ctx context.Context, store cache.Store, cik string) *extract.FilingExtraction {
	raw, ok, err := store.Get(ctx, cache.NSExtracted10K, cik)
	if err != nil || !ok {
		return nil
	}
	var fe extract.FilingExtraction
	if err := json.Unmarshal(raw, &fe); err != nil {
		zap.L().Warn("unreadable cached extraction", zap.String("cik", cik), zap.Error(eris.Wrap(err, "unmarshal")))
		return nil
	}
	return &fe
}

func countEdges(m map[string][]graph.Edge) int {
	n := 0
	for _, edges := range m {
		n += len(edges)
	}
	return n
}

func init() {
	addStageFlags(loadCmd)
	rootCmd.AddCommand(loadCmd)
}
