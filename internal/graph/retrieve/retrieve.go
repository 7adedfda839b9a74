// Package retrieve answers questions over the graph: vector seeding,
// multi-hop expansion to related companies, and context composition. Answer
// synthesis stays outside; this package returns the evidence.
package retrieve

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/graph"
)

const (
	DefaultMaxChunks     = 10
	DefaultMaxHops       = 2
	DefaultMinSim        = 0.5
	relatedMinSim        = 0.35
	bruteForcePopulation = 10000
)

// Edge types walked during expansion, in priority order after hop distance.
var expansionEdges = []string{
	"HAS_SUPPLIER",
	"HAS_CUSTOMER",
	"HAS_PARTNER",
	"HAS_COMPETITOR",
	"SIMILAR_DESCRIPTION",
	"SIMILAR_RISK",
	"SIMILAR_INDUSTRY",
}

var edgePriority = func() map[string]int {
	m := make(map[string]int, len(expansionEdges))
	for i, e := range expansionEdges {
		m[e] = i
	}
	return m
}()

// Options tunes one retrieval.
type Options struct {
	FocusTicker string
	MaxChunks   int
	MaxHops     int
	UseGraph    bool
}

// Chunk is one retrieved piece of filing text.
type Chunk struct {
	ChunkID     string  `json:"chunk_id"`
	CIK         string  `json:"cik"`
	CompanyName string  `json:"company_name"`
	SectionType string  `json:"section_type"`
	Index       int     `json:"index"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
	Source      string  `json:"source"` // vector or graph
	Related     string  `json:"related,omitempty"`
}

// RelatedCompany is one company reached by graph expansion.
type RelatedCompany struct {
	CIK      string `json:"cik"`
	Name     string `json:"name"`
	Hops     int    `json:"hops"`
	EdgeType string `json:"edge_type"`
	Via      string `json:"via,omitempty"`
}

// Result carries the retrieval evidence handed to the synthesis layer.
type Result struct {
	Chunks           []Chunk          `json:"chunks"`
	Context          string           `json:"context"`
	Companies        []string         `json:"companies"`
	RelatedCompanies []RelatedCompany `json:"related_companies,omitempty"`
	Paths            []string         `json:"paths,omitempty"`
}

// Retriever runs seed, expand, enrich, merge, compose.
type Retriever struct {
	loader *graph.Loader
	minSim float64
}

// New builds a retriever over an open loader. minSim <= 0 selects the
// default seed threshold.
func New(loader *graph.Loader, minSim float64) *Retriever {
	if minSim <= 0 {
		minSim = DefaultMinSim
	}
	return &Retriever{loader: loader, minSim: minSim}
}

// Retrieve answers one question vector.
func (r *Retriever) Retrieve(ctx context.Context, questionVec []float32, opts Options) (*Result, error) {
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = DefaultMaxChunks
	}
	if opts.MaxHops <= 0 {
		opts.MaxHops = DefaultMaxHops
	}

	seeds, err := r.seed(ctx, questionVec, 2*opts.MaxChunks, opts.FocusTicker)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	companySet := map[string]string{}
	for _, c := range seeds {
		companySet[c.CIK] = c.CompanyName
	}

	chunks := seeds
	if opts.UseGraph && len(companySet) > 0 {
		related, paths, err := r.expand(ctx, companySet, opts.MaxHops)
		if err != nil {
			return nil, err
		}
		result.RelatedCompanies = related
		result.Paths = paths

		enriched, err := r.enrich(ctx, questionVec, related)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, enriched...)
	}

	chunks = mergeChunks(chunks, opts.MaxChunks)
	result.Chunks = chunks
	result.Context = composeContext(chunks)
	for _, c := range chunks {
		if _, ok := companySet[c.CIK]; !ok {
			companySet[c.CIK] = c.CompanyName
		}
	}
	result.Companies = sortedNames(companySet)
	return result, nil
}

// seed finds the closest chunks by vector search, preferring the vector
// index and falling back to brute-force cosine over a capped population.
func (r *Retriever) seed(ctx context.Context, vec []float32, limit int, focusTicker string) ([]Chunk, error) {
	chunks, err := r.seedIndexed(ctx, vec, limit, focusTicker)
	if err == nil {
		return chunks, nil
	}
	zap.L().Debug("retrieve: vector index unavailable, brute-force fallback", zap.Error(err))
	return r.seedBruteForce(ctx, vec, limit, focusTicker)
}

const chunkReturnClause = `
RETURN ch.chunk_id AS chunk_id, ch.chunk_index AS chunk_index, ch.text AS text,
       d.section_type AS section_type, c.cik AS cik, c.name AS name`

func (r *Retriever) seedIndexed(ctx context.Context, vec []float32, limit int, focusTicker string) ([]Chunk, error) {
	cypher := `
CALL db.index.vector.queryNodes('chunk_embedding', $k, $vec) YIELD node AS ch, score
MATCH (c:Company)-[:HAS]->(d:Document)<-[:PART_OF_DOCUMENT]-(ch)
WHERE score >= $min` + focusFilter(focusTicker) + chunkReturnClause + `, score
ORDER BY score DESC`

	params := map[string]any{"k": limit, "vec": toFloat64(vec), "min": r.minSim}
	if focusTicker != "" {
		params["ticker"] = strings.ToUpper(focusTicker)
	}
	records, err := r.loader.ReadRecords(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, len(records))
	for _, rec := range records {
		c := chunkFromRecord(rec)
		if score, ok := rec.Get("score"); ok {
			c.Score, _ = score.(float64)
		}
		c.Source = "vector"
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (r *Retriever) seedBruteForce(ctx context.Context, vec []float32, limit int, focusTicker string) ([]Chunk, error) {
	cypher := `
MATCH (c:Company)-[:HAS]->(d:Document)<-[:PART_OF_DOCUMENT]-(ch:Chunk)
WHERE ch.embedding IS NOT NULL` + focusFilter(focusTicker) + chunkReturnClause + `, ch.embedding AS embedding
LIMIT $limit`

	params := map[string]any{"limit": bruteForcePopulation}
	if focusTicker != "" {
		params["ticker"] = strings.ToUpper(focusTicker)
	}
	records, err := r.loader.ReadRecords(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	q := toFloat64(vec)
	var chunks []Chunk
	for _, rec := range records {
		raw, ok := rec.Get("embedding")
		if !ok {
			continue
		}
		emb, ok := raw.([]any)
		if !ok {
			continue
		}
		score := cosine(q, emb)
		if score < r.minSim {
			continue
		}
		c := chunkFromRecord(rec)
		c.Score = score
		c.Source = "vector"
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

func focusFilter(ticker string) string {
	if ticker == "" {
		return ""
	}
	return " AND c.ticker = $ticker"
}

// expand walks outward from the seed companies up to maxHops, keeping the
// first (shortest) path to each newly reached company.
func (r *Retriever) expand(ctx context.Context, seeds map[string]string, maxHops int) ([]RelatedCompany, []string, error) {
	visited := map[string]struct{}{}
	for cik := range seeds {
		visited[cik] = struct{}{}
	}

	frontier := make([]RelatedCompany, 0, len(seeds))
	for cik, name := range seeds {
		frontier = append(frontier, RelatedCompany{CIK: cik, Name: name})
	}
	sort.Slice(frontier, func(i, j int) bool { return frontier[i].CIK < frontier[j].CIK })

	var (
		related []RelatedCompany
		paths   []string
	)
	for hop := 1; hop <= maxHops; hop++ {
		var next []RelatedCompany
		for _, from := range frontier {
			neighbors, err := r.neighbors(ctx, from.CIK)
			if err != nil {
				return nil, nil, err
			}
			for _, n := range neighbors {
				if _, seen := visited[n.CIK]; seen {
					continue
				}
				visited[n.CIK] = struct{}{}
				n.Hops = hop
				if hop > 1 {
					n.Via = from.Name
				}
				next = append(next, n)
				paths = append(paths, fmt.Sprintf("%s -%s-> %s", from.Name, n.EdgeType, n.Name))
			}
		}
		sortRelated(next)
		related = append(related, next...)
		frontier = next
	}
	return related, paths, nil
}

func (r *Retriever) neighbors(ctx context.Context, cik string) ([]RelatedCompany, error) {
	cypher := `
MATCH (c:Company {cik: $cik})-[rel]-(other:Company)
WHERE type(rel) IN $types
RETURN DISTINCT other.cik AS cik, other.name AS name, type(rel) AS edge_type`

	records, err := r.loader.ReadRecords(ctx, cypher, map[string]any{
		"cik":   cik,
		"types": expansionEdges,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "retrieve: expand from %s", cik)
	}

	byCIK := map[string]RelatedCompany{}
	for _, rec := range records {
		rc := RelatedCompany{
			CIK:      stringField(rec, "cik"),
			Name:     stringField(rec, "name"),
			EdgeType: stringField(rec, "edge_type"),
		}
		if rc.CIK == "" {
			continue
		}
		// Keep the highest-priority edge when several connect the same pair.
		if prev, ok := byCIK[rc.CIK]; !ok || edgePriority[rc.EdgeType] < edgePriority[prev.EdgeType] {
			byCIK[rc.CIK] = rc
		}
	}
	out := make([]RelatedCompany, 0, len(byCIK))
	for _, rc := range byCIK {
		out = append(out, rc)
	}
	sortRelated(out)
	return out, nil
}

func sortRelated(rcs []RelatedCompany) {
	sort.Slice(rcs, func(i, j int) bool {
		if rcs[i].Hops != rcs[j].Hops {
			return rcs[i].Hops < rcs[j].Hops
		}
		if edgePriority[rcs[i].EdgeType] != edgePriority[rcs[j].EdgeType] {
			return edgePriority[rcs[i].EdgeType] < edgePriority[rcs[j].EdgeType]
		}
		return rcs[i].CIK < rcs[j].CIK
	})
}

// enrich pulls chunks for related companies and keeps those scoring above
// the relaxed graph threshold.
func (r *Retriever) enrich(ctx context.Context, questionVec []float32, related []RelatedCompany) ([]Chunk, error) {
	q := toFloat64(questionVec)
	var out []Chunk
	for _, rc := range related {
		cypher := `
MATCH (c:Company {cik: $cik})-[:HAS]->(d:Document)<-[:PART_OF_DOCUMENT]-(ch:Chunk)
WHERE ch.embedding IS NOT NULL` + chunkReturnClause + `, ch.embedding AS embedding`
		records, err := r.loader.ReadRecords(ctx, cypher, map[string]any{"cik": rc.CIK})
		if err != nil {
			return nil, eris.Wrapf(err, "retrieve: enrich %s", rc.CIK)
		}
		for _, rec := range records {
			raw, ok := rec.Get("embedding")
			if !ok {
				continue
			}
			emb, ok := raw.([]any)
			if !ok {
				continue
			}
			score := cosine(q, emb)
			if score < relatedMinSim {
				continue
			}
			c := chunkFromRecord(rec)
			c.Score = score
			c.Source = "graph"
			c.Related = relationDescription(rc)
			out = append(out, c)
		}
	}
	return out, nil
}

func relationDescription(rc RelatedCompany) string {
	desc := strings.ToLower(strings.TrimPrefix(rc.EdgeType, "HAS_"))
	desc = strings.ReplaceAll(desc, "_", " ")
	if rc.Via != "" {
		return fmt.Sprintf("%s via %s", desc, rc.Via)
	}
	return desc
}

// mergeChunks deduplicates by chunk id, sorts by score, and cuts to limit.
func mergeChunks(chunks []Chunk, limit int) []Chunk {
	best := map[string]Chunk{}
	for _, c := range chunks {
		if prev, ok := best[c.ChunkID]; !ok || c.Score > prev.Score {
			best[c.ChunkID] = c
		}
	}
	out := make([]Chunk, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// composeContext renders each chunk with a provenance header.
func composeContext(chunks []Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		header := fmt.Sprintf("[%s – %s – Chunk %d – Source: %s", c.CompanyName, c.SectionType, c.Index, c.Source)
		if c.Related != "" {
			header += "; Related: " + c.Related
		}
		header += "]"
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(c.Text)
	}
	return b.String()
}

func sortedNames(set map[string]string) []string {
	names := make([]string, 0, len(set))
	for _, name := range set {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func chunkFromRecord(rec interface {
	Get(key string) (any, bool)
}) Chunk {
	c := Chunk{
		ChunkID:     stringField(rec, "chunk_id"),
		CompanyName: stringField(rec, "name"),
		SectionType: stringField(rec, "section_type"),
		CIK:         stringField(rec, "cik"),
		Text:        stringField(rec, "text"),
	}
	if v, ok := rec.Get("chunk_index"); ok {
		if idx, ok := v.(int64); ok {
			c.Index = int(idx)
		}
	}
	return c
}

func stringField(rec interface {
	Get(key string) (any, bool)
}, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func toFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

// cosine scores a query vector against a driver-typed embedding.
func cosine(q []float64, emb []any) float64 {
	if len(q) != len(emb) {
		return 0
	}
	var dot, qn, en float64
	for i, v := range emb {
		f, ok := v.(float64)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		dot += q[i] * f
		qn += q[i] * q[i]
		en += f * f
	}
	if qn == 0 || en == 0 {
		return 0
	}
	return dot / (math.Sqrt(qn) * math.Sqrt(en))
}
