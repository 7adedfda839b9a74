package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/cache"
	"github.com/sells-group/edgar-graph/pkg/embedding"
)

const (
	MaxChunksPerBatch = 30
	MaxTokensPerBatch = 250000
)

// Request is one text to embed, cached under {Key}:{Property}.
type Request struct {
	Key      string
	Property string
	Text     string
}

// Stats counts cache traffic and provider calls for one run.
type Stats struct {
	CacheHits    int
	CacheMisses  int
	ProviderReqs int
	ChunksSent   int
}

// cacheEntry is the stored form of one embedded text. A read is a hit only
// when model, dimension, and text hash all still match.
type cacheEntry struct {
	Text      string    `json:"text"`
	TextSHA   string    `json:"text_sha256"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// Engine chunks, batches, embeds, aggregates, and caches.
type Engine struct {
	client      embedding.Client
	store       cache.Store
	chunker     *Chunker
	aggregation string
	maxChunks   int
	maxTokens   int
}

// NewEngine wires the provider client, the artifact cache, and the chunker.
// An empty aggregation selects exponential decay.
func NewEngine(client embedding.Client, store cache.Store, chunker *Chunker, aggregation string) *Engine {
	return &Engine{
		client:      client,
		store:       store,
		chunker:     chunker,
		aggregation: aggregation,
		maxChunks:   MaxChunksPerBatch,
		maxTokens:   MaxTokensPerBatch,
	}
}

func cacheKey(r Request) string { return r.Key + ":" + r.Property }

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EmbedAll returns one vector per request key, consulting the cache first
// and batching all uncached chunks across requests into as few provider
// calls as possible. Empty texts are skipped entirely.
func (e *Engine) EmbedAll(ctx context.Context, reqs []Request) (map[string][]float32, *Stats, error) {
	stats := &Stats{}
	out := make(map[string][]float32, len(reqs))

	type pending struct {
		req    Request
		chunks []string
		first  int // index of first chunk in the flattened list
	}
	var (
		todo      []pending
		flattened []string
	)

	for _, r := range reqs {
		if r.Text == "" {
			continue
		}
		if vec, ok := e.cachedVector(ctx, r); ok {
			stats.CacheHits++
			out[cacheKey(r)] = vec
			continue
		}
		stats.CacheMisses++
		chunks := e.chunker.Chunk(r.Text)
		if len(chunks) == 0 {
			continue
		}
		todo = append(todo, pending{req: r, chunks: chunks, first: len(flattened)})
		flattened = append(flattened, chunks...)
	}

	if len(flattened) == 0 {
		return out, stats, nil
	}

	vectors, err := e.embedBatched(ctx, flattened, stats)
	if err != nil {
		return nil, stats, err
	}

	for _, p := range todo {
		chunkVecs := vectors[p.first : p.first+len(p.chunks)]
		vec := Aggregate(chunkVecs, e.aggregation)
		if err := validateVector(vec, e.client.Dimension()); err != nil {
			zap.L().Warn("embed: dropping invalid aggregate vector",
				zap.String("key", p.req.Key),
				zap.Error(err),
			)
			continue
		}
		out[cacheKey(p.req)] = vec
		e.cacheVector(ctx, p.req, vec)
	}
	return out, stats, nil
}

// embedBatched issues provider calls bounded by both chunk count and token
// count, preserving input order in the returned slice.
func (e *Engine) embedBatched(ctx context.Context, chunks []string, stats *Stats) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	var (
		batch       []string
		batchTokens int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		vecs, err := e.client.Embed(ctx, batch)
		if err != nil {
			return err
		}
		stats.ProviderReqs++
		stats.ChunksSent += len(batch)
		vectors = append(vectors, vecs...)
		batch = nil
		batchTokens = 0
		return nil
	}

	for _, chunk := range chunks {
		tokens := e.chunker.CountTokens(chunk)
		if len(batch) >= e.maxChunks || (len(batch) > 0 && batchTokens+tokens > e.maxTokens) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, chunk)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(vectors) != len(chunks) {
		return nil, eris.Errorf("embed: provider returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

func (e *Engine) cachedVector(ctx context.Context, r Request) ([]float32, bool) {
	if e.store == nil {
		return nil, false
	}
	raw, ok, err := e.store.Get(ctx, cache.NSEmbeddings, cacheKey(r))
	if err != nil || !ok {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	if entry.Model != e.client.Model() ||
		entry.Dimension != e.client.Dimension() ||
		entry.TextSHA != hashText(r.Text) {
		return nil, false
	}
	if validateVector(entry.Vector, e.client.Dimension()) != nil {
		return nil, false
	}
	return entry.Vector, true
}

func (e *Engine) cacheVector(ctx context.Context, r Request, vec []float32) {
	if e.store == nil {
		return
	}
	entry := cacheEntry{
		Text:      r.Text,
		TextSHA:   hashText(r.Text),
		Model:     e.client.Model(),
		Dimension: e.client.Dimension(),
		Vector:    vec,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, cache.NSEmbeddings, cacheKey(r), raw, 0); err != nil {
		zap.L().Warn("embed: cache write failed", zap.String("key", cacheKey(r)), zap.Error(err))
	}
}

// validateVector checks dimension and rejects non-finite components.
func validateVector(vec []float32, dim int) error {
	if len(vec) != dim {
		return eris.Errorf("embed: vector dimension %d, want %d", len(vec), dim)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return eris.Errorf("embed: non-finite component at %d", i)
		}
	}
	return nil
}
