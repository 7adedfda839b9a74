package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/embed"
	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/pkg/embedding"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed chunk text and company narrative sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "embed", true)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		chunks, err := pendingChunks(ctx, env)
		if err != nil {
			return err
		}
		if flagLimit > 0 && len(chunks) > flagLimit {
			chunks = chunks[:flagLimit]
		}

		if !flagExecute {
			zap.L().Info("dry run: would embed chunks", zap.Int("chunks", len(chunks)))
			return nil
		}

		client := embedding.New(cfg.Embedding.Key, cfg.Embedding.Model, cfg.Embedding.Dimension, nil)
		chunker := embed.NewChunker(cfg.Embedding.Model, cfg.Embedding.ChunkTokens, cfg.Embedding.OverlapTokens)
		engine := embed.NewEngine(client, env.Store, chunker, embed.AggExpDecay)

		if err := embedChunks(ctx, env, engine, chunks); err != nil {
			return err
		}
		return embedSections(ctx, env, engine)
	},
}

type chunkText struct {
	ChunkID string
	Text    string
}

// pendingChunks lists chunks without a stored embedding.
func pendingChunks(ctx context.Context, env *appEnv) ([]chunkText, error) {
	records, err := env.Loader.ReadRecords(ctx,
		"MATCH (ch:Chunk) WHERE ch.embedding IS NULL RETURN ch.chunk_id AS chunk_id, ch.text AS text ORDER BY chunk_id",
		nil,
	)
	if err != nil {
		return nil, err
	}
	chunks := make([]chunkText, 0, len(records))
	for _, rec := range records {
		id, _ := rec.Get("chunk_id")
		text, _ := rec.Get("text")
		idStr, _ := id.(string)
		textStr, _ := text.(string)
		if idStr == "" || textStr == "" {
			continue
		}
		chunks = append(chunks, chunkText{ChunkID: idStr, Text: textStr})
	}
	return chunks, nil
}

func embedChunks(ctx context.Context, env *appEnv, engine *embed.Engine, chunks []chunkText) error {
	reqs := make([]embed.Request, 0, len(chunks))
	for _, c := range chunks {
		reqs = append(reqs, embed.Request{Key: c.ChunkID, Property: "text", Text: c.Text})
	}
	vectors, stats, err := engine.EmbedAll(ctx, reqs)
	if err != nil {
		return err
	}
	zap.L().Info("chunk embedding finished",
		zap.Int("chunks", len(chunks)),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("provider_requests", stats.ProviderReqs),
	)

	rows := make([]map[string]any, 0, len(vectors))
	for _, c := range chunks {
		vec, ok := vectors[c.ChunkID+":text"]
		if !ok {
			continue
		}
		rows = append(rows, map[string]any{
			"chunk_id":  c.ChunkID,
			"embedding": toGraphVector(vec),
		})
	}
	n, err := env.Loader.UpsertNodes(ctx, "Chunk", "chunk_id", rows)
	if err != nil {
		return err
	}
	zap.L().Info("chunk embeddings stored", zap.Int("chunks", n))
	return nil
}

// embedSections stores one aggregated vector per company per narrative
// section, used by the similarity stage.
func embedSections(ctx context.Context, env *appEnv, engine *embed.Engine) error {
	companies, err := env.Loader.Companies(ctx, flagLimit)
	if err != nil {
		return err
	}

	var reqs []embed.Request
	for _, c := range companies {
		cik := model.PadCIK(c.CIK)
		fe := cachedExtraction(ctx, env.Store, cik)
		if fe == nil {
			continue
		}
		if fe.BusinessDescription != "" {
			reqs = append(reqs, embed.Request{Key: cik, Property: "business_description", Text: fe.BusinessDescription})
		}
		if fe.RiskFactors != "" {
			reqs = append(reqs, embed.Request{Key: cik, Property: "risk_factors", Text: fe.RiskFactors})
		}
	}
	if len(reqs) == 0 {
		return nil
	}

	vectors, stats, err := engine.EmbedAll(ctx, reqs)
	if err != nil {
		return err
	}
	zap.L().Info("section embedding finished",
		zap.Int("requests", len(reqs)),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("provider_requests", stats.ProviderReqs),
	)

	rowsByCIK := map[string]map[string]any{}
	for _, r := range reqs {
		vec, ok := vectors[r.Key+":"+r.Property]
		if !ok {
			continue
		}
		row, ok := rowsByCIK[r.Key]
		if !ok {
			row = map[string]any{"cik": r.Key}
			rowsByCIK[r.Key] = row
		}
		switch r.Property {
		case "business_description":
			row["description_embedding"] = toGraphVector(vec)
		case "risk_factors":
			row["risk_embedding"] = toGraphVector(vec)
		}
	}
	rows := make([]map[string]any, 0, len(rowsByCIK))
	for _, row := range rowsByCIK {
		rows = append(rows, row)
	}
	n, err := env.Loader.UpsertNodes(ctx, "Company", "cik", rows)
	if err != nil {
		return err
	}
	zap.L().Info("section embeddings stored", zap.Int("companies", n))
	return nil
}

func toGraphVector(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func init() {
	addStageFlags(embedCmd)
	rootCmd.AddCommand(embedCmd)
}
