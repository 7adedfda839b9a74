package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/graph"
	"github.com/sells-group/edgar-graph/internal/similarity"
)

// similarityJob computes one edge type's pair set.
type similarityJob struct {
	relType string
	metric  string
	compute func(ctx context.Context, env *appEnv) ([]similarity.Pair, error)
}

var similarityCmd = &cobra.Command{
	Use:   "similarity",
	Short: "Recompute company similarity edges from embeddings and attributes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "similarity", true)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		topK := cfg.Similarity.TopK
		threshold := cfg.Similarity.Threshold

		var profiles []similarity.CompanyProfile
		loadProfiles := func(ctx context.Context, env *appEnv) ([]similarity.CompanyProfile, error) {
			if profiles != nil {
				return profiles, nil
			}
			rows, err := env.Loader.CompanyProfiles(ctx, flagLimit)
			if err != nil {
				return nil, err
			}
			profiles = make([]similarity.CompanyProfile, 0, len(rows))
			for _, r := range rows {
				profiles = append(profiles, similarity.CompanyProfile{
					Key:          r.CIK,
					SICCode:      r.SICCode,
					Industry:     r.Industry,
					MarketCap:    r.MarketCap,
					Revenue:      r.Revenue,
					Employees:    r.Employees,
					Technologies: r.Technologies,
					Keywords:     r.Keywords,
				})
			}
			return profiles, nil
		}
		attributeJob := func(compute func([]similarity.CompanyProfile, int, float64) []similarity.Pair) func(context.Context, *appEnv) ([]similarity.Pair, error) {
			return func(ctx context.Context, env *appEnv) ([]similarity.Pair, error) {
				ps, err := loadProfiles(ctx, env)
				if err != nil {
					return nil, err
				}
				return compute(ps, topK, threshold), nil
			}
		}

		jobs := []similarityJob{
			{relType: "SIMILAR_DESCRIPTION", metric: "COSINE", compute: vectorJob("description_embedding", cfg.Similarity.DescriptionThreshold)},
			{relType: "SIMILAR_RISK", metric: "COSINE", compute: vectorJob("risk_embedding", threshold)},
			{relType: "SIMILAR_INDUSTRY", metric: "SIC_MATCH", compute: attributeJob(similarity.ComputeIndustry)},
			{relType: "SIMILAR_TECHNOLOGY", metric: "JACCARD", compute: attributeJob(similarity.ComputeTechnology)},
			{relType: "SIMILAR_SIZE", metric: "LOG_SCALE", compute: attributeJob(similarity.ComputeSize)},
			{relType: "SIMILAR_KEYWORD", metric: "JACCARD", compute: attributeJob(similarity.ComputeKeyword)},
		}
		for _, job := range jobs {
			if err := runSimilarityJob(ctx, env, job); err != nil {
				return err
			}
		}
		return nil
	},
}

// vectorJob reads one stored vector property per company and scores it with
// the cosine engine.
func vectorJob(vecProp string, threshold float64) func(context.Context, *appEnv) ([]similarity.Pair, error) {
	return func(ctx context.Context, env *appEnv) ([]similarity.Pair, error) {
		rows, err := env.Loader.NodeVectors(ctx, "Company", "cik", vecProp, flagLimit)
		if err != nil {
			return nil, err
		}
		inputs := make([]similarity.Input, 0, len(rows))
		for _, r := range rows {
			inputs = append(inputs, similarity.Input{Key: r.Key, Vector: r.Vector})
		}
		return similarity.Compute(inputs, cfg.Similarity.TopK, threshold)
	}
}

// runSimilarityJob recomputes one edge type end to end: score, delete the old
// edge set, write the new one in both directions.
func runSimilarityJob(ctx context.Context, env *appEnv, job similarityJob) error {
	pairs, err := job.compute(ctx, env)
	if err != nil {
		return err
	}
	zap.L().Info("similarity computed",
		zap.String("edge_type", job.relType),
		zap.Int("pairs", len(pairs)),
	)

	if !flagExecute {
		zap.L().Info("dry run: no edges written", zap.String("edge_type", job.relType))
		return nil
	}

	deleted, err := env.Loader.DeleteRelationships(ctx, job.relType, "Company", "Company")
	if err != nil {
		return err
	}

	computedAt := time.Now().UTC().Format(time.RFC3339)
	edges := make([]graph.Edge, 0, 2*len(pairs))
	for _, p := range pairs {
		props := map[string]any{
			"score":       p.Score,
			"metric":      job.metric,
			"computed_at": computedAt,
		}
		edges = append(edges,
			graph.Edge{FromKey: p.Left, ToKey: p.Right, Props: props},
			graph.Edge{FromKey: p.Right, ToKey: p.Left, Props: props},
		)
	}
	written, err := env.Loader.UpsertRelationships(ctx, job.relType, "Company", "cik", "Company", "cik", edges)
	if err != nil {
		return err
	}
	zap.L().Info("similarity edges replaced",
		zap.String("edge_type", job.relType),
		zap.Int64("deleted", deleted),
		zap.Int("written", written),
	)
	return nil
}

func init() {
	addStageFlags(similarityCmd)
	rootCmd.AddCommand(similarityCmd)
}
