package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/graph/retrieve"
	"github.com/sells-group/edgar-graph/pkg/anthropic"
	"github.com/sells-group/edgar-graph/pkg/embedding"
)

var (
	askTicker     string
	askMaxChunks  int
	askMaxHops    int
	askNoGraph    bool
	askSynthesize bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question over the filing knowledge graph",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		question := strings.Join(args, " ")

		env, err := initEnv(ctx, "ask", true)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		client := embedding.New(cfg.Embedding.Key, cfg.Embedding.Model, cfg.Embedding.Dimension, nil)
		vecs, err := client.Embed(ctx, []string{question})
		if err != nil {
			return eris.Wrap(err, "embed question")
		}

		retriever := retrieve.New(env.Loader, 0)
		result, err := retriever.Retrieve(ctx, vecs[0], retrieve.Options{
			FocusTicker: askTicker,
			MaxChunks:   askMaxChunks,
			MaxHops:     askMaxHops,
			UseGraph:    !askNoGraph,
		})
		if err != nil {
			return eris.Wrap(err, "retrieve")
		}
		zap.L().Info("retrieval complete",
			zap.Int("chunks", len(result.Chunks)),
			zap.Int("companies", len(result.Companies)),
			zap.Int("related", len(result.RelatedCompanies)),
		)

		if askSynthesize {
			if cfg.Anthropic.Key == "" {
				return eris.New("--synthesize requires ANTHROPIC_API_KEY")
			}
			llm := anthropic.New(cfg.Anthropic.Key, cfg.Anthropic.Model)
			answer, err := llm.Synthesize(ctx, question, result.Context)
			if err != nil {
				return eris.Wrap(err, "synthesize answer")
			}
			cmd.Println(answer)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	askCmd.Flags().StringVar(&askTicker, "ticker", "", "restrict seed chunks to one company")
	askCmd.Flags().IntVar(&askMaxChunks, "max-chunks", retrieve.DefaultMaxChunks, "chunks retained after merge")
	askCmd.Flags().IntVar(&askMaxHops, "max-hops", retrieve.DefaultMaxHops, "graph expansion depth")
	askCmd.Flags().BoolVar(&askNoGraph, "no-graph", false, "vector search only, skip graph expansion")
	askCmd.Flags().BoolVar(&askSynthesize, "synthesize", false, "compose a prose answer with the LLM")
	rootCmd.AddCommand(askCmd)
}
