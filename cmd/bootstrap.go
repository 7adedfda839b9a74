package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/domains"
	"github.com/sells-group/edgar-graph/internal/graph"
)

var bootstrapDomainStatusFile string

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Provision graph constraints, seed companies, and ingest domain status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "bootstrap", true)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		companies, err := universe(ctx, env, false)
		if err != nil {
			return err
		}

		var status []domains.StatusRecord
		if bootstrapDomainStatusFile != "" {
			status, err = domains.LoadStatusFile(bootstrapDomainStatusFile)
			if err != nil {
				return err
			}
		}

		if !flagExecute {
			zap.L().Info("dry run: would ensure constraints and seed the graph",
				zap.Int("companies", len(companies)),
				zap.Int("domain_status_records", len(status)))
			return nil
		}

		if err := env.Loader.EnsureConstraints(ctx); err != nil {
			return err
		}

		rows := make([]map[string]any, 0, len(companies))
		for _, c := range companies {
			rows = append(rows, map[string]any{
				"cik":    c.CIK,
				"ticker": c.Ticker,
				"name":   c.Name,
			})
		}
		n, err := env.Loader.UpsertNodes(ctx, "Company", "cik", rows)
		if err != nil {
			return eris.Wrap(err, "seed companies")
		}
		zap.L().Info("companies seeded", zap.Int("upserted", n))

		if len(status) > 0 {
			if err := loadDomainStatus(ctx, env, status); err != nil {
				return err
			}
		}
		zap.L().Info("bootstrap complete")
		return nil
	},
}

// loadDomainStatus writes the crawled Domain nodes, the Technology nodes they
// reference, and the edges between them.
func loadDomainStatus(ctx context.Context, env *appEnv, status []domains.StatusRecord) error {
	domainRows, techRows, uses := domainStatusPayload(status)

	nd, err := env.Loader.UpsertNodes(ctx, "Domain", "final_domain", domainRows)
	if err != nil {
		return eris.Wrap(err, "seed domains")
	}
	nt, err := env.Loader.UpsertNodes(ctx, "Technology", "name", techRows)
	if err != nil {
		return eris.Wrap(err, "seed technologies")
	}
	ne, err := env.Loader.UpsertRelationships(ctx, "USES", "Domain", "final_domain", "Technology", "name", uses)
	if err != nil {
		return eris.Wrap(err, "link domain technologies")
	}
	zap.L().Info("domain status ingested",
		zap.Int("domains", nd),
		zap.Int("technologies", nt),
		zap.Int("uses_edges", ne))
	return nil
}

// domainStatusPayload shapes status records into node rows and USES edges.
// Technologies are deduplicated by name across all domains.
func domainStatusPayload(status []domains.StatusRecord) (domainRows, techRows []map[string]any, uses []graph.Edge) {
	techByName := map[string]map[string]any{}
	var techNames []string
	for _, rec := range status {
		domainRows = append(domainRows, map[string]any{
			"final_domain": rec.Domain,
			"title":        rec.Title,
			"keywords":     rec.Keywords,
			"description":  rec.Description,
		})
		for _, tech := range rec.Technologies {
			if _, ok := techByName[tech.Name]; !ok {
				techByName[tech.Name] = map[string]any{
					"name":     tech.Name,
					"category": tech.Category,
				}
				techNames = append(techNames, tech.Name)
			}
			uses = append(uses, graph.Edge{FromKey: rec.Domain, ToKey: tech.Name})
		}
	}
	for _, name := range techNames {
		techRows = append(techRows, techByName[name])
	}
	return domainRows, techRows, uses
}

func init() {
	addStageFlags(bootstrapCmd)
	bootstrapCmd.Flags().StringVar(&bootstrapDomainStatusFile, "domain-status-file", "",
		"YAML export of crawled domains and their technologies")
	rootCmd.AddCommand(bootstrapCmd)
}
