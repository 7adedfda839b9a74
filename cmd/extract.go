package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/cache"
	"github.com/sells-group/edgar-graph/internal/filing/extract"
	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/internal/pipeline"
)

var filingFileRe = regexp.MustCompile(`^10k_(\d{4})\.html$`)

// extractTarget is one on-disk primary document.
type extractTarget struct {
	CIK  string
	Year int
	Path string
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured fields from downloaded 10-K documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "extract", false)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		targets, err := findFilings(cfg.Paths.FilingsDir)
		if err != nil {
			return err
		}
		if flagLimit > 0 && len(targets) > flagLimit {
			targets = targets[:flagLimit]
		}

		if !flagExecute {
			zap.L().Info("dry run: would extract filings", zap.Int("documents", len(targets)))
			return nil
		}

		companies, err := universe(ctx, env, false)
		if err != nil {
			return err
		}
		lookup := extract.NewLookup(companies)
		tickers := tickerIndex(companies)

		stats := pipeline.NewStats()
		err = pipeline.Run(ctx, workerCount(), targets, stats, func(ctx context.Context, t extractTarget) error {
			fe, err := extractOne(t, lookup, tickers)
			if err != nil {
				return err
			}
			if fe == nil {
				stats.NoDataResult()
				return nil
			}
			raw, err := json.Marshal(fe)
			if err != nil {
				return eris.Wrapf(err, "marshal extraction for %s", t.CIK)
			}
			if err := env.Store.Set(ctx, cache.NSExtracted10K, t.CIK, raw, cache.TTLExtracted); err != nil {
				return eris.Wrapf(err, "cache extraction for %s", t.CIK)
			}
			stats.Success()
			return nil
		})
		stats.LogSummary("extract")
		return err
	},
}

func extractOne(t extractTarget, lookup *extract.Lookup, tickers map[string]string) (*extract.FilingExtraction, error) {
	doc, err := extract.OpenDocument(t.Path)
	if err != nil {
		return nil, err
	}
	fields := extract.Run(doc, []extract.Extractor{
		extract.WebsiteExtractor{},
		extract.BusinessExtractor{},
		extract.RiskFactorsExtractor{},
		extract.MetadataExtractor{},
		extract.RelationshipExtractor{Lookup: lookup, SelfCIK: t.CIK},
	})
	if len(fields) == 0 {
		return nil, nil
	}
	fe := extract.Collect(t.CIK, t.Year, fields)
	fe.Relationships = extract.FilterFalsePositives(fe.Relationships, func(cik string) string {
		return tickers[cik]
	})
	return fe, nil
}

// findFilings walks {filings_dir}/{cik}/10k_{year}.html.
func findFilings(dir string) ([]extractTarget, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "read filings dir %s", dir)
	}
	var targets []extractTarget
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cik := model.PadCIK(e.Name())
		if cik == "" {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			m := filingFileRe.FindStringSubmatch(f.Name())
			if m == nil {
				continue
			}
			year, _ := strconv.Atoi(m[1])
			targets = append(targets, extractTarget{
				CIK:  cik,
				Year: year,
				Path: filepath.Join(dir, e.Name(), f.Name()),
			})
		}
	}
	return targets, nil
}

func tickerIndex(companies []model.Company) map[string]string {
	idx := make(map[string]string, len(companies))
	for _, c := range companies {
		idx[model.PadCIK(c.CIK)] = c.Ticker
	}
	return idx
}

func init() {
	addStageFlags(extractCmd)
	rootCmd.AddCommand(extractCmd)
}
