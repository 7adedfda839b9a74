// Package filing acquires 10-K archives from SEC EDGAR or a commercial
// filing provider and extracts the primary document for each company.
package filing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/cache"
	"github.com/sells-group/edgar-graph/internal/fetcher"
	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/internal/resilience"
	"github.com/sells-group/edgar-graph/pkg/edgar"
	"github.com/sells-group/edgar-graph/pkg/filingapi"
)

// Options controls one acquisition run.
type Options struct {
	Start      time.Time
	End        time.Time
	Force      bool
	NoPreCheck bool
}

// Result describes one acquired filing.
type Result struct {
	CIK         string
	Year        int
	FilingDate  time.Time
	HTMLPath    string
	ArchivePath string
	// Downloaded is false when an existing archive was reused.
	Downloaded bool
}

// Acquirer drives pre-check, download, selection, and extraction for one CIK
// at a time. Safe for concurrent use across distinct CIKs.
type Acquirer struct {
	edgar         edgar.Client
	paid          filingapi.Client
	store         cache.Store
	portfoliosDir string
	filingsDir    string
	now           func() time.Time
}

// NewAcquirer wires the two providers and the artifact cache.
func NewAcquirer(e edgar.Client, p filingapi.Client, store cache.Store, portfoliosDir, filingsDir string) *Acquirer {
	return &Acquirer{
		edgar:         e,
		paid:          p,
		store:         store,
		portfoliosDir: portfoliosDir,
		filingsDir:    filingsDir,
		now:           time.Now,
	}
}

func (a *Acquirer) archiveDir(cik string) string {
	return filepath.Join(a.portfoliosDir, "10k_"+cik)
}

func negativeKey(cik string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s", cik, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Acquire runs the full acquisition flow for one company. A cached negative
// result or a 404 from both providers yields resilience.ErrNotFound.
func (a *Acquirer) Acquire(ctx context.Context, company model.Company, opts Options) (*Result, error) {
	cik := model.PadCIK(company.CIK)
	if cik == "" {
		return nil, eris.Errorf("filing: invalid cik %q", company.CIK)
	}
	log := zap.L().With(zap.String("cik", cik), zap.String("ticker", company.Ticker))
	dir := a.archiveDir(cik)

	if opts.Force {
		if err := os.RemoveAll(dir); err != nil {
			return nil, eris.Wrapf(err, "filing: purge %s", dir)
		}
		if a.store != nil {
			_ = a.store.Delete(ctx, cache.NSFilings, negativeKey(cik, opts.Start, opts.End))
		}
	}

	if a.store != nil && !opts.Force {
		if _, hit, err := a.store.Get(ctx, cache.NSFilings, negativeKey(cik, opts.Start, opts.End)); err == nil && hit {
			log.Debug("filing: cached negative result, skipping")
			return nil, eris.Wrapf(resilience.ErrNotFound, "filing: no 10-K for %s (cached)", cik)
		}
	}

	downloaded := false
	archives, err := ListArchives(dir, a.now())
	if err != nil {
		return nil, err
	}
	if len(archives) == 0 {
		if err := a.download(ctx, cik, opts, log); err != nil {
			if eris.Is(err, resilience.ErrNotFound) {
				a.cacheNegative(ctx, cik, opts)
			}
			return nil, err
		}
		downloaded = true
		archives, err = ListArchives(dir, a.now())
		if err != nil {
			return nil, err
		}
		if len(archives) == 0 {
			a.cacheNegative(ctx, cik, opts)
			return nil, eris.Wrapf(resilience.ErrNotFound, "filing: archive for %s holds no usable documents", cik)
		}
	}

	best := archives[0]
	member, ok := SelectPrimary(best.Members)
	if !ok {
		return nil, eris.Wrapf(resilience.ErrNotFound, "filing: no primary document in %s", best.Path)
	}

	filingDate := DateFromFilename(filepath.Base(member.Name), a.now())
	if filingDate.IsZero() {
		filingDate = best.FilingDate
	}
	if filingDate.IsZero() {
		return nil, eris.Errorf("filing: no filing date inferable for %s", best.Path)
	}

	destPath := filepath.Join(a.filingsDir, cik, fmt.Sprintf("10k_%d.html", filingDate.Year()))
	if err := fetcher.ExtractTarMember(best.Path, member.Name, destPath); err != nil {
		return nil, err
	}

	a.cleanup(dir, best.Path, log)

	log.Info("filing: acquired 10-K",
		zap.Int("year", filingDate.Year()),
		zap.String("path", destPath),
		zap.Bool("downloaded", downloaded),
	)
	return &Result{
		CIK:         cik,
		Year:        filingDate.Year(),
		FilingDate:  filingDate,
		HTMLPath:    destPath,
		ArchivePath: best.Path,
		Downloaded:  downloaded,
	}, nil
}

// download runs the pre-check and pulls the archive from the commercial
// provider when enabled, falling back to EDGAR on any provider failure.
func (a *Acquirer) download(ctx context.Context, cik string, opts Options, log *zap.Logger) error {
	var accession string
	if !opts.NoPreCheck {
		f, err := a.edgar.LatestTenK(ctx, cik, opts.Start, opts.End)
		if err != nil {
			return err
		}
		accession = f.AccessionNumber
	}

	dir := a.archiveDir(cik)
	if a.paid != nil && a.paid.Enabled() {
		pf, err := a.paid.LatestTenK(ctx, cik, opts.Start, opts.End)
		if err == nil {
			if _, err = a.paid.DownloadArchive(ctx, cik, pf.AccessionNumber, dir); err == nil {
				return nil
			}
		}
		if eris.Is(err, resilience.ErrNotFound) {
			return err
		}
		log.Warn("filing: commercial provider failed, falling back to EDGAR", zap.Error(err))
	}

	if accession == "" {
		f, err := a.edgar.LatestTenK(ctx, cik, opts.Start, opts.End)
		if err != nil {
			return err
		}
		accession = f.AccessionNumber
	}
	_, err := a.edgar.DownloadArchive(ctx, cik, accession, dir)
	return err
}

func (a *Acquirer) cacheNegative(ctx context.Context, cik string, opts Options) {
	if a.store == nil {
		return
	}
	_ = a.store.Set(ctx, cache.NSFilings, negativeKey(cik, opts.Start, opts.End), []byte("no_10k"), cache.TTLNegative)
}

// cleanup deletes every other archive for the CIK; the selected one is kept
// because re-downloading is expensive.
func (a *Acquirer) cleanup(dir, keep string, log *zap.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || path == keep {
			continue
		}
		if filepath.Ext(path) != ".tar" {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Warn("filing: could not remove stale archive", zap.String("path", path), zap.Error(err))
			continue
		}
		log.Debug("filing: removed stale archive", zap.String("path", path))
	}
}
