package filing

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/fetcher"
)

var (
	htmlMemberRe = regexp.MustCompile(`(?i)\.html?$`)

	// Member names that are never the primary 10-K document.
	rejectMemberRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^ex[-_]?\d`),
		regexp.MustCompile(`(?i)exhibit`),
		regexp.MustCompile(`(?i)[-_]ex\d`),
		regexp.MustCompile(`(?i)toc\.html?$`),
		regexp.MustCompile(`(?i)cover`),
		regexp.MustCompile(`(?i)graphic`),
		regexp.MustCompile(`(?i)^img`),
		regexp.MustCompile(`(?i)logo`),
	}
)

// ArchiveInfo describes one downloaded archive and the filing date inferred
// from its member names.
type ArchiveInfo struct {
	Path       string
	FilingDate time.Time
	Members    []fetcher.TarMember
}

func isHTMLMember(name string) bool {
	return htmlMemberRe.MatchString(name)
}

func isRejectedMember(name string) bool {
	base := filepath.Base(name)
	for _, re := range rejectMemberRes {
		if re.MatchString(base) {
			return true
		}
	}
	return false
}

// htmlMembers returns the archive members eligible as the primary document.
func htmlMembers(members []fetcher.TarMember) []fetcher.TarMember {
	var out []fetcher.TarMember
	for _, m := range members {
		if isHTMLMember(m.Name) && !isRejectedMember(m.Name) {
			out = append(out, m)
		}
	}
	return out
}

// latestMemberDate returns the most recent date carried by any member
// filename, or a zero time when none carries one.
func latestMemberDate(members []fetcher.TarMember, now time.Time) time.Time {
	var latest time.Time
	for _, m := range members {
		d := DateFromFilename(filepath.Base(m.Name), now)
		if d.After(latest) {
			latest = d
		}
	}
	return latest
}

// ListArchives inspects every .tar under dir and returns the ones holding at
// least one eligible HTML member, newest filing date first. Archives whose
// member names carry no dates sort last.
func ListArchives(dir string, now time.Time) ([]ArchiveInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "reading archive dir %s", dir)
	}
	var infos []ArchiveInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tar") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		members, err := fetcher.ListTar(path)
		if err != nil {
			return nil, eris.Wrapf(err, "listing %s", path)
		}
		if len(htmlMembers(members)) == 0 {
			continue
		}
		infos = append(infos, ArchiveInfo{
			Path:       path,
			FilingDate: latestMemberDate(members, now),
			Members:    members,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].FilingDate.After(infos[j].FilingDate)
	})
	return infos, nil
}

// SelectPrimary picks the member most likely to be the main 10-K document:
// the largest eligible HTML member. Returns false when the archive has none.
func SelectPrimary(members []fetcher.TarMember) (fetcher.TarMember, bool) {
	eligible := htmlMembers(members)
	if len(eligible) == 0 {
		return fetcher.TarMember{}, false
	}
	best := eligible[0]
	for _, m := range eligible[1:] {
		if m.Size > best.Size {
			best = m
		}
	}
	return best, true
}
