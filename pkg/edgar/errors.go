package edgar

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/resilience"
)

// noTenKError wraps ErrNotFound so callers can cache it as a negative result.
func noTenKError(cik string, start, end time.Time) error {
	return eris.Wrapf(resilience.ErrNotFound,
		"edgar: no 10-K for %s in [%s, %s]",
		cik, start.Format("2006-01-02"), end.Format("2006-01-02"))
}
