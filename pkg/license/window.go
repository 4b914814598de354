package license

import (
	"fmt"
	"time"
)

const dayMS = 24 * 60 * 60 * 1000

// Window is a half-open interval [StartMS, EndMS) in epoch milliseconds.
type Window struct {
	StartMS int64
	EndMS   int64
}

// ConfigError reports an invalid configuration value. It is fatal: the run
// must abort before any network call is made.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config for %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ComputeWindow anchors a lookback window at the current wall-clock time:
// EndMS is now, StartMS is now minus daysBack days. daysBack must be
// non-negative.
func ComputeWindow(daysBack int) (Window, error) {
	if daysBack < 0 {
		return Window{}, &ConfigError{
			Field: "daysBack",
			Err:   fmt.Errorf("must be non-negative, got %d", daysBack),
		}
	}
	end := time.Now().UnixMilli()
	return Window{
		StartMS: end - int64(daysBack)*dayMS,
		EndMS:   end,
	}, nil
}

// Contains reports whether an epoch-ms instant falls inside the window.
func (w Window) Contains(ms int64) bool {
	return ms >= w.StartMS && ms < w.EndMS
}

// Days returns the window length in whole days.
func (w Window) Days() int {
	return int((w.EndMS - w.StartMS) / dayMS)
}

// StartDate formats the window start as YYYY-MM-DD in UTC, the date format
// the vendor report APIs take.
func (w Window) StartDate() string {
	return time.UnixMilli(w.StartMS).UTC().Format("2006-01-02")
}

// EndDate formats the window end as YYYY-MM-DD in UTC.
func (w Window) EndDate() string {
	return time.UnixMilli(w.EndMS).UTC().Format("2006-01-02")
}
