package license

import "strings"

// Identity is a licensed user. Identities are rebuilt from vendor rosters on
// every run; there is no persisted identity store. Email is the unique key
// and must be normalized with NormalizeEmail before use.
type Identity struct {
	Name   string
	Email  string
	Source string // short vendor key, e.g. "jetbrains"
}

// ActivityRecord is one observation of whether an identity was active on a
// given day, scoped to a single vendor and window. DayMS is epoch
// milliseconds. A roster identity with zero active records inside a window is
// inactive for that window: absence is evidence of inactivity.
type ActivityRecord struct {
	Email  string
	DayMS  int64
	Active bool
}

// Result partitions a roster into the two inactivity tiers. Identities active
// in both windows are excluded entirely.
type Result struct {
	ToNotify []Identity
	ToRemove []Identity
}

// NormalizeEmail lowercases and trims an email address so identities from
// different vendors collapse onto the same key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
