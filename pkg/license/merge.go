package license

// Merge collapses per-vendor classification results into one. Identities are
// distinct by normalized email; the first occurrence wins, so output order
// follows vendor iteration order and is deterministic for a given input.
//
// Removal precedence is re-applied globally: an email placed in ToRemove by
// any vendor is dropped from the merged ToNotify even if another vendor saw
// it only as notify-tier.
func Merge(results ...Result) Result {
	var merged Result

	removeSeen := make(map[string]bool)
	for _, r := range results {
		for _, id := range r.ToRemove {
			email := NormalizeEmail(id.Email)
			if removeSeen[email] {
				continue
			}
			removeSeen[email] = true
			merged.ToRemove = append(merged.ToRemove, id)
		}
	}

	notifySeen := make(map[string]bool)
	for _, r := range results {
		for _, id := range r.ToNotify {
			email := NormalizeEmail(id.Email)
			if notifySeen[email] || removeSeen[email] {
				continue
			}
			notifySeen[email] = true
			merged.ToNotify = append(merged.ToNotify, id)
		}
	}

	return merged
}
