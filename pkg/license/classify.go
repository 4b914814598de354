package license

// Classify partitions a roster into inactivity tiers given the activity
// records observed in the notify window and the (longer) remove window.
//
// An identity with no active record in the remove window goes to ToRemove.
// An identity with no active record in the notify window goes to ToNotify,
// unless it is already in ToRemove: removal always wins, so an identity never
// appears in both tiers. Identities active in both windows are dropped.
//
// Records are trusted to lie inside their window; adapters filter by date so
// this function never re-checks timestamps.
func Classify(roster []Identity, notifyRecords, removeRecords []ActivityRecord) Result {
	activeInRemove := activeEmails(removeRecords)
	activeInNotify := activeEmails(notifyRecords)

	var res Result
	removing := make(map[string]bool, len(roster))

	for _, id := range roster {
		email := NormalizeEmail(id.Email)
		if !activeInRemove[email] {
			res.ToRemove = append(res.ToRemove, id)
			removing[email] = true
		}
	}

	for _, id := range roster {
		email := NormalizeEmail(id.Email)
		if activeInNotify[email] || removing[email] {
			continue
		}
		res.ToNotify = append(res.ToNotify, id)
	}

	return res
}

func activeEmails(records []ActivityRecord) map[string]bool {
	set := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Active {
			set[NormalizeEmail(r.Email)] = true
		}
	}
	return set
}
