// Package reconcile computes the merged collection from a local collection
// and a remote snapshot.
//
// Policy: remote wins on text match, append on no match.
//
//   - no local record with the same text: the remote record is appended
//   - a synced local record (has a RemoteID) with the same text: replaced in
//     place by the remote record
//   - a local-only record with the same text: kept; the remote record is
//     dropped for this cycle
//
// There is no timestamp comparison, so a remote rollback to older data looks
// exactly like a genuine update.
package reconcile

import "github.com/Mschirtzinger/quotesync/internal/quote"

// Stats counts what a merge did.
type Stats struct {
	Appended  int
	Replaced  int
	Protected int
	Unchanged int
}

// Changed reports whether the merge modified the collection.
func (s Stats) Changed() bool {
	return s.Appended > 0 || s.Replaced > 0
}

// Merge applies the policy and reports whether anything changed. Neither
// input is modified. Replacing a synced record with an identical one is not
// a change, so merging the same snapshot twice is a no-op the second time.
func Merge(local quote.Collection, remote []quote.Record) (quote.Collection, bool) {
	merged, stats := MergeStats(local, remote)
	return merged, stats.Changed()
}

// MergeStats is Merge with per-rule counts. A position of local that the
// remote snapshot touched counts as Replaced only when its final value
// differs from the original, so a snapshot repeating a text collapses to
// its last item without reporting a change on the next merge.
func MergeStats(local quote.Collection, remote []quote.Record) (quote.Collection, Stats) {
	merged := make(quote.Collection, len(local), len(local)+len(remote))
	copy(merged, local)

	var stats Stats
	touched := make(map[int]struct{})
	for _, r := range remote {
		i := merged.Index(r.Text)
		switch {
		case i < 0:
			merged = append(merged, r)
			stats.Appended++
		case !merged[i].Synced():
			stats.Protected++
		default:
			merged[i] = r
			if i < len(local) {
				touched[i] = struct{}{}
			}
		}
	}

	for i := range touched {
		if merged[i] == local[i] {
			stats.Unchanged++
		} else {
			stats.Replaced++
		}
	}
	return merged, stats
}
