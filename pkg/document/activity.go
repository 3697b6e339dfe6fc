package document

import "time"

// MaxActivity is the activity log capacity. Appending beyond it drops the
// oldest entries.
const MaxActivity = 500

// ActivityEntry is one human-readable line of the mutation log.
type ActivityEntry struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// AppendActivity puts e at the head of the log (most recent first) and
// trims the tail to MaxActivity.
func (d *Document) AppendActivity(e ActivityEntry) {
	e.Time = e.Time.UTC()
	log := make([]ActivityEntry, 0, min(len(d.Activity)+1, MaxActivity))
	log = append(log, e)
	log = append(log, d.Activity[:min(len(d.Activity), MaxActivity-1)]...)
	d.Activity = log
}

// RecentActivity returns at most n of the newest entries. n <= 0 returns all.
func (d *Document) RecentActivity(n int) []ActivityEntry {
	if n <= 0 || n > len(d.Activity) {
		n = len(d.Activity)
	}
	out := make([]ActivityEntry, n)
	copy(out, d.Activity[:n])
	return out
}
