package data

import "time"

// SyncRun is one completed sync pass.
type SyncRun struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Errors     int
}

// Progress is the last-seen chapter for one title. Status is "ok" or "error";
// error rows keep the sentinel chapter value the sync recorded.
type Progress struct {
	Title     string
	Chapter   string
	Status    string
	UpdatedAt time.Time
}
