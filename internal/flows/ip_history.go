package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/authd/iphistory"
)

// TrackIPDeps captures per-request IP tracking dependencies.
type TrackIPDeps struct {
	LoadHistory     func(ctx context.Context, userID string) ([]iphistory.Entry, error)
	UpdateIPHistory func(ctx context.Context, userID string, history []iphistory.Entry) error
	IPHistoryLimit  int
	Now             func() time.Time
}

// RunTrackIP touches ip in the user's history and writes it back. Concurrent
// writers race with last-write-wins semantics.
func RunTrackIP(ctx context.Context, userID, ip string, deps TrackIPDeps) ([]iphistory.Entry, error) {
	history, err := deps.LoadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := iphistory.Record(history, ip, deps.Now(), deps.IPHistoryLimit)
	if err := deps.UpdateIPHistory(ctx, userID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// IPCleanupResult summarizes one housekeeping pass.
type IPCleanupResult struct {
	UsersScanned   int
	UsersUpdated   int
	EntriesRemoved int
	Err            error
}

// IPCleanupDeps captures housekeeping dependencies.
type IPCleanupDeps struct {
	ScanIPHistories func(ctx context.Context, batchSize int, fn func([]iphistory.UserHistory) error) error
	UpdateIPHistory func(ctx context.Context, userID string, history []iphistory.Entry) error
	IPHistoryLimit  int
	BatchSize       int
	Warn            func(string, ...any)
}

// RunIPCleanup trims every user's history to the retention limit and writes
// back only histories that changed. A failed write for one user is counted
// out and the pass continues; a scan failure aborts it. Counts reflect work
// done up to the point of failure.
func RunIPCleanup(ctx context.Context, deps IPCleanupDeps) IPCleanupResult {
	var result IPCleanupResult
	batch := deps.BatchSize
	if batch <= 0 {
		batch = 500
	}

	err := deps.ScanIPHistories(ctx, batch, func(users []iphistory.UserHistory) error {
		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return err
			}
			result.UsersScanned++
			kept, removed := iphistory.Trim(u.Entries, deps.IPHistoryLimit)
			if removed == 0 && !iphistory.Changed(u.Entries, kept) {
				continue
			}
			if err := deps.UpdateIPHistory(ctx, u.UserID, kept); err != nil {
				warn(deps.Warn, "authd: ip history cleanup write failed", "user_id", u.UserID, "error", err)
				continue
			}
			result.UsersUpdated++
			result.EntriesRemoved += removed
		}
		return nil
	})
	result.Err = err
	return result
}
