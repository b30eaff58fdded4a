package iphistory

import (
	"slices"
	"strings"
	"time"
)

// Entry is one address in a user's history.
type Entry struct {
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record touches ip in history at now and returns the sorted history
// truncated to limit. An existing entry only has UpdatedAt refreshed; a new
// address is appended with both timestamps set to now. A limit of zero or
// less means unbounded. An empty ip leaves the history unchanged apart from
// ordering and truncation.
func Record(history []Entry, ip string, now time.Time, limit int) []Entry {
	out := slices.Clone(history)
	ip = strings.TrimSpace(ip)
	if ip != "" {
		found := false
		for i := range out {
			if out[i].IP == ip {
				out[i].UpdatedAt = now
				found = true
				break
			}
		}
		if !found {
			out = append(out, Entry{IP: ip, CreatedAt: now, UpdatedAt: now})
		}
	}
	sortByRecency(out)
	return truncate(out, limit)
}

// Trim sorts history by recency and drops everything past limit. It returns
// the kept entries and how many were removed.
func Trim(history []Entry, limit int) ([]Entry, int) {
	out := slices.Clone(history)
	sortByRecency(out)
	kept := truncate(out, limit)
	return kept, len(history) - len(kept)
}

// Changed reports whether after differs from before in content or order.
func Changed(before, after []Entry) bool {
	return !slices.EqualFunc(before, after, func(a, b Entry) bool {
		return a.IP == b.IP && a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
	})
}

// Latest returns the most recently used address, or "".
func Latest(history []Entry) string {
	if len(history) == 0 {
		return ""
	}
	best := history[0]
	for _, e := range history[1:] {
		if newer(e, best) {
			best = e
		}
	}
	return best.IP
}

func sortByRecency(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch {
		case newer(a, b):
			return -1
		case newer(b, a):
			return 1
		default:
			return 0
		}
	})
}

func newer(a, b Entry) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func truncate(entries []Entry, limit int) []Entry {
	if limit > 0 && len(entries) > limit {
		// Clip so appends by the caller never write into the dropped tail.
		return slices.Clip(entries[:limit])
	}
	return entries
}

// UserHistory pairs a user id with their stored history. Housekeeping scans
// yield batches of these.
type UserHistory struct {
	UserID  string
	Entries []Entry
}
