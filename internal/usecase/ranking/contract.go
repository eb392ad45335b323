package ranking

import "context"

// PreferenceReader reads a user's criterion counters.
type PreferenceReader interface {
	Preferences(ctx context.Context, userID string) (map[string]int64, error)
}
