package domain

// Pool groups popularity counters by listing kind.
type Pool string

// Popularity pools.
const (
	PoolRoom Pool = "room"
	PoolPost Pool = "post"
)

// Valid reports whether p is a known pool.
func (p Pool) Valid() bool {
	return p == PoolRoom || p == PoolPost
}

// Counter is a named counter value, used for preferences and popularity.
type Counter struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Preference criteria incremented by searches.
const (
	CriterionPrice = "price"
	CriterionArea  = "area"
)
