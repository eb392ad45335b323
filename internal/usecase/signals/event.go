package signals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexibleID is an identifier that arrives as either a JSON number or a JSON string.
type FlexibleID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}

	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*id = FlexibleID(strconv.FormatInt(n, 10))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("id must be a number or a string, got %s", data)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		*id = FlexibleID(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*id = FlexibleID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// String returns the id as text.
func (id FlexibleID) String() string { return string(id) }

// ClickEvent is a user's interaction with a listing.
type ClickEvent struct {
	UserID    FlexibleID `json:"userId" validate:"required"`
	PostID    FlexibleID `json:"postId,omitempty" validate:"required_without=RoomID"`
	RoomID    FlexibleID `json:"roomId,omitempty" validate:"required_without=PostID"`
	Amenities []string   `json:"amenities,omitempty"`
}

// Outcome statuses.
const (
	StatusOK      = "ok"
	StatusIgnored = "ignored"
)

// ClickOutcome reports what happened to a click event.
type ClickOutcome struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Ignored returns an ignored outcome with the given reason.
func Ignored(reason string) ClickOutcome {
	return ClickOutcome{Status: StatusIgnored, Reason: reason}
}
