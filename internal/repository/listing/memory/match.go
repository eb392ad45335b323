package memory

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
)

// fieldValue returns the listing value of a filterable field, or nil when absent.
// Arrays are returned as []any.
func fieldValue(l domain.Listing, field string) any {
	switch field {
	case plan.FieldIsAvailable:
		return l.IsAvailable
	case plan.FieldIsActive:
		return l.IsActive
	case plan.FieldPrice:
		return floatOrNil(l.Price)
	case plan.FieldArea:
		return floatOrNil(l.Area)
	case plan.FieldCategory:
		return stringOrNil(l.Category)
	case plan.FieldAmenities:
		if l.Amenities == nil {
			return nil
		}
		out := make([]any, len(l.Amenities))
		for i, a := range l.Amenities {
			out[i] = a
		}
		return out
	case plan.FieldCity:
		return stringOrNil(l.Address.City)
	case plan.FieldDistrict:
		return stringOrNil(l.Address.District)
	case plan.FieldWard:
		return stringOrNil(l.Address.Ward)
	case plan.FieldRoomID:
		return stringOrNil(l.RoomID)
	case plan.FieldPostID:
		return stringOrNil(l.PostID)
	case plan.FieldBuildingID:
		return stringOrNil(l.BuildingID)
	case plan.DefaultDistanceField:
		return floatOrNil(l.Distance)
	default:
		return nil
	}
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func matchesAll(l domain.Listing, conds []plan.Condition) (bool, error) {
	for _, c := range conds {
		ok, err := matches(fieldValue(l, c.Field), c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// matches follows document-database semantics: an array field matches a scalar
// comparison when any element does.
func matches(v any, c plan.Condition) (bool, error) {
	switch c.Op {
	case plan.OpExists:
		want, _ := c.Value.(bool)
		return (v != nil) == want, nil
	case plan.OpNe:
		ok, err := matches(v, plan.Condition{Field: c.Field, Op: plan.OpEq, Value: c.Value})
		return !ok, err
	case plan.OpNin:
		ok, err := matches(v, plan.Condition{Field: c.Field, Op: plan.OpIn, Value: c.Value})
		return !ok, err
	case plan.OpAll:
		want, _ := c.Value.([]any)
		have, _ := v.([]any)
		for _, w := range want {
			if !slices.ContainsFunc(have, func(h any) bool { return equal(h, w) }) {
				return false, nil
			}
		}
		return len(want) > 0, nil
	}

	if arr, ok := v.([]any); ok {
		for _, e := range arr {
			ok, err := matchScalar(e, c)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return matchScalar(v, c)
}

func matchScalar(v any, c plan.Condition) (bool, error) {
	if v == nil {
		return false, nil
	}
	switch c.Op {
	case plan.OpEq:
		return equal(v, c.Value), nil
	case plan.OpIn:
		want, _ := c.Value.([]any)
		return slices.ContainsFunc(want, func(w any) bool { return equal(v, w) }), nil
	case plan.OpLt, plan.OpLte, plan.OpGt, plan.OpGte:
		cmp, ok := compare(v, c.Value)
		if !ok {
			return false, nil
		}
		switch c.Op {
		case plan.OpLt:
			return cmp < 0, nil
		case plan.OpLte:
			return cmp <= 0, nil
		case plan.OpGt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case plan.OpRegex:
		pattern, _ := c.Value.(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid regex on %s: %w", c.Field, err)
		}
		s, ok := v.(string)
		return ok && re.MatchString(s), nil
	default:
		return false, fmt.Errorf("unsupported operator %q", c.Op)
	}
}

// equal compares scalars. Identifier strings compare equal to their numeric form.
func equal(a, b any) bool {
	if a == b {
		return true
	}
	switch av := a.(type) {
	case string:
		if bf, ok := b.(float64); ok {
			return av == strconv.FormatFloat(bf, 'f', -1, 64)
		}
	case float64:
		if bs, ok := b.(string); ok {
			return strconv.FormatFloat(av, 'f', -1, 64) == bs
		}
	}
	return false
}

// compare orders two numbers or two strings. ok is false for mixed types.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// compareField orders two listings by a field. Missing values sort first.
func compareField(a, b domain.Listing, field string) int {
	av, bv := fieldValue(a, field), fieldValue(b, field)
	switch {
	case av == nil && bv == nil:
		return 0
	case av == nil:
		return -1
	case bv == nil:
		return 1
	}
	c, _ := compare(av, bv)
	return c
}
