// Package plan models the structured query plan produced from a natural-language search.
//
// A plan is an ordered list of stages. The stage set is closed: Filter, LocationPlaceholder,
// Proximity and Opaque. Listing stores translate a plan into their native query language.
package plan

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/kailas-cloud/rentsearch/internal/domain"
)

// DefaultDistanceField is the listing field that receives the proximity distance in meters.
const DefaultDistanceField = "distance"

// Operator is a comparison operator of a filter condition.
type Operator string

// Supported operators.
const (
	OpEq     Operator = "eq"
	OpNe     Operator = "ne"
	OpLt     Operator = "lt"
	OpLte    Operator = "lte"
	OpGt     Operator = "gt"
	OpGte    Operator = "gte"
	OpIn     Operator = "in"
	OpNin    Operator = "nin"
	OpAll    Operator = "all"
	OpExists Operator = "exists"
	OpRegex  Operator = "regex"
)

var operators = []Operator{OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpNin, OpAll, OpExists, OpRegex}

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	return slices.Contains(operators, o)
}

// Filterable listing fields.
const (
	FieldIsAvailable = "isAvailable"
	FieldIsActive    = "isActive"
	FieldPrice       = "price"
	FieldArea        = "area"
	FieldCategory    = "category"
	FieldAmenities   = "amenities"
	FieldCity        = "address.city"
	FieldDistrict    = "address.district"
	FieldWard        = "address.ward"
	FieldRoomID      = "roomId"
	FieldPostID      = "postId"
	FieldBuildingID  = "buildingId"
)

var filterable = []string{
	FieldIsAvailable, FieldIsActive, FieldPrice, FieldArea, FieldCategory, FieldAmenities,
	FieldCity, FieldDistrict, FieldWard, FieldRoomID, FieldPostID, FieldBuildingID,
}

// Filterable reports whether a field may appear in a filter condition.
func Filterable(field string) bool {
	return slices.Contains(filterable, field)
}

// Condition is a single (field, operator, value) predicate.
// Value holds a bool, float64, string or []any as decoded from JSON.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Stage is one step of a plan.
type Stage interface {
	// Name returns the wire name of the stage, e.g. "$match".
	Name() string
}

// Filter keeps listings matching every condition.
type Filter struct {
	Conditions []Condition
}

// LocationPlaceholder names a place that must be geocoded before execution.
type LocationPlaceholder struct {
	Place string
}

// Proximity restricts results to a radius around a point and annotates the distance.
type Proximity struct {
	Near          domain.Coordinates
	MaxDistance   float64
	DistanceField string
}

// Opaque is an allowlisted pass-through stage. Value is a SortOrder for $sort
// and an int64 for $limit and $skip.
type Opaque struct {
	Stage string
	Value any
}

// SortKey is one key of a sort order. Dir is 1 (ascending) or -1 (descending).
type SortKey struct {
	Field string
	Dir   int
}

// SortOrder lists sort keys by precedence.
type SortOrder []SortKey

// Has reports whether field is already part of the order.
func (o SortOrder) Has(field string) bool {
	return slices.ContainsFunc(o, func(k SortKey) bool { return k.Field == field })
}

// MarshalJSON renders the order as an object with keys in precedence order.
func (o SortOrder) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if k.Dir < 0 {
			buf.WriteString("-1")
		} else {
			buf.WriteString("1")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Name implements Stage.
func (Filter) Name() string { return StageMatch }

// Name implements Stage.
func (LocationPlaceholder) Name() string { return StageLocation }

// Name implements Stage.
func (Proximity) Name() string { return StageGeoNear }

// Name implements Stage.
func (o Opaque) Name() string { return o.Stage }

// Mentions reports whether any condition targets field.
func (f Filter) Mentions(field string) bool {
	for _, c := range f.Conditions {
		if c.Field == field {
			return true
		}
	}
	return false
}

// IsBaseline reports whether the filter is exactly the availability baseline.
func (f Filter) IsBaseline() bool {
	if len(f.Conditions) != 2 {
		return false
	}
	seen := 0
	for _, c := range f.Conditions {
		if c.Op != OpEq || c.Value != true {
			return false
		}
		if c.Field == FieldIsAvailable || c.Field == FieldIsActive {
			seen++
		}
	}
	return seen == 2 && f.Conditions[0].Field != f.Conditions[1].Field
}

// Baseline returns the availability filter every plan starts with.
func Baseline() Filter {
	return Filter{Conditions: []Condition{
		{Field: FieldIsAvailable, Op: OpEq, Value: true},
		{Field: FieldIsActive, Op: OpEq, Value: true},
	}}
}

// Plan is an ordered list of stages.
type Plan []Stage

// Fallback returns the plan used when a query cannot be translated.
func Fallback() Plan {
	return Plan{Baseline()}
}

// Location returns the first location placeholder and its index.
func (p Plan) Location() (LocationPlaceholder, int, bool) {
	for i, s := range p {
		if lp, ok := s.(LocationPlaceholder); ok {
			return lp, i, true
		}
	}
	return LocationPlaceholder{}, -1, false
}

// HasUnresolvedLocation reports whether the plan still carries a placeholder.
func (p Plan) HasUnresolvedLocation() bool {
	_, _, ok := p.Location()
	return ok
}

// Filters returns the filter stages in order.
func (p Plan) Filters() []Filter {
	var out []Filter
	for _, s := range p {
		if f, ok := s.(Filter); ok {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a copy whose stage slice and filter conditions are not shared with p.
func (p Plan) Clone() Plan {
	if p == nil {
		return nil
	}
	out := make(Plan, len(p))
	for i, s := range p {
		if f, ok := s.(Filter); ok {
			s = Filter{Conditions: slices.Clone(f.Conditions)}
		}
		out[i] = s
	}
	return out
}

// Without returns a copy of p with the stage at index i removed.
func (p Plan) Without(i int) Plan {
	out := make(Plan, 0, len(p))
	out = append(out, p[:i]...)
	return append(out, p[i+1:]...)
}
