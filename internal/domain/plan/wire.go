package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/rentsearch/internal/domain"
)

// Wire stage names.
const (
	StageMatch    = "$match"
	StageLocation = "$location"
	StageGeoNear  = "$geoNear"
	StageSort     = "$sort"
	StageLimit    = "$limit"
	StageSkip     = "$skip"

	// AndKey holds conditions of a $match body that repeat an operator on the same field.
	AndKey = "$and"
)

// Structural decode errors. Any of them makes the whole document unusable.
var (
	ErrNotJSON        = errors.New("plan is not valid JSON")
	ErrNotArray       = errors.New("plan is not a stage array")
	ErrEmpty          = errors.New("plan has no stages")
	ErrMalformedStage = errors.New("plan stage is not a single-key object")
)

// Dropped describes a part of the wire document that was discarded during decode.
type Dropped struct {
	Stage  string
	Field  string
	Reason string
}

func (d Dropped) String() string {
	if d.Field != "" {
		return fmt.Sprintf("%s.%s: %s", d.Stage, d.Field, d.Reason)
	}
	return fmt.Sprintf("%s: %s", d.Stage, d.Reason)
}

// Decode parses the wire form of a plan: a JSON array of single-key stage documents.
// Unknown stages, unknown fields and unsupported operators are dropped and reported;
// structural problems return an error.
func Decode(raw []byte) (Plan, []Dropped, error) {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, nil, ErrNotJSON
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, nil, ErrNotArray
	}
	if len(docs) == 0 {
		return nil, nil, ErrEmpty
	}

	var (
		out     Plan
		dropped []Dropped
	)
	for i, doc := range docs {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(doc, &m); err != nil || len(m) != 1 {
			return nil, nil, fmt.Errorf("stage %d: %w", i, ErrMalformedStage)
		}
		for name, body := range m {
			stage, drops := decodeStage(name, body)
			dropped = append(dropped, drops...)
			if stage != nil {
				out = append(out, stage)
			}
		}
	}
	return out, dropped, nil
}

func decodeStage(name string, body json.RawMessage) (Stage, []Dropped) {
	switch name {
	case StageMatch:
		return decodeMatch(body)
	case StageLocation:
		var place string
		if err := json.Unmarshal(body, &place); err != nil || strings.TrimSpace(place) == "" {
			return nil, []Dropped{{Stage: name, Reason: "place must be a non-empty string"}}
		}
		return LocationPlaceholder{Place: strings.TrimSpace(place)}, nil
	case StageGeoNear:
		return decodeGeoNear(body)
	case StageSort:
		order, err := decodeSortOrder(body)
		if err != nil {
			return nil, []Dropped{{Stage: name, Reason: err.Error()}}
		}
		return Opaque{Stage: name, Value: order}, nil
	case StageLimit, StageSkip:
		var n float64
		if err := json.Unmarshal(body, &n); err != nil || n < 0 || n != math.Trunc(n) {
			return nil, []Dropped{{Stage: name, Reason: "must be a non-negative integer"}}
		}
		return Opaque{Stage: name, Value: int64(n)}, nil
	default:
		return nil, []Dropped{{Stage: name, Reason: "stage not allowed"}}
	}
}

// decodeSortOrder reads a $sort body token by token so key precedence survives.
// A repeated key keeps its first position.
func decodeSortOrder(body json.RawMessage) (SortOrder, error) {
	errShape := errors.New("sort spec must be an object of 1/-1")

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, errShape
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errShape
	}

	var order SortOrder
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errShape
		}
		field, _ := tok.(string)
		var dir float64
		if err := dec.Decode(&dir); err != nil {
			return nil, errShape
		}
		if dir != 1 && dir != -1 {
			return nil, fmt.Errorf("%s: sort direction must be 1 or -1", field)
		}
		if order.Has(field) {
			continue
		}
		order = append(order, SortKey{Field: field, Dir: int(dir)})
	}
	if len(order) == 0 {
		return nil, errShape
	}
	return order, nil
}

func decodeMatch(body json.RawMessage) (Stage, []Dropped) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, []Dropped{{Stage: StageMatch, Reason: "match body must be an object"}}
	}

	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	var (
		conds   []Condition
		dropped []Dropped
	)
	for _, field := range names {
		if !Filterable(field) {
			dropped = append(dropped, Dropped{Stage: StageMatch, Field: field, Reason: "field not filterable"})
			continue
		}
		c, d := decodeConditions(field, fields[field])
		conds = append(conds, c...)
		dropped = append(dropped, d...)
	}
	if len(conds) == 0 {
		dropped = append(dropped, Dropped{Stage: StageMatch, Reason: "no usable conditions"})
		return nil, dropped
	}
	return Filter{Conditions: conds}, dropped
}

// decodeConditions reads either a literal (implicit eq) or an operator document.
func decodeConditions(field string, body json.RawMessage) ([]Condition, []Dropped) {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, []Dropped{{Stage: StageMatch, Field: field, Reason: "invalid value"}}
	}
	ops, isDoc := value.(map[string]any)
	if !isDoc || !isOperatorDoc(ops) {
		if !validValue(OpEq, value) {
			return nil, []Dropped{{Stage: StageMatch, Field: field, Reason: "invalid value"}}
		}
		return []Condition{{Field: field, Op: OpEq, Value: value}}, nil
	}

	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		conds   []Condition
		dropped []Dropped
	)
	for _, k := range keys {
		op := Operator(strings.TrimPrefix(k, "$"))
		if !op.Valid() {
			dropped = append(dropped, Dropped{Stage: StageMatch, Field: field, Reason: "unsupported operator " + k})
			continue
		}
		if !validValue(op, ops[k]) {
			dropped = append(dropped, Dropped{Stage: StageMatch, Field: field, Reason: "invalid value for " + k})
			continue
		}
		conds = append(conds, Condition{Field: field, Op: op, Value: ops[k]})
	}
	return conds, dropped
}

func isOperatorDoc(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func validValue(op Operator, v any) bool {
	switch op {
	case OpIn, OpNin, OpAll:
		arr, ok := v.([]any)
		if !ok || len(arr) == 0 {
			return false
		}
		for _, e := range arr {
			if !scalar(e) {
				return false
			}
		}
		return true
	case OpExists:
		_, ok := v.(bool)
		return ok
	case OpRegex:
		s, ok := v.(string)
		return ok && s != ""
	case OpLt, OpLte, OpGt, OpGte:
		switch v.(type) {
		case float64, string:
			return true
		}
		return false
	default:
		return scalar(v)
	}
}

func scalar(v any) bool {
	switch v.(type) {
	case bool, float64, string:
		return true
	}
	return false
}

type geoNearWire struct {
	Near struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"near"`
	MaxDistance   float64 `json:"maxDistance"`
	DistanceField string  `json:"distanceField"`
	Spherical     bool    `json:"spherical,omitempty"`
}

func decodeGeoNear(body json.RawMessage) (Stage, []Dropped) {
	var w geoNearWire
	if err := json.Unmarshal(body, &w); err != nil || len(w.Near.Coordinates) != 2 {
		return nil, []Dropped{{Stage: StageGeoNear, Reason: "near must be a GeoJSON point"}}
	}
	near := domain.Coordinates{Lon: w.Near.Coordinates[0], Lat: w.Near.Coordinates[1]}
	if !near.Valid() || w.MaxDistance < 0 {
		return nil, []Dropped{{Stage: StageGeoNear, Reason: "coordinates or distance out of range"}}
	}
	return Proximity{Near: near, MaxDistance: w.MaxDistance, DistanceField: DefaultDistanceField}, nil
}

// Encode renders a plan in its wire form.
func Encode(p Plan) ([]byte, error) {
	docs := make([]map[string]any, 0, len(p))
	for _, s := range p {
		docs = append(docs, map[string]any{s.Name(): stageBody(s)})
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	return b, nil
}

// String returns the wire form, for logs.
func (p Plan) String() string {
	b, err := Encode(p)
	if err != nil {
		return "<invalid plan>"
	}
	return string(b)
}

func stageBody(s Stage) any {
	switch st := s.(type) {
	case Filter:
		return MatchDocument(st)
	case LocationPlaceholder:
		return st.Place
	case Proximity:
		w := geoNearWire{MaxDistance: st.MaxDistance, DistanceField: st.DistanceField, Spherical: true}
		w.Near.Type = "Point"
		w.Near.Coordinates = []float64{st.Near.Lon, st.Near.Lat}
		return w
	case Opaque:
		return st.Value
	default:
		return nil
	}
}

// MatchDocument groups conditions by field into a "$match" body.
// A field with a single eq condition is rendered as a literal. A repeated numeric bound
// keeps the tighter value; any other repeated operator on a field goes to "$and".
func MatchDocument(f Filter) map[string]any {
	grouped := make(map[string]map[string]any)
	var (
		order []string
		extra []any
	)
	for _, c := range f.Conditions {
		ops, ok := grouped[c.Field]
		if !ok {
			ops = make(map[string]any)
			grouped[c.Field] = ops
			order = append(order, c.Field)
		}
		key := "$" + string(c.Op)
		prev, dup := ops[key]
		if !dup {
			ops[key] = c.Value
			continue
		}
		if v, ok := tighter(c.Op, prev, c.Value); ok {
			ops[key] = v
			continue
		}
		if scalar(prev) && prev == c.Value {
			continue
		}
		extra = append(extra, map[string]any{c.Field: map[string]any{key: c.Value}})
	}

	doc := make(map[string]any, len(order)+1)
	for _, field := range order {
		ops := grouped[field]
		if v, ok := ops["$"+string(OpEq)]; ok && len(ops) == 1 {
			doc[field] = v
			continue
		}
		doc[field] = ops
	}
	if len(extra) > 0 {
		doc[AndKey] = extra
	}
	return doc
}

// tighter merges two numeric bounds of the same operator.
func tighter(op Operator, a, b any) (float64, bool) {
	x, okA := a.(float64)
	y, okB := b.(float64)
	if !okA || !okB {
		return 0, false
	}
	switch op {
	case OpLt, OpLte:
		return math.Min(x, y), true
	case OpGt, OpGte:
		return math.Max(x, y), true
	default:
		return 0, false
	}
}
