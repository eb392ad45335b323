package planner

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
)

func cond(field string, op plan.Operator, v any) plan.Condition {
	return plan.Condition{Field: field, Op: op, Value: v}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		location string
		conds    []plan.Condition
	}{
		{
			name:  "under price",
			query: "Phòng trọ dưới 3 triệu",
			conds: []plan.Condition{
				cond(plan.FieldCategory, plan.OpEq, "boarding_room"),
				cond(plan.FieldPrice, plan.OpLt, 3e6),
			},
		},
		{
			name:     "range with location and amenities",
			query:    "căn hộ gần đại học bách khoa từ 5 đến 7 triệu có máy lạnh và wifi",
			location: "đại học bách khoa",
			conds: []plan.Condition{
				cond(plan.FieldCategory, plan.OpEq, "apartment"),
				cond(plan.FieldAmenities, plan.OpAll, []any{"wifi", "air_conditioner"}),
				cond(plan.FieldPrice, plan.OpGte, 5e6),
				cond(plan.FieldPrice, plan.OpLte, 7e6),
			},
		},
		{
			name:     "english",
			query:    "apartment near Ben Thanh market under 10m with parking",
			location: "ben thanh market",
			conds: []plan.Condition{
				cond(plan.FieldCategory, plan.OpEq, "apartment"),
				cond(plan.FieldAmenities, plan.OpAll, []any{"parking"}),
				cond(plan.FieldPrice, plan.OpLt, 10e6),
			},
		},
		{
			name:     "area over",
			query:    "phòng trên 20m2 ở quận 3",
			location: "quận 3",
			conds:    []plan.Condition{cond(plan.FieldArea, plan.OpGt, 20.0)},
		},
		{
			name:  "area range",
			query: "20-30 m2",
			conds: []plan.Condition{
				cond(plan.FieldArea, plan.OpGte, 20.0),
				cond(plan.FieldArea, plan.OpLte, 30.0),
			},
		},
		{
			name:  "grouped digits without marker",
			query: "nhà nguyên căn 3.000.000đ",
			conds: []plan.Condition{
				cond(plan.FieldCategory, plan.OpEq, "house"),
				cond(plan.FieldPrice, plan.OpLte, 3e6),
			},
		},
		{
			name:     "shared room is not a location marker",
			query:    "ở ghép gần chợ bến thành",
			location: "chợ bến thành",
			conds:    []plan.Condition{cond(plan.FieldCategory, plan.OpEq, "shared_room")},
		},
		{
			name:  "decimal comma and district token",
			query: "q1 giá 2,5 triệu",
			conds: []plan.Condition{cond(plan.FieldPrice, plan.OpLte, 2.5e6)},
		},
		{
			name:  "thousands unit",
			query: "phòng ghép từ 800k",
			conds: []plan.Condition{
				cond(plan.FieldCategory, plan.OpEq, "shared_room"),
				cond(plan.FieldPrice, plan.OpGte, 8e5),
			},
		},
		{
			name:  "million shorthand with fraction",
			query: "phòng trọ dưới 3tr5",
			conds: []plan.Condition{
				cond(plan.FieldCategory, plan.OpEq, "boarding_room"),
				cond(plan.FieldPrice, plan.OpLt, 3.5e6),
			},
		},
		{
			name:  "shorthand range",
			query: "từ 2tr5 đến 4tr",
			conds: []plan.Condition{
				cond(plan.FieldPrice, plan.OpGte, 2.5e6),
				cond(plan.FieldPrice, plan.OpLte, 4e6),
			},
		},
		{
			name:  "nothing recognised",
			query: "hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Extract(tt.query)
			if !p[0].(plan.Filter).IsBaseline() {
				t.Fatalf("stage 0 = %v", p[0])
			}
			rest := p[1:]

			lp, _, ok := p.Location()
			if tt.location == "" && ok {
				t.Errorf("unexpected location %q", lp.Place)
			}
			if tt.location != "" {
				if !ok || lp.Place != tt.location {
					t.Errorf("location = %q, want %q", lp.Place, tt.location)
				}
				rest = rest[1:]
			}

			if len(tt.conds) == 0 {
				if len(rest) != 0 {
					t.Errorf("unexpected stages %v", rest)
				}
				return
			}
			if len(rest) != 1 {
				t.Fatalf("stages = %v", rest)
			}
			got := rest[0].(plan.Filter).Conditions
			if !reflect.DeepEqual(got, tt.conds) {
				t.Errorf("conditions =\n%+v\nwant\n%+v", got, tt.conds)
			}
		})
	}
}

func TestRuleTranslator_EmitsWireForm(t *testing.T) {
	out, err := NewRuleTranslator().Translate(context.Background(), "phòng dưới 3 triệu gần chợ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"$lt":3000000`, `"$location":"chợ"`, `"isAvailable":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}

	p, dropped, err := plan.Decode([]byte(out))
	if err != nil || len(dropped) != 0 {
		t.Fatalf("decode: %v %v", err, dropped)
	}
	if len(p) != 3 {
		t.Errorf("plan = %v", p)
	}
}
