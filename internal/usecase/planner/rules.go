package planner

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
)

// RuleTranslator extracts plans from queries with fixed Vietnamese and English phrase rules.
// It needs no network and is used when no language model is configured.
type RuleTranslator struct{}

// NewRuleTranslator creates a rule-based translator.
func NewRuleTranslator() *RuleTranslator { return &RuleTranslator{} }

// Translate implements Translator. The output is the wire form of the extracted plan.
func (RuleTranslator) Translate(_ context.Context, query string) (string, error) {
	b, err := plan.Encode(Extract(query))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type keyword struct {
	code    string
	phrases []string
}

// Ordered so that more specific phrases win ("chung cư mini" before "chung cư").
var categories = []keyword{
	{"mini_apartment", []string{"chung cư mini", "căn hộ mini", "mini apartment"}},
	{"boarding_room", []string{"phòng trọ", "nhà trọ", "boarding room", "boarding house"}},
	{"shared_room", []string{"ở ghép", "phòng ghép", "shared room", "roommate"}},
	{"house", []string{"nhà nguyên căn", "nguyên căn", "whole house", "house"}},
	{"apartment", []string{"căn hộ", "chung cư", "apartment", "condo"}},
}

var amenities = []keyword{
	{"wifi", []string{"wifi", "wi-fi", "internet"}},
	{"air_conditioner", []string{"máy lạnh", "điều hòa", "điều hoà", "air conditioner", "air conditioning", "aircon"}},
	{"parking", []string{"chỗ để xe", "bãi đỗ xe", "giữ xe", "parking"}},
	{"washing_machine", []string{"máy giặt", "washing machine"}},
	{"private_bathroom", []string{"wc riêng", "toilet riêng", "nhà vệ sinh riêng", "private bathroom"}},
	{"kitchen", []string{"bếp", "kitchen"}},
	{"elevator", []string{"thang máy", "elevator", "lift"}},
}

var (
	locationMarkers = [][]string{{"khu", "vực"}, {"gần"}, {"ở"}, {"tại"}, {"near"}, {"in"}, {"at"}}

	// Words that end a location phrase.
	locationStops = map[string]bool{
		"dưới": true, "trên": true, "từ": true, "giá": true, "có": true, "với": true, "và": true,
		"cho": true, "khoảng": true, "không": true, "tối": true, "hơn": true, "diện": true, "rộng": true,
		"under": true, "below": true, "over": true, "above": true, "between": true, "from": true,
		"with": true, "for": true, "and": true, "price": true, "less": true, "more": true, "max": true,
		"around": true, "about": true,
	}

	quantityRe = regexp.MustCompile(
		`(\d{1,3}(?:[.,]\d{3})+|\d+(?:[.,]\d+)?)\s*(triệu|tr|million|nghìn|ngàn|k|m2|m²|mét vuông|vnđ|vnd|đồng|đ|m)?`)
	rangeSepRe = regexp.MustCompile(`^\s*(?:đến|tới|-|–|to|and)\s*$`)

	ltMarkers  = []string{"dưới", "không quá", "tối đa", "under", "below", "less than", "max", "at most"}
	gtMarkers  = []string{"trên", "hơn", "over", "above", "more than"}
	gteMarkers = []string{"từ", "ít nhất", "tối thiểu", "from", "at least", "min"}
)

type quantityKind int

const (
	kindNone quantityKind = iota
	kindPrice
	kindArea
)

type quantity struct {
	start, end int
	value      float64
	kind       quantityKind
}

// Extract builds a plan from query. Conditions go into a single filter after the baseline
// and the location placeholder.
func Extract(query string) plan.Plan {
	text := strings.ToLower(strings.Join(strings.Fields(query), " "))

	var conds []plan.Condition
	masked := text

	if codes, spans := findKeyword(text, categories); len(codes) > 0 {
		conds = append(conds, plan.Condition{Field: plan.FieldCategory, Op: plan.OpEq, Value: codes[0]})
		masked = mask(masked, spans)
	}

	if codes, spans := findKeyword(text, amenities); len(codes) > 0 {
		vals := make([]any, len(codes))
		for i, c := range codes {
			vals[i] = c
		}
		conds = append(conds, plan.Condition{Field: plan.FieldAmenities, Op: plan.OpAll, Value: vals})
		masked = mask(masked, spans)
	}

	qconds, qspans := extractQuantities(text)
	conds = append(conds, qconds...)
	masked = mask(masked, qspans)

	out := plan.Plan{plan.Baseline()}
	if place := extractLocation(masked); place != "" {
		out = append(out, plan.LocationPlaceholder{Place: place})
	}
	if len(conds) > 0 {
		out = append(out, plan.Filter{Conditions: conds})
	}
	return out
}

// findKeyword returns, in list order, the codes whose phrases occur in text and the matched byte spans.
func findKeyword(text string, kws []keyword) ([]string, [][2]int) {
	var (
		codes []string
		spans [][2]int
	)
	for _, kw := range kws {
		matched := false
		for _, ph := range kw.phrases {
			for i := indexWord(text, ph, 0); i >= 0; i = indexWord(text, ph, i+len(ph)) {
				spans = append(spans, [2]int{i, i + len(ph)})
				matched = true
			}
		}
		if matched {
			codes = append(codes, kw.code)
		}
	}
	return codes, spans
}

// indexWord finds phrase in text at or after from, bounded by non-letters on both sides.
func indexWord(text, phrase string, from int) int {
	for from <= len(text) {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(phrase)
		if !letterBefore(text, i) && !letterAt(text, end) {
			return i
		}
		from = i + 1
	}
	return -1
}

func letterBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func letterAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// mask replaces spans with commas so they terminate location phrases.
func mask(text string, spans [][2]int) string {
	b := []byte(text)
	for _, sp := range spans {
		for i := sp[0]; i < sp[1] && i < len(b); i++ {
			b[i] = ','
		}
	}
	return string(b)
}

func extractQuantities(text string) ([]plan.Condition, [][2]int) {
	var qs []quantity
	for _, m := range quantityRe.FindAllStringSubmatchIndex(text, -1) {
		if letterBefore(text, m[0]) {
			continue // part of a token such as "q1"
		}
		q := quantity{start: m[0], end: m[1]}
		num, unit, frac := text[m[2]:m[3]], "", ""
		if m[4] >= 0 {
			unit = text[m[4]:m[5]]
			frac, q.end = millionFraction(text, num, unit, m[5])
			if frac == "" && letterAt(text, m[5]) {
				unit, q.end = "", m[3] // "3 trên": the letters belong to the next word
			}
		} else if letterAt(text, m[3]) {
			continue
		}
		q.value, q.kind = parseQuantity(num, unit)
		if frac != "" {
			f, _ := strconv.ParseFloat("0."+frac, 64)
			q.value += f * 1e6
		}
		qs = append(qs, q)
	}

	var (
		conds []plan.Condition
		spans [][2]int
	)
	for i := 0; i < len(qs); i++ {
		q := qs[i]
		if i+1 < len(qs) && rangeSepRe.MatchString(text[q.end:qs[i+1].start]) {
			hi := qs[i+1]
			kind := hi.kind
			if kind == kindNone {
				kind = q.kind
			}
			lo, hiVal := q.value, hi.value
			if kind == kindPrice && q.kind == kindNone {
				lo = scaleLike(q.value, hi)
			}
			if kind == kindPrice && hi.kind == kindNone {
				hiVal = scaleLike(hi.value, q)
			}
			if field := fieldFor(kind); field != "" {
				conds = append(conds,
					plan.Condition{Field: field, Op: plan.OpGte, Value: lo},
					plan.Condition{Field: field, Op: plan.OpLte, Value: hiVal},
				)
				spans = append(spans, [2]int{precedingMarkerStart(text, q.start), hi.end})
			}
			i++
			continue
		}

		field := fieldFor(q.kind)
		if field == "" {
			continue
		}
		op, markerStart := comparator(text, q.start, q.kind)
		conds = append(conds, plan.Condition{Field: field, Op: op, Value: q.value})
		spans = append(spans, [2]int{markerStart, q.end})
	}
	return conds, spans
}

// millionFraction reads the fractional digits of the "3tr5" shorthand (3.5 million) that follow
// a million unit ending at i. It returns the digits and the new end of the quantity.
func millionFraction(text, num, unit string, i int) (string, int) {
	if (unit != "tr" && unit != "triệu") || strings.ContainsAny(num, ".,") {
		return "", i
	}
	j := i
	for j < len(text) && j-i < 3 && text[j] >= '0' && text[j] <= '9' {
		j++
	}
	if j == i || letterAt(text, j) {
		return "", i
	}
	return text[i:j], j
}

func parseQuantity(num, unit string) (float64, quantityKind) {
	var v float64
	if isGrouped(num) {
		v, _ = strconv.ParseFloat(strings.NewReplacer(".", "", ",", "").Replace(num), 64)
	} else {
		v, _ = strconv.ParseFloat(strings.Replace(num, ",", ".", 1), 64)
	}

	switch unit {
	case "triệu", "tr", "million", "m":
		return v * 1e6, kindPrice
	case "nghìn", "ngàn", "k":
		return v * 1e3, kindPrice
	case "vnđ", "vnd", "đồng", "đ":
		return v, kindPrice
	case "m2", "m²", "mét vuông":
		return v, kindArea
	}
	if v >= 1000 {
		return v, kindPrice
	}
	return v, kindNone
}

// isGrouped reports whether num uses thousands separators ("3.000.000").
func isGrouped(num string) bool {
	parts := strings.FieldsFunc(num, func(r rune) bool { return r == '.' || r == ',' })
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// scaleLike applies the magnitude of the other range bound to a bare number: "từ 2 đến 4 triệu".
func scaleLike(v float64, other quantity) float64 {
	switch {
	case other.value >= 1e6 && v < 1000:
		return v * 1e6
	case other.value >= 1e3 && v < 1000:
		return v * 1e3
	}
	return v
}

func fieldFor(k quantityKind) string {
	switch k {
	case kindPrice:
		return plan.FieldPrice
	case kindArea:
		return plan.FieldArea
	default:
		return ""
	}
}

// comparator reads the words right before a quantity. Without a marker, a price is a
// budget (lte) and an area is a minimum (gte).
func comparator(text string, at int, kind quantityKind) (plan.Operator, int) {
	before := strings.TrimRight(text[:at], " ")
	for _, set := range []struct {
		op      plan.Operator
		markers []string
	}{
		{plan.OpLt, ltMarkers},
		{plan.OpGt, gtMarkers},
		{plan.OpGte, gteMarkers},
	} {
		for _, m := range set.markers {
			if strings.HasSuffix(before, m) && !letterBefore(before, len(before)-len(m)) {
				return set.op, len(before) - len(m)
			}
		}
	}
	if kind == kindArea {
		return plan.OpGte, at
	}
	return plan.OpLte, at
}

func precedingMarkerStart(text string, at int) int {
	before := strings.TrimRight(text[:at], " ")
	for _, m := range []string{"từ", "between", "from"} {
		if strings.HasSuffix(before, m) {
			return len(before) - len(m)
		}
	}
	return at
}

// extractLocation returns the phrase after the first location marker, up to a stop word
// or punctuation. Masked spans read as commas.
func extractLocation(text string) string {
	words := strings.Fields(text)
	for i := 0; i < len(words); i++ {
		n := markerAt(words, i)
		if n == 0 {
			continue
		}
		var place []string
		for _, w := range words[i+n:] {
			trimmed := strings.TrimRight(w, ",.;!?")
			if trimmed == "" || locationStops[trimmed] {
				break
			}
			place = append(place, strings.TrimLeft(trimmed, ","))
			if trimmed != w {
				break
			}
		}
		if len(place) > 0 {
			return strings.Join(place, " ")
		}
	}
	return ""
}

func markerAt(words []string, i int) int {
	for _, m := range locationMarkers {
		if i+len(m) > len(words) {
			continue
		}
		ok := true
		for j, w := range m {
			if words[i+j] != w {
				ok = false
				break
			}
		}
		if ok {
			return len(m)
		}
	}
	return 0
}
