// Package planner turns natural-language search queries into validated query plans.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
	"github.com/kailas-cloud/rentsearch/internal/logger"
	"github.com/kailas-cloud/rentsearch/internal/metrics"
)

// Fallback reasons, used as metric labels.
const (
	ReasonTranslatorError = "translator_error"
	ReasonInvalidJSON     = "invalid_json"
	ReasonNotArray        = "not_array"
	ReasonEmpty           = "empty"
	ReasonMalformedStage  = "malformed_stage"
	ReasonNoUsableStages  = "no_usable_stages"
)

// Service produces plans. It never fails: any translation problem yields the fallback plan.
type Service struct {
	translator Translator
	logger     *zap.Logger
}

// New creates a planner over translator.
func New(translator Translator, logger *zap.Logger) *Service {
	return &Service{translator: translator, logger: logger}
}

// GeneratePlan translates query into a plan that starts with the availability baseline
// and carries at most one location placeholder.
func (s *Service) GeneratePlan(ctx context.Context, query string) plan.Plan {
	log := logger.FromContextOr(ctx, s.logger)

	raw, err := s.translator.Translate(ctx, query)
	if err != nil {
		return s.fallback(log, ReasonTranslatorError, err)
	}

	decoded, dropped, err := plan.Decode(Unwrap(raw))
	if err != nil {
		return s.fallback(log, decodeReason(err), err)
	}
	p, rejected := Normalize(decoded)
	for _, d := range append(dropped, rejected...) {
		log.Warn("Dropped plan element", zap.String("element", d.String()))
	}
	if len(decoded) == len(rejected) {
		return s.fallback(log, ReasonNoUsableStages, nil)
	}

	log.Debug("Generated plan", zap.String("query", query), zap.Stringer("plan", p))
	return p
}

func (s *Service) fallback(log *zap.Logger, reason string, err error) plan.Plan {
	metrics.PlannerFallbackTotal.WithLabelValues(reason).Inc()
	log.Warn("Using fallback plan", zap.String("reason", reason), zap.Error(err))
	return plan.Fallback()
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, plan.ErrNotJSON):
		return ReasonInvalidJSON
	case errors.Is(err, plan.ErrNotArray):
		return ReasonNotArray
	case errors.Is(err, plan.ErrEmpty):
		return ReasonEmpty
	default:
		return ReasonMalformedStage
	}
}

// Unwrap strips a markdown code fence and an enclosing {"pipeline": [...]} object.
func Unwrap(raw string) []byte {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:] // language tag
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}

	if strings.HasPrefix(s, "{") {
		var wrapper map[string]json.RawMessage
		if json.Unmarshal([]byte(s), &wrapper) == nil {
			if inner, ok := wrapper["pipeline"]; ok && len(wrapper) == 1 {
				return inner
			}
		}
	}
	return []byte(s)
}

// Normalize puts exactly one baseline filter first and keeps only the first location placeholder.
// Proximity stages are rejected: coordinates come from geocoding the placeholder, never from the translator.
func Normalize(p plan.Plan) (plan.Plan, []plan.Dropped) {
	out := plan.Plan{plan.Baseline()}
	var rejected []plan.Dropped
	seenLocation := false
	for _, st := range p {
		switch v := st.(type) {
		case plan.Filter:
			if v.IsBaseline() {
				continue
			}
		case plan.LocationPlaceholder:
			if seenLocation {
				continue
			}
			seenLocation = true
		case plan.Proximity:
			rejected = append(rejected, plan.Dropped{Stage: v.Name(), Reason: "proximity is produced by the rewriter"})
			continue
		}
		out = append(out, st)
	}
	return out, rejected
}
