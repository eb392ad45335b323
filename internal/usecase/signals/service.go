// Package signals records click events into the preference store and reads them back.
package signals

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/logger"
	"github.com/kailas-cloud/rentsearch/internal/metrics"
)

// DefaultPopularLimit caps Popular when no limit is given.
const DefaultPopularLimit = 10

// Service records and reads click signals.
type Service struct {
	store  SignalStore
	index  ListingIndex
	logger *zap.Logger
}

// New creates a signal service. index may be nil, which disables enrichment.
func New(store SignalStore, index ListingIndex, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, index: index, logger: logger}
}

// RecordClick applies a click event. Invalid events are ignored without touching the store.
// Each effect is attempted independently; failures are logged and counted.
func (s *Service) RecordClick(ctx context.Context, ev ClickEvent) ClickOutcome {
	log := logger.FromContextOr(ctx, s.logger)

	if reason := validateEvent(&ev); reason != "" {
		metrics.ClickSignalsTotal.WithLabelValues(StatusIgnored).Inc()
		log.Debug("Click ignored", zap.String("reason", reason))
		return Ignored(reason)
	}

	userID := ev.UserID.String()
	amenities := cleanAmenities(ev.Amenities)
	roomID := ev.RoomID.String()

	var resolvedRoom string
	if len(amenities) == 0 || roomID == "" {
		sig, ok := s.enrich(ctx, log, ev)
		if ok {
			resolvedRoom = sig.RoomID
			if len(amenities) == 0 {
				amenities = cleanAmenities(sig.Amenities)
			}
		}
	}

	trackingID, pool := trackingTarget(resolvedRoom, roomID, ev.PostID.String())

	if err := s.store.PushHistory(ctx, userID, trackingID); err != nil {
		s.effectFailed(log, "history", err)
	}
	if err := s.store.IncrementPopularity(ctx, pool, trackingID); err != nil {
		s.effectFailed(log, "popularity", err)
	}
	if len(amenities) > 0 {
		if err := s.store.IncrementAmenities(ctx, userID, amenities); err != nil {
			s.effectFailed(log, "amenities", err)
		}
	}

	metrics.ClickSignalsTotal.WithLabelValues(StatusOK).Inc()
	return ClickOutcome{Status: StatusOK}
}

// enrich looks up the listing by room id when supplied, else by post id.
func (s *Service) enrich(ctx context.Context, log *zap.Logger, ev ClickEvent) (domain.ListingSignals, bool) {
	if s.index == nil {
		return domain.ListingSignals{}, false
	}

	var (
		sig domain.ListingSignals
		err error
	)
	if room := ev.RoomID.String(); room != "" {
		sig, err = s.index.LookupByRoom(ctx, room)
	} else {
		sig, err = s.index.LookupByPost(ctx, ev.PostID.String())
	}
	if err != nil {
		metrics.SignalWriteErrorsTotal.WithLabelValues("enrich").Inc()
		log.Warn("Click enrichment failed",
			zap.String("room_id", ev.RoomID.String()),
			zap.String("post_id", ev.PostID.String()),
			zap.Error(err))
		return domain.ListingSignals{}, false
	}
	return sig, true
}

func (s *Service) effectFailed(log *zap.Logger, effect string, err error) {
	metrics.SignalWriteErrorsTotal.WithLabelValues(effect).Inc()
	log.Warn("Click effect failed", zap.String("effect", effect), zap.Error(err))
}

// trackingTarget picks resolved room, then supplied room, then post.
func trackingTarget(resolvedRoom, suppliedRoom, postID string) (string, domain.Pool) {
	switch {
	case resolvedRoom != "":
		return resolvedRoom, domain.PoolRoom
	case suppliedRoom != "":
		return suppliedRoom, domain.PoolRoom
	default:
		return postID, domain.PoolPost
	}
}

func cleanAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// RecentInteractions returns the user's most recent tracking ids, newest first.
func (s *Service) RecentInteractions(ctx context.Context, userID string, limit int) ([]string, error) {
	items, err := s.store.History(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}
	return items, nil
}

// Preferences returns the user's criterion and amenity counters.
func (s *Service) Preferences(ctx context.Context, userID string) (map[string]int64, error) {
	prefs, err := s.store.Preferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("preferences: %w", err)
	}
	return prefs, nil
}

// Popular returns the most clicked listings of a pool.
func (s *Service) Popular(ctx context.Context, pool domain.Pool, limit int) ([]domain.Counter, error) {
	if !pool.Valid() {
		return nil, fmt.Errorf("%w: unknown pool %q", domain.ErrInvalidPool, pool)
	}
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	top, err := s.store.Popular(ctx, pool, limit)
	if err != nil {
		return nil, fmt.Errorf("popular: %w", err)
	}
	return top, nil
}
