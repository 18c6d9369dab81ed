package whoop

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Service runs fetch cycles against the vendor API and persists the results.
// It is the only writer of the record store.
type Service struct {
	store      Store
	newSession SessionFactory
	loc        *time.Location
}

// NewService creates a Service. loc is the timezone applied to capture
// timestamps; pass time.UTC when no deployment timezone is configured.
func NewService(store Store, newSession SessionFactory, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:      store,
		newSession: newSession,
		loc:        loc,
	}
}

// CategoryResult is the outcome of one category's fetch-and-store attempt.
type CategoryResult struct {
	Category Category
	Err      error
}

// CycleReport aggregates one fetch cycle's outcomes. AuthErr is set when
// session establishment failed and no categories were attempted.
type CycleReport struct {
	StartedAt time.Time
	AuthErr   error
	Results   []CategoryResult
}

// Succeeded returns the number of categories stored this cycle.
func (r CycleReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// RunCycle runs one full fetch cycle: open an authenticated session, then for
// each category in order fetch the trailing-window collection and append it to
// the store. Category failures are isolated; a failure in one never stops the
// rest. The cycle never propagates an error to its caller.
func (s *Service) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{StartedAt: time.Now().In(s.loc)}
	log.Info().Time("started_at", report.StartedAt).Msg("starting WHOOP fetch cycle")

	session, err := s.newSession(ctx)
	if err != nil {
		report.AuthErr = err
		log.Error().Err(err).Msg("fetch cycle aborted: could not establish session")
		return report
	}
	defer session.Close()

	for _, category := range Categories {
		err := s.fetchAndStore(ctx, session, category)
		if err != nil {
			log.Warn().Err(err).Str("category", string(category)).Msg("category fetch failed, continuing cycle")
		}
		report.Results = append(report.Results, CategoryResult{Category: category, Err: err})
	}

	log.Info().
		Int("succeeded", report.Succeeded()).
		Int("attempted", len(report.Results)).
		Msg("fetch cycle completed")
	return report
}

func (s *Service) fetchAndStore(ctx context.Context, session Session, category Category) error {
	payload, err := session.GetCollection(ctx, category, time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("fetch %s collection: %w", category, err)
	}
	if err := s.store.Append(ctx, category, payload, time.Now().In(s.loc)); err != nil {
		return fmt.Errorf("store %s collection: %w", category, err)
	}
	return nil
}

// Latest delegates to the underlying store.
func (s *Service) Latest(ctx context.Context, category Category, limit int) ([]Record, error) {
	return s.store.Latest(ctx, category, limit)
}

// Profile fetches the user profile over a short-lived session.
func (s *Service) Profile(ctx context.Context) (json.RawMessage, error) {
	session, err := s.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	return session.GetUserProfile(ctx)
}
