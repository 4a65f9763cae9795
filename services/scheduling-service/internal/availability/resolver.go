package availability

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

// RuleSource is the read side the resolver needs from storage.
type RuleSource interface {
	Host(ctx context.Context, hostID string) (model.Host, error)
	RulesForDay(ctx context.Context, hostID string, day time.Weekday) ([]model.WeeklyRule, error)
}

// Resolver turns a host's weekly rules into candidate slots for one date.
// Candidates are re-derived on every call.
type Resolver struct {
	src RuleSource
}

func NewResolver(src RuleSource) *Resolver {
	return &Resolver{src: src}
}

// CandidateSlots returns every tile of every rule for date's weekday, in rule
// order and without de-duplication. Unknown hosts and past dates yield nothing.
func (r *Resolver) CandidateSlots(ctx context.Context, hostID string, date model.Date, durationMinutes int, now time.Time) ([]Slot, error) {
	host, err := r.src.Host(ctx, hostID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load host: %w", err)
	}
	loc, err := host.Location()
	if err != nil {
		return nil, err
	}
	if IsPastDate(date, now, loc) {
		return nil, nil
	}

	rules, err := r.src.RulesForDay(ctx, hostID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	var out []Slot
	for _, rule := range rules {
		out = slices.AppendSeq(out, GenerateSlots(date, rule.Start, rule.End, durationMinutes, loc))
	}
	return out, nil
}
