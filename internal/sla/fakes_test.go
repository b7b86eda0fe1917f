package sla

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type fakeRules struct {
	rules []domain.SLARule
	err   error
	calls int
}

func (f *fakeRules) ListActiveRules(context.Context) ([]domain.SLARule, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rules, nil
}

type fakeCategories struct {
	byID  map[string]domain.Category
	err   error
	calls int
}

func (f *fakeCategories) FindByID(_ context.Context, id string) (*domain.Category, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type fakePriorities struct {
	byCode map[domain.Priority]domain.PriorityConfig
	err    error
	calls  int
}

func (f *fakePriorities) FindByCode(_ context.Context, code domain.Priority) (*domain.PriorityConfig, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byCode[code]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type recordingObserver struct {
	mu           sync.Mutex
	outcomes     map[Status]int
	failures     map[string]int
	inconsistent int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{outcomes: map[Status]int{}, failures: map[string]int{}}
}

func (o *recordingObserver) ObserveOutcome(status Status, _ Tier) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[status]++
}

func (o *recordingObserver) ObserveFailure(source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[source]++
}

func (o *recordingObserver) ObserveInconsistentTicket() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inconsistent++
}

var baseNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func hoursAgo(h float64) time.Time {
	return baseNow.Add(-time.Duration(h * float64(time.Hour)))
}

func ptr[T any](v T) *T { return &v }
