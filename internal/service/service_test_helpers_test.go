package service

import (
	"sync"
	"testing"
	"time"

	"github.com/yuqie6/gigledger/internal/eventbus"
	"github.com/yuqie6/gigledger/internal/repository"
	"github.com/yuqie6/gigledger/internal/testutil"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(evt eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) Events() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]eventbus.Event(nil), p.events...)
}

type testEnv struct {
	store       *repository.Store
	publisher   *recordingPublisher
	progression *ProgressionService
	admin       *AdminService
	aggregator  *DailyAggregator
	dispatcher  *Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewStore(testutil.OpenTestDB(t))
	pub := &recordingPublisher{}

	progression := NewProgressionService(store, pub)
	progression.now = func() time.Time { return testNow }
	aggregator := NewDailyAggregator(store, pub)
	aggregator.now = func() time.Time { return testNow }
	admin := NewAdminService(store, pub)

	return &testEnv{
		store:       store,
		publisher:   pub,
		progression: progression,
		admin:       admin,
		aggregator:  aggregator,
		dispatcher:  NewDispatcher(store, progression, admin),
	}
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
