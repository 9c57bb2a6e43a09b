package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"cricketcore/pkg/domain"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var (
	indSquad = []string{"Rohit", "Gill", "Kohli", "Iyer"}
	ausSquad = []string{"Cummins", "Starc", "Hazlewood", "Lyon"}
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return NewInMemoryService(NewDefaultRulesEngine(), append([]Option{WithClock(newTestClock())}, opts...)...)
}

func seedTeams(t *testing.T, svc *Service, ind, aus []string) {
	t.Helper()
	ctx := context.Background()
	for team, squad := range map[string][]string{"IND": ind, "AUS": aus} {
		if _, _, err := svc.CreateTeam(ctx, team, team[:2]); err != nil {
			t.Fatalf("create team %s: %v", team, err)
		}
		for _, name := range squad {
			if _, _, err := svc.AddPlayer(ctx, team, name); err != nil {
				t.Fatalf("add player %s: %v", name, err)
			}
		}
	}
}

// startMatch seeds both squads, starts IND v AUS with IND batting and
// assigns the first AUS bowler.
func startMatch(t *testing.T, svc *Service, oversLimit int, ind, aus []string) string {
	t.Helper()
	ctx := context.Background()
	seedTeams(t, svc, ind, aus)
	m, _, err := svc.ScheduleMatch(ctx, "IND", "AUS", oversLimit)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := svc.StartMatch(ctx, m.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.AssignBowler(ctx, m.ID, aus[0]); err != nil {
		t.Fatalf("assign bowler: %v", err)
	}
	return m.ID
}

// bowl applies d, assigning the fielding side's first player when the match
// is waiting for a bowler.
func bowl(t *testing.T, svc *Service, matchID string, d domain.Delivery) DeliveryOutcome {
	t.Helper()
	ctx := context.Background()
	st, err := svc.MatchState(ctx, matchID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.AwaitingBowler {
		roster := svc.Roster(ctx, st.Match.FieldingTeam())
		if _, err := svc.AssignBowler(ctx, matchID, roster[0].Name); err != nil {
			t.Fatalf("assign bowler: %v", err)
		}
	}
	out, err := svc.ApplyDelivery(ctx, matchID, d)
	if err != nil {
		t.Fatalf("apply %+v: %v", d, err)
	}
	return out
}

func bowlMany(t *testing.T, svc *Service, matchID string, d domain.Delivery, n int) DeliveryOutcome {
	t.Helper()
	var out DeliveryOutcome
	for i := 0; i < n; i++ {
		out = bowl(t, svc, matchID, d)
	}
	return out
}

func player(t *testing.T, svc *Service, team, name string) domain.Player {
	t.Helper()
	p, ok := findRosterPlayer(svc.Roster(context.Background(), team), name)
	if !ok {
		t.Fatalf("player %s/%s not found", team, name)
	}
	return p
}

func hasNotification(notes []Notification, msg string) bool {
	for _, n := range notes {
		if n.Message == msg {
			return true
		}
	}
	return false
}

func expectRejection(t *testing.T, err error, reason RejectReason) {
	t.Helper()
	if !IsRejection(err, reason) {
		t.Fatalf("expected rejection %s, got %v", reason, err)
	}
}
