package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"cricketcore/internal/adapters/httpapi"
	"cricketcore/internal/archive"
	"cricketcore/internal/archive/blob"
	"cricketcore/internal/archive/fs"
	"cricketcore/internal/archive/memory"
	"cricketcore/internal/core"
	"cricketcore/pkg/domain"
)

// TestIntegrationSmoke plays a one-over match against every in-process
// storage and archive combination and reads the result back through the
// HTTP API.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	storeVariants := []struct {
		name string
		open func(t *testing.T) domain.PersistentStore
	}{
		{
			name: "memory-store",
			open: func(t *testing.T) domain.PersistentStore {
				s, err := core.OpenPersistentStore(core.StorageOptions{Driver: core.StorageMemory}, core.NewDefaultRulesEngine())
				if err != nil {
					t.Fatalf("memory store: %v", err)
				}
				return s
			},
		},
		{
			name: "sqlite-store",
			open: func(t *testing.T) domain.PersistentStore {
				path := filepath.Join(t.TempDir(), "cricketcore.db")
				s, err := core.OpenPersistentStore(core.StorageOptions{Driver: core.StorageSQLite, SQLitePath: path}, core.NewDefaultRulesEngine())
				if err != nil {
					t.Fatalf("sqlite store: %v", err)
				}
				t.Cleanup(func() { _ = core.CloseStore(s) })
				return s
			},
		},
	}

	blobVariants := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{name: "memory-archive", open: func(*testing.T) blob.Store { return memory.New() }},
		{
			name: "fs-archive",
			open: func(t *testing.T) blob.Store {
				s, err := fs.New(t.TempDir())
				if err != nil {
					t.Fatalf("fs archive: %v", err)
				}
				return s
			},
		},
	}

	for _, sv := range storeVariants {
		for _, bv := range blobVariants {
			t.Run(sv.name+"/"+bv.name, func(t *testing.T) {
				archiver := archive.NewArchiver(bv.open(t))
				svc := core.NewService(sv.open(t), core.WithArchiver(archiver))
				id := playOneOver(ctx, t, svc)

				card, err := archiver.Latest(ctx, id)
				if err != nil {
					t.Fatalf("latest: %v", err)
				}
				if card.Result != "AUS won" {
					t.Fatalf("unexpected archived result %q", card.Result)
				}

				srv := httptest.NewServer(httpapi.NewHandler(svc, httpapi.WithArchiver(archiver)).Router())
				defer srv.Close()
				for _, path := range []string{"/api/v1/matches/" + id + "/scorecard", "/api/v1/matches/" + id + "/archive/latest"} {
					resp, err := http.Get(srv.URL + path)
					if err != nil {
						t.Fatalf("GET %s: %v", path, err)
					}
					_ = resp.Body.Close()
					if resp.StatusCode != http.StatusOK {
						t.Fatalf("GET %s: status %d", path, resp.StatusCode)
					}
				}
			})
		}
	}
}

// playOneOver bowls IND out for 0 and lets AUS win off the first ball.
func playOneOver(ctx context.Context, t *testing.T, svc *core.Service) string {
	t.Helper()
	for _, team := range []string{"IND", "AUS"} {
		if _, _, err := svc.CreateTeam(ctx, team, ""); err != nil {
			t.Fatalf("create team: %v", err)
		}
	}
	for team, names := range map[string][]string{"IND": {"Rohit", "Gill"}, "AUS": {"Head", "Smith"}} {
		for _, name := range names {
			if _, _, err := svc.AddPlayer(ctx, team, name); err != nil {
				t.Fatalf("add player: %v", err)
			}
		}
	}
	m, _, err := svc.ScheduleMatch(ctx, "IND", "AUS", 1)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := svc.StartMatch(ctx, m.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustState := func(_ core.MatchState, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("action: %v", err)
		}
	}
	mustBall := func(d domain.Delivery) core.DeliveryOutcome {
		t.Helper()
		out, err := svc.ApplyDelivery(ctx, m.ID, d)
		if err != nil {
			t.Fatalf("delivery: %v", err)
		}
		return out
	}
	mustState(svc.AssignBowler(ctx, m.ID, "Head"))
	if out := mustBall(domain.Bowled()); !out.InningsClosed {
		t.Fatalf("expected IND all out")
	}
	mustState(svc.AssignBowler(ctx, m.ID, "Rohit"))
	out := mustBall(domain.RunsOffBat(4))
	if !out.MatchCompleted || !strings.HasPrefix(out.State.Match.Winner, "AUS") {
		t.Fatalf("expected AUS to win, got %+v", out.State.Match)
	}
	return m.ID
}
