package core

import (
	"context"
	"testing"

	"cricketcore/internal/infra/persistence/memory"
	"cricketcore/pkg/domain"
)

func TestResetForNewMatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(NewDefaultRulesEngine())
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, team := range []string{"IND", "AUS"} {
			if _, err := tx.CreateTeam(domain.Team{Name: team}); err != nil {
				return err
			}
		}
		for _, p := range []domain.Player{
			{Name: "Rohit", Team: "IND", Runs: 57, Balls: 40, Fours: 6, Sixes: 2, Out: true, OutReason: "C"},
			{Name: "Gill", Team: "IND", Runs: 12, Balls: 9},
			{Name: "Head", Team: "AUS", Runs: 30, Balls: 20, Fours: 3},
		} {
			if _, err := tx.CreatePlayer(p); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return ResetForNewMatch(tx, "IND")
	}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, p := range store.ListTeamPlayers("IND") {
		if p.Runs != 0 || p.Balls != 0 || p.Fours != 0 || p.Sixes != 0 || p.Out || p.OutReason != "" {
			t.Fatalf("%s not reset: %+v", p.Name, p)
		}
	}
	if head := store.ListTeamPlayers("AUS")[0]; head.Runs != 30 {
		t.Fatalf("other roster must be untouched: %+v", head)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return ResetForNewMatch(tx, "NZ")
	}); err != nil {
		t.Fatalf("empty roster reset should be a no-op: %v", err)
	}
}
