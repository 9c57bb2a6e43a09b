package domain

import "testing"

func TestPlayerLedgerTransitions(t *testing.T) {
	p := Player{Name: "Rohit", Team: "IND"}
	p.CreditRuns(4)
	p.CreditBall()
	p.CreditRuns(6)
	p.CreditBall()
	p.CreditRuns(5)
	p.CreditBall()
	p.CreditRuns(0)
	if p.Runs != 15 || p.Balls != 3 || p.Fours != 1 || p.Sixes != 1 {
		t.Fatalf("unexpected ledger row %+v", p)
	}
	if p.Status() != NotOutStatus {
		t.Fatalf("expected not out, got %q", p.Status())
	}
	p.MarkDismissed(DismissalBowled.Code())
	if p.Status() != "Out (B)" {
		t.Fatalf("unexpected status %q", p.Status())
	}
	p.ResetStats()
	if p.Runs != 0 || p.Balls != 0 || p.Fours != 0 || p.Sixes != 0 || p.Out || p.OutReason != "" {
		t.Fatalf("expected reset row, got %+v", p)
	}
}

func TestPlayerStatusWithoutCode(t *testing.T) {
	p := Player{}
	p.MarkDismissed("")
	if p.Status() != "Out" {
		t.Fatalf("expected bare Out, got %q", p.Status())
	}
	if (Player{Runs: 10, Balls: 8}).StrikeRate() != 125 {
		t.Fatalf("strike rate mismatch")
	}
	if (Player{}).StrikeRate() != 0 {
		t.Fatalf("strike rate should be zero before first ball")
	}
}

func TestMatchScoreHelpers(t *testing.T) {
	m := Match{TeamA: "IND", TeamB: "AUS", BattingTeam: "AUS"}
	if m.FieldingTeam() != "IND" || m.Opponent("IND") != "AUS" {
		t.Fatalf("unexpected sides")
	}
	if m.InningsStarted() {
		t.Fatalf("fresh match should not have started")
	}
	m.SetScore("AUS", Score{Runs: 12, Wickets: 1, Overs: 2.3})
	if m.BattingScore().Runs != 12 || m.ScoreA.Runs != 0 {
		t.Fatalf("score assigned to wrong side: %+v", m)
	}
	if !m.InningsStarted() {
		t.Fatalf("expected started innings")
	}
	if got := m.BattingScore().Line(); got != "12/1 (2.3)" {
		t.Fatalf("score line = %q", got)
	}
	if !m.HasTeam("IND") || m.HasTeam("") || m.HasTeam("ENG") {
		t.Fatalf("HasTeam mismatch")
	}
	m.CurrentBowler = "Bumrah"
	m.Complete("AUS")
	if m.Status != MatchCompleted || m.Winner != "AUS" || m.CurrentBowler != "" {
		t.Fatalf("unexpected completion %+v", m)
	}
	m.ResetScores("IND")
	if m.BattingTeam != "IND" || m.Winner != "" || m.InningsStarted() {
		t.Fatalf("unexpected reset %+v", m)
	}
}
