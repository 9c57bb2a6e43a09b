package core

import (
	"context"
	"reflect"
	"testing"

	"cricketcore/internal/overs"
	"cricketcore/pkg/domain"
)

func TestScorecardFirstInnings(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := startMatch(t, svc, 20, indSquad, ausSquad)

	for _, d := range []domain.Delivery{
		domain.RunsOffBat(4),
		domain.Wide(1),
		domain.Byes(2),
		domain.Bowled(),
		domain.DotBall(),
		domain.DotBall(),
		domain.DotBall(),
	} {
		bowl(t, svc, id, d)
	}
	if _, err := svc.AssignBowler(ctx, id, "Starc"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	bowl(t, svc, id, domain.DotBall())

	card, err := svc.Scorecard(ctx, id)
	if err != nil {
		t.Fatalf("scorecard: %v", err)
	}
	if card.Number != 1 || card.Result != "" || card.BowlingTeam != "AUS" {
		t.Fatalf("unexpected header %+v", card)
	}
	if len(card.Innings) != 2 || card.Innings[0].Team != "IND" || card.Innings[1].Team != "AUS" {
		t.Fatalf("unexpected innings order %+v", card.Innings)
	}
	ind := card.Innings[0]
	if ind.ScoreLine != "7/1 (1.1)" || ind.Extras != 3 {
		t.Fatalf("unexpected IND innings %+v", ind)
	}
	lines := make(map[string]BattingLine)
	for _, l := range ind.Batting {
		lines[l.Name] = l
	}
	if rohit := lines["Rohit"]; rohit.Runs != 4 || rohit.Fours != 1 || rohit.AtCrease || rohit.Status == domain.NotOutStatus {
		t.Fatalf("unexpected Rohit line %+v", rohit)
	}
	if !lines["Kohli"].AtCrease || !lines["Gill"].AtCrease || lines["Iyer"].AtCrease {
		t.Fatalf("crease markers wrong %+v", lines)
	}
	if card.Innings[1].ScoreLine != "0/0 (0.0)" || card.Innings[1].RunRate != overs.Placeholder {
		t.Fatalf("unexpected AUS innings %+v", card.Innings[1])
	}

	if len(card.Bowling) != 2 {
		t.Fatalf("expected two bowlers, got %+v", card.Bowling)
	}
	cummins := card.Bowling[0]
	if cummins.Name != "Cummins" || cummins.Wickets != 1 || cummins.Runs != 5 || cummins.Overs != "1.0" || cummins.Economy != "5.00" {
		t.Fatalf("unexpected Cummins figures %+v", cummins)
	}
	if card.Bowling[1].Name != "Starc" || card.Bowling[1].Overs != "0.1" {
		t.Fatalf("unexpected Starc figures %+v", card.Bowling[1])
	}
	if len(card.Commentary) != 8 {
		t.Fatalf("expected 8 commentary lines, got %d", len(card.Commentary))
	}
	if _, err := svc.Scorecard(ctx, "missing"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestBowlingCardOrdering(t *testing.T) {
	c := newInningsContext()
	c.BowlerOrder = []string{"A", "B", "C", "D", "E"}
	c.Figures = map[string]BowlingFigures{
		"A": {Balls: 12, Runs: 20, Wickets: 0},
		"B": {Balls: 12, Runs: 30, Wickets: 2},
		"C": {Balls: 6, Runs: 20, Wickets: 0},
		"D": {Balls: 12, Runs: 10, Wickets: 2},
		"E": {Balls: 6, Runs: 20, Wickets: 0},
	}
	var got []string
	for _, l := range bowlingCard(c) {
		got = append(got, l.Name)
	}
	want := []string{"D", "B", "C", "E", "A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestResultText(t *testing.T) {
	chase := domain.Match{
		TeamA:       "IND",
		TeamB:       "AUS",
		Status:      domain.MatchLive,
		BattingTeam: "AUS",
		Target:      50,
		OversLimit:  5,
		ScoreB:      domain.Score{Runs: 20, Overs: 3.2},
	}
	unlimited := chase
	unlimited.OversLimit = 0

	cases := []struct {
		name string
		m    domain.Match
		want string
	}{
		{"drawn", domain.Match{Status: domain.MatchCompleted, Drawn: true}, "Match drawn"},
		{"winner", domain.Match{Status: domain.MatchCompleted, Winner: "IND"}, "IND won"},
		{"chasing", chase, "AUS need 30 runs from 10 balls"},
		{"chasing unlimited", unlimited, "AUS need 30 runs"},
		{"first innings", domain.Match{Status: domain.MatchLive, BattingTeam: "IND"}, ""},
		{"scheduled", domain.Match{Status: domain.MatchScheduled}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resultText(tc.m); got != tc.want {
				t.Fatalf("resultText = %q, want %q", got, tc.want)
			}
		})
	}
}
