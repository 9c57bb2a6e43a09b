package core

import (
	"context"
	"testing"

	"cricketcore/pkg/domain"
)

func TestDeliveryCreditsStrikerTeamAndBowler(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad, ausSquad)

	out := bowl(t, svc, id, domain.RunsOffBat(4))
	rohit := player(t, svc, "IND", "Rohit")
	if rohit.Runs != 4 || rohit.Balls != 1 || rohit.Fours != 1 || rohit.Sixes != 0 {
		t.Fatalf("unexpected striker line %+v", rohit)
	}
	score := out.State.Match.ScoreA
	if score.Runs != 4 || score.Wickets != 0 || score.Overs != 0.1 {
		t.Fatalf("unexpected team score %+v", score)
	}
	fig := out.State.Figures["Cummins"]
	if fig.Runs != 4 || fig.Balls != 1 || fig.Wickets != 0 {
		t.Fatalf("unexpected bowler figures %+v", fig)
	}
	if out.State.Striker != "Rohit" || out.State.NonStriker != "Gill" {
		t.Fatalf("even runs must not rotate strike: %s/%s", out.State.Striker, out.State.NonStriker)
	}
	if len(out.State.Commentary) != 1 || out.State.Commentary[0] != "Rohit → 4" {
		t.Fatalf("unexpected commentary %v", out.State.Commentary)
	}
	if out.State.UndoDepth != 1 {
		t.Fatalf("expected one undo snapshot, got %d", out.State.UndoDepth)
	}
}

func TestBoundaryCounting(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad, ausSquad)
	bowl(t, svc, id, domain.RunsOffBat(6))
	bowl(t, svc, id, domain.RunsOffBat(4))
	bowl(t, svc, id, domain.RunsOffBat(2))
	rohit := player(t, svc, "IND", "Rohit")
	if rohit.Fours != 1 || rohit.Sixes != 1 || rohit.Runs != 12 || rohit.Balls != 3 {
		t.Fatalf("unexpected boundary counts %+v", rohit)
	}
}

func TestStrikeRotation(t *testing.T) {
	cases := []struct {
		name        string
		dots        int
		last        domain.Delivery
		wantStriker string
	}{
		{"single mid over", 0, domain.RunsOffBat(1), "Gill"},
		{"three mid over", 0, domain.RunsOffBat(3), "Gill"},
		{"two mid over", 0, domain.RunsOffBat(2), "Rohit"},
		{"dot ends over", 5, domain.DotBall(), "Gill"},
		{"single ends over", 5, domain.RunsOffBat(1), "Rohit"},
		{"wide keeps strike", 0, domain.Wide(3), "Rohit"},
		{"byes keep strike", 0, domain.Byes(1), "Rohit"},
		{"no ball single crosses", 0, domain.NoBall(1, true), "Gill"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t)
			id := startMatch(t, svc, 20, indSquad, ausSquad)
			bowlMany(t, svc, id, domain.DotBall(), tc.dots)
			out := bowl(t, svc, id, tc.last)
			if out.State.Striker != tc.wantStriker {
				t.Fatalf("striker = %s, want %s", out.State.Striker, tc.wantStriker)
			}
		})
	}
}

func TestOverCompletesOnSixthLegalBall(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad, ausSquad)
	ctx := context.Background()

	bowlMany(t, svc, id, domain.DotBall(), 5)
	out := bowl(t, svc, id, domain.Wide(1))
	if out.OverCompleted || out.State.Match.ScoreA.Overs != 0.5 {
		t.Fatalf("wide must not count as a legal ball: %+v", out.State.Match.ScoreA)
	}
	out = bowl(t, svc, id, domain.DotBall())
	if !out.OverCompleted || out.State.Match.ScoreA.Overs != 1.0 {
		t.Fatalf("expected over to complete at 1.0, got %+v", out.State.Match.ScoreA)
	}
	if !out.State.AwaitingBowler || out.State.Bowler != "" || out.State.Match.CurrentBowler != "" {
		t.Fatalf("expected bowler to be cleared: %+v", out.State)
	}
	if !hasNotification(out.Notifications, "Over complete! IND 1/0 after 1.0 overs. Assign a new bowler.") {
		t.Fatalf("missing over notification: %+v", out.Notifications)
	}
	if fig := out.State.Figures["Cummins"]; fig.Balls != 6 || fig.Runs != 1 || fig.Overs() != "1.0" {
		t.Fatalf("unexpected figures %+v", fig)
	}

	_, err := svc.ApplyDelivery(ctx, id, domain.DotBall())
	expectRejection(t, err, ReasonAwaitingBowler)
	if _, err := svc.AssignBowler(ctx, id, "Starc"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	out = bowl(t, svc, id, domain.DotBall())
	if out.State.Match.ScoreA.Overs != 1.1 || out.State.Figures["Starc"].Balls != 1 {
		t.Fatalf("unexpected state after new over %+v", out.State)
	}
}

func TestExtrasAndByes(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad, ausSquad)

	out := bowl(t, svc, id, domain.Wide(1))
	rohit := player(t, svc, "IND", "Rohit")
	if rohit.Balls != 0 || rohit.Runs != 0 {
		t.Fatalf("wide must not touch the striker: %+v", rohit)
	}
	if fig := out.State.Figures["Cummins"]; fig.Runs != 1 || fig.Balls != 0 {
		t.Fatalf("wide is charged to the bowler without a ball: %+v", fig)
	}

	out = bowl(t, svc, id, domain.Byes(2))
	rohit = player(t, svc, "IND", "Rohit")
	if rohit.Balls != 1 || rohit.Runs != 0 {
		t.Fatalf("byes count a ball faced only: %+v", rohit)
	}
	if fig := out.State.Figures["Cummins"]; fig.Runs != 1 || fig.Balls != 1 {
		t.Fatalf("byes are not charged to the bowler: %+v", fig)
	}
	if out.State.Match.ScoreA.Runs != 3 {
		t.Fatalf("team total = %d, want 3", out.State.Match.ScoreA.Runs)
	}

	nb, err := domain.NoBallFromPreset(domain.NoBallBoundary)
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	out = bowl(t, svc, id, nb)
	rohit = player(t, svc, "IND", "Rohit")
	if rohit.Runs != 4 || rohit.Fours != 1 || rohit.Balls != 1 {
		t.Fatalf("no-ball boundary credits runs without a ball: %+v", rohit)
	}
	if out.State.Match.ScoreA.Runs != 8 || out.State.Match.ScoreA.Overs != 0.1 {
		t.Fatalf("unexpected score %+v", out.State.Match.ScoreA)
	}
	if fig := out.State.Figures["Cummins"]; fig.Runs != 6 {
		t.Fatalf("no-ball is charged in full: %+v", fig)
	}
}

func TestWicketDefaultsToStrikerAndSeatsNextBatsman(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad, ausSquad)

	out := bowl(t, svc, id, domain.Bowled())
	rohit := player(t, svc, "IND", "Rohit")
	if !rohit.Out || rohit.Status() != "Out (B)" || rohit.Balls != 1 {
		t.Fatalf("unexpected dismissed line %+v", rohit)
	}
	if out.State.Striker != "Kohli" || out.State.NonStriker != "Gill" {
		t.Fatalf("expected Kohli to replace the striker, got %s/%s", out.State.Striker, out.State.NonStriker)
	}
	if out.State.Match.ScoreA.Wickets != 1 || out.State.Figures["Cummins"].Wickets != 1 {
		t.Fatalf("wicket not counted: %+v %+v", out.State.Match.ScoreA, out.State.Figures)
	}
	if !hasNotification(out.Notifications, "Bowled! Rohit departs for 0 (1) • SR 0.0") {
		t.Fatalf("missing wicket notification: %+v", out.Notifications)
	}
	if out.State.Commentary[0] != "Rohit → 0 W [Bowled]" {
		t.Fatalf("unexpected commentary %q", out.State.Commentary[0])
	}
}

func TestRunOutOfNonStrikerAfterCrossing(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad, ausSquad)

	out := bowl(t, svc, id, domain.RunOut("Gill", 1))
	if rohit := player(t, svc, "IND", "Rohit"); rohit.Runs != 1 || rohit.Out {
		t.Fatalf("striker keeps the completed run: %+v", rohit)
	}
	if gill := player(t, svc, "IND", "Gill"); !gill.Out || gill.OutReason != "R" {
		t.Fatalf("expected Gill run out: %+v", gill)
	}
	// The single crossed the pair, so Gill was dismissed from the striker's role.
	if out.State.Striker != "Kohli" || out.State.NonStriker != "Rohit" {
		t.Fatalf("unexpected pair %s/%s", out.State.Striker, out.State.NonStriker)
	}
	if fig := out.State.Figures["Cummins"]; fig.Wickets != 1 {
		t.Fatalf("run out counted on bowler figures: %+v", fig)
	}
}

func TestDeliveryRejections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedTeams(t, svc, indSquad, ausSquad)
	m, _, err := svc.ScheduleMatch(ctx, "IND", "AUS", 20)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	_, err = svc.ApplyDelivery(ctx, m.ID, domain.DotBall())
	expectRejection(t, err, ReasonMatchNotLive)

	if _, err := svc.StartMatch(ctx, m.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = svc.ApplyDelivery(ctx, m.ID, domain.DotBall())
	expectRejection(t, err, ReasonAwaitingBowler)
	if _, err := svc.AssignBowler(ctx, m.ID, "Lyon"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	cases := []struct {
		name   string
		d      domain.Delivery
		reason RejectReason
	}{
		{"negative runs", domain.Delivery{TotalRuns: -1}, ReasonInvalidDelivery},
		{"batsman runs above total", domain.Delivery{TotalRuns: 1, BatsmanRuns: 2, CreditBatsman: true}, ReasonInvalidDelivery},
		{"dismissed without wicket", domain.Delivery{DismissedPlayer: "Rohit"}, ReasonInvalidDelivery},
		{"dismissed not at crease", domain.RunOut("Kohli", 0), ReasonDismissedNotAtCrease},
	}
	for _, tc := range cases {
		_, err := svc.ApplyDelivery(ctx, m.ID, tc.d)
		if !IsRejection(err, tc.reason) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.reason, err)
		}
	}
	st, err := svc.MatchState(ctx, m.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !st.Match.ScoreA.IsZero() || st.UndoDepth != 0 || len(st.Commentary) != 0 {
		t.Fatalf("rejections must not mutate state: %+v", st)
	}
	if _, err := svc.ApplyDelivery(ctx, "missing", domain.DotBall()); err == nil || IsRejection(err, ReasonMatchNotLive) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFirstInningsAllOutSetsTarget(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad[:3], ausSquad)

	bowlMany(t, svc, id, domain.RunsOffBat(6), 25)
	out := bowl(t, svc, id, domain.Bowled())
	if out.InningsClosed {
		t.Fatalf("innings closed with two batsmen left")
	}
	out = bowl(t, svc, id, domain.Bowled())
	if !out.InningsClosed || out.MatchCompleted {
		t.Fatalf("expected first innings to close: %+v", out)
	}
	m := out.State.Match
	if m.Target != 151 || m.FirstInningsTeam != "IND" || m.FirstInningsRuns != 150 || m.BattingTeam != "AUS" {
		t.Fatalf("unexpected innings handover %+v", m)
	}
	if m.ScoreA.Line() != "150/2 (4.3)" {
		t.Fatalf("unexpected first innings score %s", m.ScoreA.Line())
	}
	if !out.State.AwaitingBowler || out.State.Bowler != "" || len(out.State.Figures) != 0 {
		t.Fatalf("chase starts with a fresh bowling card: %+v", out.State)
	}
	if out.State.Striker != "Cummins" || out.State.NonStriker != "Starc" {
		t.Fatalf("expected AUS openers, got %s/%s", out.State.Striker, out.State.NonStriker)
	}
	if !hasNotification(out.Notifications, "End of innings! IND are all out for 150. AUS need 151 to win.") {
		t.Fatalf("missing innings notification: %+v", out.Notifications)
	}

	_, err := svc.AssignBowler(context.Background(), id, "Cummins")
	expectRejection(t, err, ReasonBowlerNotFielding)
	if _, err := svc.AssignBowler(context.Background(), id, "Rohit"); err != nil {
		t.Fatalf("IND now field: %v", err)
	}
}

// setTarget plays a first innings of exactly runs with a three-man IND side.
func setTarget(t *testing.T, svc *Service, id string, runs int) {
	t.Helper()
	bowlMany(t, svc, id, domain.RunsOffBat(4), runs/4)
	if rest := runs % 4; rest > 0 {
		bowl(t, svc, id, domain.RunsOffBat(rest))
	}
	bowl(t, svc, id, domain.Bowled())
	out := bowl(t, svc, id, domain.Bowled())
	if !out.InningsClosed || out.State.Match.Target != runs+1 {
		t.Fatalf("setup: expected target %d, got %+v", runs+1, out.State.Match)
	}
}

func TestChaseCompletesAtTarget(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad[:3], ausSquad)
	setTarget(t, svc, id, 119)

	out := bowlMany(t, svc, id, domain.RunsOffBat(4), 29)
	if out.MatchCompleted || out.State.Match.ScoreB.Runs != 116 {
		t.Fatalf("chase finished early: %+v", out.State.Match)
	}
	if out.State.RequiredRate == "" {
		t.Fatalf("expected a required rate during the chase")
	}
	out = bowl(t, svc, id, domain.RunsOffBat(4))
	m := out.State.Match
	if !out.MatchCompleted || m.Status != domain.MatchCompleted || m.Winner != "AUS" {
		t.Fatalf("expected AUS to win at 120: %+v", m)
	}
	if m.CurrentBowler != "" || out.State.Bowler != "" {
		t.Fatalf("completed match keeps no bowler")
	}
	if !hasNotification(out.Notifications, "AUS chase down the target of 120!") {
		t.Fatalf("missing chase notification: %+v", out.Notifications)
	}
	_, err := svc.ApplyDelivery(context.Background(), id, domain.DotBall())
	expectRejection(t, err, ReasonMatchCompleted)
}

func TestSecondInningsAllOutGivesFieldingSideTheWin(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad[:3], ausSquad)
	setTarget(t, svc, id, 30)

	bowlMany(t, svc, id, domain.Bowled(), 2)
	out := bowl(t, svc, id, domain.Bowled())
	m := out.State.Match
	if !out.MatchCompleted || m.Winner != "IND" || m.Status != domain.MatchCompleted {
		t.Fatalf("expected IND to defend: %+v", m)
	}
	if !out.State.InningsComplete || out.State.Striker != "" || out.State.NonStriker != "Starc" {
		t.Fatalf("expected Starc stranded: %+v", out.State)
	}
	if !hasNotification(out.Notifications, "IND win! AUS are bowled out for 0.") {
		t.Fatalf("missing result notification: %+v", out.Notifications)
	}
}

func TestOversLimitClosesInnings(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 1, indSquad, ausSquad)

	bowlMany(t, svc, id, domain.DotBall(), 5)
	out := bowl(t, svc, id, domain.RunsOffBat(2))
	if !out.InningsClosed || out.State.Match.Target != 3 || out.State.Match.BattingTeam != "AUS" {
		t.Fatalf("expected innings to close after one over: %+v", out.State.Match)
	}
	if !hasNotification(out.Notifications, "End of innings! IND finish on 2/0. AUS need 3 to win.") {
		t.Fatalf("missing innings notification: %+v", out.Notifications)
	}
	if len(out.Notifications) != 1 || !out.OverCompleted || !out.State.AwaitingBowler {
		t.Fatalf("closing the innings replaces the over prompt: %+v", out.Notifications)
	}
	bowlMany(t, svc, id, domain.DotBall(), 5)
	out = bowl(t, svc, id, domain.RunsOffBat(2))
	if !out.MatchCompleted || out.State.Match.Winner != "IND" {
		t.Fatalf("a level score at the last ball goes to the fielding side: %+v", out.State.Match)
	}
	if len(out.Notifications) != 1 || out.State.AwaitingBowler || out.State.Bowler != "" {
		t.Fatalf("a finished match asks for no bowler: %+v %+v", out.Notifications, out.State)
	}
}

func TestDeliveryWithoutStrikerScoresForTeam(t *testing.T) {
	svc := newTestService(t)
	id := startMatch(t, svc, 20, indSquad, ausSquad)
	ctx := context.Background()

	sess, _, err := svc.lockSession(id)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	sess.ctx.Striker = ""
	sess.mu.Unlock()

	out := bowl(t, svc, id, domain.RunsOffBat(2))
	if out.State.Match.ScoreA.Runs != 2 || out.State.Commentary[0] != "Team → 2" {
		t.Fatalf("unexpected state %+v", out.State)
	}
	for _, p := range svc.Roster(ctx, "IND") {
		if p.Runs != 0 || p.Balls != 0 {
			t.Fatalf("no batsman should be credited: %+v", p)
		}
	}
}
