package core

import (
	"context"
	"fmt"
	"math"

	"cricketcore/internal/overs"
	"cricketcore/pkg/domain"
)

// MaxWickets is the most wickets a side can lose in an innings.
const MaxWickets = 10

// NewScoreIntegrityRule returns the rule rejecting malformed scoreboards on
// changed matches: overs whose ball digit is outside 0-5, negative values and
// more than ten wickets.
func NewScoreIntegrityRule() domain.Rule {
	return scoreIntegrityRule{}
}

type scoreIntegrityRule struct{}

func (scoreIntegrityRule) Name() string { return "score_integrity" }

func (scoreIntegrityRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ch := range changes {
		m, ok := ch.After.(domain.Match)
		if !ok {
			continue
		}
		for _, side := range []struct {
			team  string
			score domain.Score
		}{{m.TeamA, m.ScoreA}, {m.TeamB, m.ScoreB}} {
			if msg := scoreProblem(side.score); msg != "" {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "score_integrity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("match %s %s score: %s", m.ID, side.team, msg),
					Entity:   domain.EntityMatch,
					EntityID: m.ID,
				})
			}
		}
	}
	return res, nil
}

func scoreProblem(s domain.Score) string {
	switch {
	case s.Runs < 0:
		return fmt.Sprintf("negative runs %d", s.Runs)
	case s.Wickets < 0 || s.Wickets > MaxWickets:
		return fmt.Sprintf("wickets %d outside 0-%d", s.Wickets, MaxWickets)
	case s.Overs < 0:
		return fmt.Sprintf("negative overs %v", s.Overs)
	case math.Abs(overs.BallsToOvers(overs.OversToBalls(s.Overs))-s.Overs) > 1e-9:
		return fmt.Sprintf("overs %v is not a valid overs value", s.Overs)
	}
	return ""
}
