package core

import (
	"context"
	"fmt"

	"cricketcore/pkg/domain"
)

// NewPlayerIdentityRule returns the rule keeping (team, name) unique and every
// player attached to a registered team.
func NewPlayerIdentityRule() domain.Rule {
	return playerIdentityRule{}
}

type playerIdentityRule struct{}

func (playerIdentityRule) Name() string { return "player_identity" }

func (playerIdentityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	seen := make(map[domain.PlayerKey]string)
	for _, p := range view.ListPlayers() {
		if _, ok := view.FindTeam(p.Team); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "player_identity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("player %s references unknown team %s", p.Name, p.Team),
				Entity:   domain.EntityPlayer,
				EntityID: p.ID,
			})
		}
		if other, dup := seen[p.Key()]; dup {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "player_identity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("player %s duplicates %s", p.Key(), other),
				Entity:   domain.EntityPlayer,
				EntityID: p.ID,
			})
			continue
		}
		seen[p.Key()] = p.ID
	}
	return res, nil
}
