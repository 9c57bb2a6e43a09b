package core

import "cricketcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in scoring policies.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewPlayerIdentityRule())
	engine.Register(NewScoreIntegrityRule())
	engine.Register(NewMatchIntegrityRule())
	return engine
}
