package domain

import (
	"context"
	"errors"
)

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateTeam(Team) (Team, error)
	CreatePlayer(Player) (Player, error)
	UpdatePlayer(id string, mutator func(*Player) error) (Player, error)
	CreateMatch(Match) (Match, error)
	UpdateMatch(id string, mutator func(*Match) error) (Match, error)
	FindTeam(name string) (Team, bool)
	FindPlayer(team, name string) (Player, bool)
	FindMatch(id string) (Match, bool)
	ListTeamPlayers(team string) []Player
}

// TransactionView provides read-only access to snapshot data for rules and
// readers.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetMatch(id string) (Match, bool)
	ListMatches() []Match
	ListTeams() []Team
	ListTeamPlayers(team string) []Player
}

// Sentinel errors wrapped by persistence implementations.
var (
	// ErrNotFound reports a lookup of a record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists reports an identity collision on create.
	ErrAlreadyExists = errors.New("already exists")
)
