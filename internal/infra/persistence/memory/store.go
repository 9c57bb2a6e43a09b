// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. Durable backends embed it
// and persist through a commit hook.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cricketcore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Team aliases domain.Team for in-memory persistence operations.
	Team = domain.Team
	// Player aliases domain.Player.
	Player = domain.Player
	// Match aliases domain.Match.
	Match = domain.Match
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	teams   map[string]Team
	players map[string]Player
	matches map[string]Match
}

// Snapshot captures a point-in-time clone of the store state. Teams are keyed
// by name, players and matches by ID.
type Snapshot struct {
	Teams   map[string]Team   `json:"teams"`
	Players map[string]Player `json:"players"`
	Matches map[string]Match  `json:"matches"`
}

func newMemoryState() memoryState {
	return memoryState{
		teams:   make(map[string]Team),
		players: make(map[string]Player),
		matches: make(map[string]Match),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Teams:   make(map[string]Team, len(state.teams)),
		Players: make(map[string]Player, len(state.players)),
		Matches: make(map[string]Match, len(state.matches)),
	}
	for k, v := range state.teams {
		s.Teams[k] = v
	}
	for k, v := range state.players {
		s.Players[k] = v
	}
	for k, v := range state.matches {
		s.Matches[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Teams {
		if k == "" {
			k = v.Name
		}
		state.teams[k] = v
	}
	for k, v := range s.Players {
		if k == "" {
			k = v.ID
		}
		state.players[k] = v
	}
	for k, v := range s.Matches {
		if k == "" {
			k = v.ID
		}
		state.matches[k] = v
	}
	return state
}

// All entity types are flat value structs, so a map copy is a deep copy.
func (s memoryState) clone() memoryState {
	return memoryStateFromSnapshot(snapshotFromMemoryState(s))
}

// CommitHook runs after rule evaluation and before a transaction's state
// becomes visible. A returned error aborts the transaction.
type CommitHook func(ctx context.Context, snapshot Snapshot) error

// Option configures a Store.
type Option func(*Store)

// WithCommitHook installs hook to run on every commit.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hook = hook }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// Store provides an in-memory transactional store for the scoring domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
	hook   CommitHook
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCommitHook replaces the commit hook. Durable stores install theirs after
// hydrating from disk so the initial import is not written back.
func (s *Store) SetCommitHook(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListTeams returns teams ordered by name.
func (v transactionView) ListTeams() []Team {
	return listTeams(v.state)
}

// ListPlayers returns every roster entry ordered by team then roster order.
func (v transactionView) ListPlayers() []Player {
	out := make([]Player, 0, len(v.state.players))
	for _, p := range v.state.players {
		out = append(out, p)
	}
	sortPlayers(out)
	return out
}

// ListMatches returns matches ordered by creation time.
func (v transactionView) ListMatches() []Match {
	return listMatches(v.state)
}

// ListTeamPlayers returns the team's roster in roster order.
func (v transactionView) ListTeamPlayers(team string) []Player {
	return teamPlayers(v.state, team)
}

// FindTeam looks up a team by name.
func (v transactionView) FindTeam(name string) (Team, bool) {
	t, ok := v.state.teams[name]
	return t, ok
}

// FindPlayer looks up a roster entry by its (team, name) identity.
func (v transactionView) FindPlayer(team, name string) (Player, bool) {
	return findPlayer(v.state, team, name)
}

// FindMatch looks up a match by ID.
func (v transactionView) FindMatch(id string) (Match, bool) {
	m, ok := v.state.matches[id]
	return m, ok
}

func listTeams(state *memoryState) []Team {
	out := make([]Team, 0, len(state.teams))
	for _, t := range state.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func listMatches(state *memoryState) []Match {
	out := make([]Match, 0, len(state.matches))
	for _, m := range state.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func teamPlayers(state *memoryState, team string) []Player {
	var out []Player
	for _, p := range state.players {
		if p.Team == team {
			out = append(out, p)
		}
	}
	sortPlayers(out)
	return out
}

func sortPlayers(players []Player) {
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Name < b.Name
	})
}

func findPlayer(state *memoryState, team, name string) (Player, bool) {
	for _, p := range state.players {
		if p.Team == team && p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules are evaluated, then the commit hook runs; the copy replaces committed
// state only when both succeed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.hook != nil {
		if err := s.hook(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			return result, fmt.Errorf("commit hook: %w", err)
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindTeam exposes team lookup within the transaction scope.
func (tx *transaction) FindTeam(name string) (Team, bool) {
	t, ok := tx.state.teams[name]
	return t, ok
}

// FindPlayer exposes roster lookup within the transaction scope.
func (tx *transaction) FindPlayer(team, name string) (Player, bool) {
	return findPlayer(&tx.state, team, name)
}

// FindMatch exposes match lookup within the transaction scope.
func (tx *transaction) FindMatch(id string) (Match, bool) {
	m, ok := tx.state.matches[id]
	return m, ok
}

// ListTeamPlayers returns the team's roster in roster order.
func (tx *transaction) ListTeamPlayers(team string) []Player {
	return teamPlayers(&tx.state, team)
}

// CreateTeam stores a new team. Names are unique.
func (tx *transaction) CreateTeam(t Team) (Team, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return Team{}, fmt.Errorf("team name required")
	}
	if _, exists := tx.state.teams[t.Name]; exists {
		return Team{}, fmt.Errorf("team %q: %w", t.Name, domain.ErrAlreadyExists)
	}
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.teams[t.Name] = t
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionCreate, After: t})
	return t, nil
}

// CreatePlayer stores a roster entry. A zero Order appends the player to the
// end of the team's roster.
func (tx *transaction) CreatePlayer(p Player) (Player, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Player{}, fmt.Errorf("player name required")
	}
	if _, ok := tx.state.teams[p.Team]; !ok {
		return Player{}, fmt.Errorf("team %q: %w", p.Team, domain.ErrNotFound)
	}
	if _, exists := findPlayer(&tx.state, p.Team, p.Name); exists {
		return Player{}, fmt.Errorf("player %q in team %q: %w", p.Name, p.Team, domain.ErrAlreadyExists)
	}
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.players[p.ID]; exists {
		return Player{}, fmt.Errorf("player %q: %w", p.ID, domain.ErrAlreadyExists)
	}
	if p.Order == 0 {
		for _, existing := range tx.state.players {
			if existing.Team == p.Team && existing.Order >= p.Order {
				p.Order = existing.Order
			}
		}
		p.Order++
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.players[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPlayer, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePlayer mutates a roster entry. Identity fields are preserved.
func (tx *transaction) UpdatePlayer(id string, mutator func(*Player) error) (Player, error) {
	current, ok := tx.state.players[id]
	if !ok {
		return Player{}, fmt.Errorf("player %q: %w", id, domain.ErrNotFound)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Player{}, err
	}
	current.ID = id
	current.Name = before.Name
	current.Team = before.Team
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.players[id] = current
	tx.recordChange(Change{Entity: domain.EntityPlayer, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateMatch stores a new match.
func (tx *transaction) CreateMatch(m Match) (Match, error) {
	if m.ID == "" {
		m.ID = tx.store.newID()
	}
	if _, exists := tx.state.matches[m.ID]; exists {
		return Match{}, fmt.Errorf("match %q: %w", m.ID, domain.ErrAlreadyExists)
	}
	if m.Status == "" {
		m.Status = domain.MatchScheduled
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = tx.now
	}
	m.UpdatedAt = tx.now
	tx.state.matches[m.ID] = m
	tx.recordChange(Change{Entity: domain.EntityMatch, Action: domain.ActionCreate, After: m})
	return m, nil
}

// UpdateMatch mutates an existing match.
func (tx *transaction) UpdateMatch(id string, mutator func(*Match) error) (Match, error) {
	current, ok := tx.state.matches[id]
	if !ok {
		return Match{}, fmt.Errorf("match %q: %w", id, domain.ErrNotFound)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Match{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.matches[id] = current
	tx.recordChange(Change{Entity: domain.EntityMatch, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// Read helpers ---------------------------------------------------------------

// GetMatch retrieves a match by ID from committed state.
func (s *Store) GetMatch(id string) (Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.matches[id]
	return m, ok
}

// ListMatches returns all matches ordered by creation time.
func (s *Store) ListMatches() []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMatches(&s.state)
}

// ListTeams returns all teams ordered by name.
func (s *Store) ListTeams() []Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTeams(&s.state)
}

// ListTeamPlayers returns a team's roster in roster order.
func (s *Store) ListTeamPlayers(team string) []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return teamPlayers(&s.state, team)
}
