package core

import (
	"context"
	"strings"
	"time"

	"cricketcore/internal/infra/persistence/memory"
	"cricketcore/internal/overs"
	"cricketcore/pkg/domain"
)

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 10 * time.Second

// DefaultOversLimit is applied to matches scheduled without an explicit limit.
const DefaultOversLimit = 20

// ScorecardArchiver stores a final scorecard when a match completes.
type ScorecardArchiver interface {
	ArchiveScorecard(ctx context.Context, card Scorecard) error
}

// Service exposes the transactional scoring operations. Actions on one match
// are serialised by its session; commits across matches are serialised by
// the store.
type Service struct {
	store    domain.PersistentStore
	sessions *SessionManager

	clock    Clock
	logger   Logger
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	notifier Notifier
	archiver ScorecardArchiver

	notificationTTL   time.Duration
	defaultOversLimit int
}

type serviceOptions struct {
	clock             Clock
	logger            Logger
	audit             AuditRecorder
	metrics           MetricsRecorder
	tracer            Tracer
	notifier          Notifier
	archiver          ScorecardArchiver
	undoDepth         int
	notificationTTL   time.Duration
	defaultOversLimit int
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:             ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:            noopLogger{},
		audit:             noopAuditRecorder{},
		metrics:           noopMetricsRecorder{},
		tracer:            noopTracer{},
		notifier:          noopNotifier{},
		undoDepth:         DefaultUndoDepth,
		notificationTTL:   DefaultNotificationTTL,
		defaultOversLimit: DefaultOversLimit,
	}
}

// Option customises a Service.
type Option func(*serviceOptions)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(o *serviceOptions) {
		if rec != nil {
			o.audit = rec
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithNotifier forwards notifications to n in addition to the session.
func WithNotifier(n Notifier) Option {
	return func(o *serviceOptions) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithArchiver stores final scorecards through a.
func WithArchiver(a ScorecardArchiver) Option {
	return func(o *serviceOptions) {
		o.archiver = a
	}
}

// WithUndoDepth bounds the undo history kept per match.
func WithUndoDepth(depth int) Option {
	return func(o *serviceOptions) {
		if depth > 0 {
			o.undoDepth = depth
		}
	}
}

// WithNotificationTTL sets how long notifications stay active.
func WithNotificationTTL(ttl time.Duration) Option {
	return func(o *serviceOptions) {
		if ttl > 0 {
			o.notificationTTL = ttl
		}
	}
}

// WithDefaultOversLimit sets the limit used when ScheduleMatch is given 0.
func WithDefaultOversLimit(n int) Option {
	return func(o *serviceOptions) {
		if n >= 0 {
			o.defaultOversLimit = n
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	cfg := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Service{
		store:             store,
		sessions:          NewSessionManager(cfg.undoDepth),
		clock:             cfg.clock,
		logger:            cfg.logger,
		audit:             cfg.audit,
		metrics:           cfg.metrics,
		tracer:            cfg.tracer,
		notifier:          cfg.notifier,
		archiver:          cfg.archiver,
		notificationTTL:   cfg.notificationTTL,
		defaultOversLimit: cfg.defaultOversLimit,
	}
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Sessions returns the session manager.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// CreateTeam registers a team. Names are unique.
func (s *Service) CreateTeam(ctx context.Context, name, shortCode string) (domain.Team, domain.Result, error) {
	var created domain.Team
	var res domain.Result
	name = strings.TrimSpace(name)
	err := s.observe(ctx, opCreateTeam, &name, func(ctx context.Context) error {
		if name == "" {
			return reject(ReasonInvalidName, "team name required")
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateTeam(domain.Team{Name: name, ShortCode: strings.TrimSpace(shortCode)})
			return err
		})
		return err
	})
	return created, res, err
}

// AddPlayer appends a player to the team's roster.
func (s *Service) AddPlayer(ctx context.Context, team, name string) (domain.Player, domain.Result, error) {
	var created domain.Player
	var res domain.Result
	team, name = strings.TrimSpace(team), strings.TrimSpace(name)
	err := s.observe(ctx, opAddPlayer, &created.ID, func(ctx context.Context) error {
		if name == "" {
			return reject(ReasonInvalidName, "player name required")
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindTeam(team); !ok {
				return ErrNotFound{Entity: domain.EntityTeam, ID: team}
			}
			var err error
			created, err = tx.CreatePlayer(domain.Player{Name: name, Team: team})
			return err
		})
		return err
	})
	return created, res, err
}

// ScheduleMatch creates a fixture between two registered teams. oversLimit
// of 0 applies the service default; a negative limit means unlimited overs.
func (s *Service) ScheduleMatch(ctx context.Context, teamA, teamB string, oversLimit int) (domain.Match, domain.Result, error) {
	var created domain.Match
	var res domain.Result
	teamA, teamB = strings.TrimSpace(teamA), strings.TrimSpace(teamB)
	err := s.observe(ctx, opScheduleMatch, &created.ID, func(ctx context.Context) error {
		if teamA == teamB {
			return reject(ReasonSameTeams, "a team cannot play itself")
		}
		limit := oversLimit
		switch {
		case limit == 0:
			limit = s.defaultOversLimit
		case limit < 0:
			limit = 0
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			for _, team := range []string{teamA, teamB} {
				if _, ok := tx.FindTeam(team); !ok {
					return reject(ReasonUnknownTeam, "unknown team %q", team)
				}
			}
			var err error
			created, err = tx.CreateMatch(domain.Match{
				TeamA:       teamA,
				TeamB:       teamB,
				Status:      domain.MatchScheduled,
				BattingTeam: teamA,
				OversLimit:  limit,
			})
			return err
		})
		return err
	})
	return created, res, err
}

// StartMatch moves a scheduled match to Live. Both rosters' batting lines are
// reset; the side chosen with SetBatFirst, or TeamA, bats first.
func (s *Service) StartMatch(ctx context.Context, matchID string) (MatchState, error) {
	var state MatchState
	err := s.observe(ctx, opStartMatch, &matchID, func(ctx context.Context) error {
		sess, m, err := s.lockSession(matchID)
		if err != nil {
			return err
		}
		defer sess.mu.Unlock()
		if m.Status != domain.MatchScheduled {
			return reject(ReasonMatchNotScheduled, "match %s is %s", matchID, m.Status)
		}
		var started domain.Match
		if _, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			for _, team := range []string{m.TeamA, m.TeamB} {
				if err := ResetForNewMatch(tx, team); err != nil {
					return err
				}
			}
			var err error
			started, err = tx.UpdateMatch(matchID, func(m *domain.Match) error {
				bat := m.BattingTeam
				if !m.HasTeam(bat) {
					bat = m.TeamA
				}
				m.ResetScores(bat)
				m.Status = domain.MatchLive
				return nil
			})
			return err
		}); err != nil {
			return err
		}
		next := newInningsContext()
		next.resetForInnings(s.store.ListTeamPlayers(started.BattingTeam))
		sess.ctx = next
		sess.loaded = true
		sess.undo.clear()
		state = s.stateLocked(sess, started)
		return nil
	})
	return state, err
}

// MatchState describes a match and its innings in progress.
type MatchState struct {
	Match           domain.Match              `json:"match"`
	Striker         string                    `json:"striker,omitempty"`
	NonStriker      string                    `json:"non_striker,omitempty"`
	Bowler          string                    `json:"bowler,omitempty"`
	BowlerFigures   BowlingFigures            `json:"bowler_figures"`
	AwaitingBowler  bool                      `json:"awaiting_bowler"`
	InningsComplete bool                      `json:"innings_complete"`
	Figures         map[string]BowlingFigures `json:"figures"`
	BowlerOrder     []string                  `json:"bowler_order"`
	Commentary      []string                  `json:"commentary"`
	Dialog          DialogKind                `json:"dialog,omitempty"`
	UndoDepth       int                       `json:"undo_depth"`
	Notifications   []Notification            `json:"notifications"`
	RunRate         string                    `json:"run_rate"`
	RequiredRate    string                    `json:"required_rate,omitempty"`
}

// MatchState returns the current state of the match.
func (s *Service) MatchState(_ context.Context, matchID string) (MatchState, error) {
	sess, m, err := s.lockSession(matchID)
	if err != nil {
		return MatchState{}, err
	}
	defer sess.mu.Unlock()
	return s.stateLocked(sess, m), nil
}

func (s *Service) stateLocked(sess *matchSession, m domain.Match) MatchState {
	c := sess.ctx.clone()
	sess.notices = pruneNotices(sess.notices, s.clock.Now())
	state := MatchState{
		Match:           m,
		Striker:         c.Striker,
		NonStriker:      c.NonStriker,
		Bowler:          c.Bowler,
		BowlerFigures:   c.Figures[c.Bowler],
		AwaitingBowler:  c.AwaitingBowler,
		InningsComplete: c.InningsComplete,
		Figures:         c.Figures,
		BowlerOrder:     c.BowlerOrder,
		Commentary:      c.Commentary,
		Dialog:          c.Dialog,
		UndoDepth:       sess.undo.len(),
		Notifications:   append([]Notification(nil), sess.notices...),
		RunRate:         overs.FormatRate(overs.RunRate(m.BattingScore().Runs, m.BattingScore().Overs)),
	}
	if m.Status == domain.MatchLive && m.Target > 0 {
		state.RequiredRate = requiredRate(m)
	}
	return state
}

// requiredRate renders the chasing side's required rate. Unlimited matches
// have no balls remaining to divide by.
func requiredRate(m domain.Match) string {
	if m.OversLimit <= 0 {
		return overs.Placeholder
	}
	score := m.BattingScore()
	ballsLeft := m.OversLimit*overs.BallsPerOver - overs.TotalBalls(score.Overs)
	return overs.FormatRate(overs.RequiredRate(m.Target-score.Runs, ballsLeft))
}

// MatchNumbers assigns 1-based display numbers to matches in creation order.
func (s *Service) MatchNumbers(_ context.Context) map[string]int {
	matches := s.store.ListMatches()
	out := make(map[string]int, len(matches))
	for i, m := range matches {
		out[m.ID] = i + 1
	}
	return out
}

// ListMatches returns every match in creation order.
func (s *Service) ListMatches(_ context.Context) []domain.Match {
	return s.store.ListMatches()
}

// ListTeams returns every team sorted by name.
func (s *Service) ListTeams(_ context.Context) []domain.Team {
	return s.store.ListTeams()
}

// Roster returns the players of team in batting order.
func (s *Service) Roster(_ context.Context, team string) []domain.Player {
	return s.store.ListTeamPlayers(team)
}
