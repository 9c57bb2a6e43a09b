package core

import (
	"context"
	"time"
)

// Logger is the structured logging surface used by the service. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// AuditStatus is the outcome recorded on an audit entry.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one service operation for the audit trail.
type AuditEntry struct {
	Operation string
	Entity    string
	Action    string
	EntityID  string
	Status    AuditStatus
	Reason    string
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// LogAuditRecorder writes audit entries through a Logger.
type LogAuditRecorder struct {
	logger Logger
}

// NewLogAuditRecorder constructs an audit recorder that logs at info level.
func NewLogAuditRecorder(logger Logger) *LogAuditRecorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogAuditRecorder{logger: logger}
}

// Record implements AuditRecorder.
func (r *LogAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	args := []any{
		"operation", entry.Operation,
		"entity", entry.Entity,
		"action", entry.Action,
		"entity_id", entry.EntityID,
		"status", string(entry.Status),
		"duration", entry.Duration,
	}
	if entry.Reason != "" {
		args = append(args, "reason", entry.Reason)
	}
	if entry.Error != "" {
		args = append(args, "error", entry.Error)
	}
	r.logger.Info("audit", args...)
}

type auditTarget struct {
	entity string
	action string
}

var auditTargets = map[string]auditTarget{
	opCreateTeam:       {entity: "team", action: "create"},
	opAddPlayer:        {entity: "player", action: "create"},
	opScheduleMatch:    {entity: "match", action: "create"},
	opStartMatch:       {entity: "match", action: "start"},
	opApplyDelivery:    {entity: "match", action: "delivery"},
	opUndoDelivery:     {entity: "match", action: "undo"},
	opAssignBowler:     {entity: "match", action: "assign_bowler"},
	opAssignStriker:    {entity: "match", action: "assign_striker"},
	opAssignNonStriker: {entity: "match", action: "assign_non_striker"},
	opSetBatFirst:      {entity: "match", action: "bat_first"},
	opCloseMatch:       {entity: "match", action: "close"},
}

// Operation names used for logging, metrics, tracing and audit.
const (
	opCreateTeam       = "create_team"
	opAddPlayer        = "add_player"
	opScheduleMatch    = "schedule_match"
	opStartMatch       = "start_match"
	opApplyDelivery    = "apply_delivery"
	opUndoDelivery     = "undo_delivery"
	opAssignBowler     = "assign_bowler"
	opAssignStriker    = "assign_striker"
	opAssignNonStriker = "assign_non_striker"
	opSetBatFirst      = "set_bat_first"
	opCloseMatch       = "close_match"
)

// observe wraps fn with tracing, metrics, audit and logging. entityID is
// read after fn returns so creates can report the generated identifier.
func (s *Service) observe(ctx context.Context, op string, entityID *string, fn func(context.Context) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	id := ""
	if entityID != nil {
		id = *entityID
	}
	entry := AuditEntry{
		Operation: op,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: start,
	}
	if target, ok := auditTargets[op]; ok {
		entry.Entity = target.entity
		entry.Action = target.action
	}
	switch rej, isRejection := AsRejection(err); {
	case err == nil:
		s.logger.Debug("operation complete", "operation", op, "id", id, "duration", duration)
	case isRejection:
		entry.Status = AuditStatusError
		entry.Reason = string(rej.Reason)
		entry.Error = rej.Message
		s.logger.Info("operation rejected", "operation", op, "id", id, "reason", string(rej.Reason), "message", rej.Message)
	default:
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("operation failed", "operation", op, "id", id, "error", err)
	}
	s.audit.Record(ctx, entry)
	return err
}
