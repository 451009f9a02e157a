package audit

import (
	"context"
	"time"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// EntityPSU is the entity type of every PSU command entry.
const EntityPSU = "psu"

// Command sources.
const (
	SourceAPI    = "api"
	SourceMQTT   = "mqtt"
	SourceSystem = "system" // issued by the service itself, e.g. shutdown teardown
)

// Actor identifies who issued a command.
type Actor struct {
	Source string // api, mqtt
	UserID string // token subject, if any
}

type actorKey struct{}

// WithActor returns a context carrying actor for the Recorder.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, defaulting to the system actor.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok && a.Source != "" {
		return a
	}
	return Actor{Source: SourceSystem}
}

// Logger is the subset of logging.Logger used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// writeTimeout bounds each insert so a locked database cannot stall a command.
const writeTimeout = 2 * time.Second

// Recorder turns psu command events into audit log entries.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a Recorder writing to repo. logger may be nil.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, logger: logger}
}

// Observe implements psu.CommandObserver. Write failures are logged and
// never propagate to the command caller.
func (r *Recorder) Observe(ctx context.Context, ev psu.CommandEvent) {
	actor := ActorFrom(ctx)
	entry := &AuditLog{
		Action:     ev.Op,
		EntityType: EntityPSU,
		EntityID:   ev.Identity,
		UserID:     actor.UserID,
		Source:     actor.Source,
		Accepted:   ev.Accepted,
	}
	if ev.Value != nil {
		entry.Details = map[string]any{"value": *ev.Value}
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.repo.Create(wctx, entry); err != nil {
		r.logger.Warn("audit write failed", "action", ev.Op, "identity", ev.Identity, "error", err)
	}
}
