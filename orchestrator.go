package issuesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/connectorhq/issuesync/graphapi"
)

// ErrNoConnection is the terminal outcome of a bootstrap whose
// connection could not be created or retrieved.
var ErrNoConnection = errors.New("could not create or retrieve connection")

// Journal durably records the result of each completed orchestration
// step. When a workflow is re-executed after a restart, recorded steps
// are replayed from the journal instead of being performed again.
type Journal interface {
	Load(name string) ([]byte, bool)
	Save(name string, result []byte)
	Empty() bool
}

// MemJournal is an in-memory Journal for in-process hosting.
type MemJournal struct {
	mu    sync.Mutex
	steps map[string][]byte
}

func NewMemJournal() *MemJournal {
	return &MemJournal{steps: make(map[string][]byte)}
}

func (j *MemJournal) Load(name string) ([]byte, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	raw, ok := j.steps[name]
	return raw, ok
}

func (j *MemJournal) Save(name string, result []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps[name] = result
}

func (j *MemJournal) Empty() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.steps) == 0
}

// Activities are the side-effecting steps of the bootstrap workflow.
// Each is invoked at most once per journal; their results are recorded
// and replayed.
type Activities interface {
	// EnsureConnection returns the connection, or nil (without error)
	// when none could be produced.
	EnsureConnection(ctx context.Context) (*graphapi.Connection, error)
	// EnsureSchema returns a URL to poll for registration status, or
	// "" when the schema is already registered.
	EnsureSchema(ctx context.Context) (string, error)
	// PollSchemaOperation makes one discrete poll. The orchestrator
	// owns the wait between polls.
	PollSchemaOperation(ctx context.Context, pollURL string) (bool, error)
	CrawlIssues(ctx context.Context) error
}

// Orchestrator runs the bootstrap workflow: ensure connection, ensure
// schema, poll registration to completion, crawl. The body itself is
// deterministic and side-effect free; all work happens in journaled
// Activities steps, so the whole sequence is safe to re-execute from
// the start.
type Orchestrator struct {
	Log        *slog.Logger
	Activities Activities
	Journal    Journal

	// PollInterval is the durable timer between schema polls.
	PollInterval time.Duration

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error

	replaying bool
}

// info logs only when not replaying, so a re-executed workflow body
// does not emit its log lines twice.
func (o *Orchestrator) info(msg string, args ...any) {
	if o.replaying {
		return
	}
	o.Log.Info(msg, args...)
}

func (o *Orchestrator) warn(msg string, args ...any) {
	if o.replaying {
		return
	}
	o.Log.Warn(msg, args...)
}

// step executes fn once per journal. A journaled result is returned
// without re-executing fn; a fresh result is recorded before being
// returned. Errors are never recorded: a failed step runs again on the
// next execution.
func step[T any](ctx context.Context, o *Orchestrator, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if raw, ok := o.Journal.Load(name); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return zero, fmt.Errorf("replay step %s: %w", name, err)
		}
		return v, nil
	}

	o.replaying = false
	v, err := fn(ctx)
	if err != nil {
		return zero, fmt.Errorf("step %s: %w", name, err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("record step %s: %w", name, err)
	}
	o.Journal.Save(name, raw)
	return v, nil
}

// timer is a journaled suspension: a replayed workflow does not wait
// again for intervals it already waited out.
func (o *Orchestrator) timer(ctx context.Context, name string, d time.Duration) error {
	if _, ok := o.Journal.Load(name); ok {
		return nil
	}
	o.replaying = false

	wait := o.sleep
	if wait == nil {
		wait = func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		}
	}
	if err := wait(ctx, d); err != nil {
		return err
	}
	o.Journal.Save(name, []byte("{}"))
	return nil
}

// Run executes the workflow to completion. Any error is the single
// terminal failure outcome for the bootstrap.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.replaying = !o.Journal.Empty()

	o.info("creating a new connection and registering schema")

	conn, err := step(ctx, o, "ensure-connection", o.Activities.EnsureConnection)
	if err != nil {
		return err
	}
	if conn == nil {
		o.warn("could not create or retrieve connection")
		return ErrNoConnection
	}

	pollURL, err := step(ctx, o, "ensure-schema", o.Activities.EnsureSchema)
	if err != nil {
		return err
	}
	if pollURL == "" {
		o.info("schema already registered")
	} else {
		for i := 1; ; i++ {
			o.info("waiting to check schema registration status", "interval", o.PollInterval)
			if err := o.timer(ctx, fmt.Sprintf("schema-poll-wait-%d", i), o.PollInterval); err != nil {
				return err
			}
			done, err := step(ctx, o, fmt.Sprintf("schema-poll-%d", i), func(ctx context.Context) (bool, error) {
				return o.Activities.PollSchemaOperation(ctx, pollURL)
			})
			if err != nil {
				return err
			}
			if done {
				break
			}
		}
		o.info("schema registration complete")
	}

	_, err = step(ctx, o, "crawl-issues", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.Activities.CrawlIssues(ctx)
	})
	return err
}
