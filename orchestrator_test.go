package issuesync

import (
	"context"
	"testing"
	"time"

	"github.com/connectorhq/issuesync/graphapi"
	"github.com/stretchr/testify/require"
)

type fakeActivities struct {
	connection *graphapi.Connection
	pollURL    string
	// pollResults is consumed one per poll; the final value repeats.
	pollResults []bool

	ensureConnectionCalls int
	ensureSchemaCalls     int
	pollCalls             int
	crawlCalls            int
}

func (f *fakeActivities) EnsureConnection(ctx context.Context) (*graphapi.Connection, error) {
	f.ensureConnectionCalls++
	return f.connection, nil
}

func (f *fakeActivities) EnsureSchema(ctx context.Context) (string, error) {
	f.ensureSchemaCalls++
	return f.pollURL, nil
}

func (f *fakeActivities) PollSchemaOperation(ctx context.Context, pollURL string) (bool, error) {
	f.pollCalls++
	if len(f.pollResults) == 0 {
		return true, nil
	}
	result := f.pollResults[0]
	if len(f.pollResults) > 1 {
		f.pollResults = f.pollResults[1:]
	}
	return result, nil
}

func (f *fakeActivities) CrawlIssues(ctx context.Context) error {
	f.crawlCalls++
	return nil
}

func newTestOrchestrator(activities Activities) (*Orchestrator, *[]time.Duration) {
	var slept []time.Duration
	return &Orchestrator{
		Log:          discardLogger(),
		Activities:   activities,
		Journal:      NewMemJournal(),
		PollInterval: time.Minute,
		sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}, &slept
}

func TestOrchestrator(t *testing.T) {
	t.Parallel()

	t.Run("SchemaAlreadyRegistered", func(t *testing.T) {
		t.Parallel()
		activities := &fakeActivities{
			connection: &graphapi.Connection{ID: "c"},
		}
		orch, slept := newTestOrchestrator(activities)

		require.NoError(t, orch.Run(context.Background()))
		require.Equal(t, 1, activities.ensureConnectionCalls)
		require.Equal(t, 1, activities.ensureSchemaCalls)
		// No poll and no wait when the schema already exists.
		require.Zero(t, activities.pollCalls)
		require.Empty(t, *slept)
		require.Equal(t, 1, activities.crawlCalls)
	})

	t.Run("PollsUntilComplete", func(t *testing.T) {
		t.Parallel()
		activities := &fakeActivities{
			connection:  &graphapi.Connection{ID: "c"},
			pollURL:     "https://graph.example.com/operations/op1",
			pollResults: []bool{false, false, true},
		}
		orch, slept := newTestOrchestrator(activities)

		require.NoError(t, orch.Run(context.Background()))
		require.Equal(t, 3, activities.pollCalls)
		// One durable timer wait before each poll.
		require.Equal(t, []time.Duration{time.Minute, time.Minute, time.Minute}, *slept)
		require.Equal(t, 1, activities.crawlCalls)
	})

	t.Run("NoConnectionIsTerminal", func(t *testing.T) {
		t.Parallel()
		activities := &fakeActivities{}
		orch, _ := newTestOrchestrator(activities)

		err := orch.Run(context.Background())
		require.ErrorIs(t, err, ErrNoConnection)
		require.Zero(t, activities.ensureSchemaCalls)
		require.Zero(t, activities.crawlCalls)
	})

	t.Run("ReplayDoesNotRepeatSideEffects", func(t *testing.T) {
		t.Parallel()
		activities := &fakeActivities{
			connection:  &graphapi.Connection{ID: "c"},
			pollURL:     "https://graph.example.com/operations/op1",
			pollResults: []bool{false, true},
		}
		orch, slept := newTestOrchestrator(activities)

		require.NoError(t, orch.Run(context.Background()))
		require.Equal(t, 1, activities.ensureConnectionCalls)
		require.Equal(t, 2, activities.pollCalls)
		require.Equal(t, 1, activities.crawlCalls)
		require.Len(t, *slept, 2)

		// Re-executing against the same journal, as a restarted host
		// would, replays recorded results without calling any
		// activity or timer again.
		require.NoError(t, orch.Run(context.Background()))
		require.Equal(t, 1, activities.ensureConnectionCalls)
		require.Equal(t, 1, activities.ensureSchemaCalls)
		require.Equal(t, 2, activities.pollCalls)
		require.Equal(t, 1, activities.crawlCalls)
		require.Len(t, *slept, 2)
	})
}
