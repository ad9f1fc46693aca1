package issuesync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/connectorhq/issuesync/graphapi"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-github/v59/github"
	"github.com/stretchr/testify/require"
)

// newCaptureGraph returns a client whose item upserts land on the
// given channel.
func newCaptureGraph(t *testing.T, items chan<- graphapi.Item) *graphapi.Client {
	t.Helper()
	router := chi.NewRouter()
	router.Put("/external/connections/ghissues/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		var item graphapi.Item
		require.NoError(t, json.NewDecoder(r.Body).Decode(&item))
		items <- item
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	graph, err := graphapi.NewClient(context.Background(), discardLogger(), graphapi.Config{
		ConnectionID: "ghissues",
		BaseURL:      srv.URL,
		HTTPClient:   srv.Client(),
	})
	require.NoError(t, err)
	return graph
}

func issueRoutes(t *testing.T) chi.Router {
	t.Helper()
	router := chi.NewRouter()
	router.Get("/repos/acme/widgets/issues/5", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(testIssue())
	})
	router.Get("/repos/acme/widgets/issues/5/timeline", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]*github.Timeline{
			{Actor: &github.User{Login: github.String("bob")}},
		})
	})
	router.Get("/repos/acme/widgets/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]*github.IssueComment{
			{Body: github.String("looks bad")},
		})
	})
	return router
}

func TestSyncIssue(t *testing.T) {
	t.Parallel()

	items := make(chan graphapi.Item, 1)
	syncer := &Syncer{
		Log:    discardLogger(),
		GitHub: newFakeGitHub(t, issueRoutes(t)),
		Graph:  newCaptureGraph(t, items),
	}

	require.NoError(t, syncer.SyncIssue(context.Background(), testIssue()))

	item := <-items
	require.Equal(t, "5", item.ID)
	require.Equal(t, "acme/widgets", item.Properties["repo"])
	require.Equal(t, "bob", item.Properties["lastModifiedBy"])
	require.Equal(t, "Repro\nTip the widget.\nlooks bad", item.Content.Value)
}

func TestWorker(t *testing.T) {
	t.Parallel()

	items := make(chan graphapi.Item, 1)
	queue := NewMemQueue(8)
	worker := &Worker{
		Log:   discardLogger(),
		Queue: queue,
		Syncer: &Syncer{
			Log:    discardLogger(),
			GitHub: newFakeGitHub(t, issueRoutes(t)),
			Graph:  newCaptureGraph(t, items),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	require.NoError(t, queue.Enqueue(ctx, WorkItem{Owner: "acme", Repo: "widgets", IssueNumber: 5}))

	select {
	case item := <-items:
		require.Equal(t, "5", item.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("worker never upserted the item")
	}

	cancel()
	<-done
}
