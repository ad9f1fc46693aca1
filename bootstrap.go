package issuesync

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/connectorhq/issuesync/httpjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type bootstrapRun struct {
	ID      string
	Journal *MemJournal
	Status  string // running, completed, failed
	Error   string
}

// initialize triggers bootstrap operations. operation=create (the
// default) starts the orchestration and returns a status-check
// location; operation=delete removes the connection synchronously.
func (s *Service) initialize(w http.ResponseWriter, r *http.Request) *httpjson.Response {
	operation := r.URL.Query().Get("operation")
	if operation == "" {
		operation = "create"
	}

	switch {
	case strings.EqualFold(operation, "delete"):
		s.Log.Info("deleting connection")
		if err := s.Graph.DeleteConnection(r.Context()); err != nil {
			return httpjson.Error(http.StatusBadRequest, "DeleteConnectionError", err)
		}
		return &httpjson.Response{
			Status: http.StatusOK,
			Body:   httpjson.M{"message": "connection deleted"},
		}

	case strings.EqualFold(operation, "create"):
		run := &bootstrapRun{
			ID:      uuid.NewString(),
			Journal: NewMemJournal(),
			Status:  "running",
		}
		s.mu.Lock()
		s.runs[run.ID] = run
		s.mu.Unlock()

		s.Log.Info("started bootstrap orchestration", "instance", run.ID)
		go s.runBootstrap(run)

		return &httpjson.Response{
			Status: http.StatusAccepted,
			Body: httpjson.M{
				"id":                run.ID,
				"statusQueryGetUri": "/initialize/" + run.ID,
			},
		}

	default:
		return httpjson.Error(http.StatusBadRequest, "UnknownOperation",
			fmt.Errorf("operation must be create or delete, got %q", operation))
	}
}

// runBootstrap owns one orchestration's lifetime, which outlives the
// trigger request.
func (s *Service) runBootstrap(run *bootstrapRun) {
	orch := &Orchestrator{
		Log:          s.Log,
		Activities:   s,
		Journal:      run.Journal,
		PollInterval: s.SchemaPollInterval,
	}
	err := orch.Run(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		s.Log.Error("bootstrap failed", "instance", run.ID, "error", err)
		return
	}
	run.Status = "completed"
	s.Log.Info("bootstrap completed", "instance", run.ID)
}

func (s *Service) initializeStatus(w http.ResponseWriter, r *http.Request) *httpjson.Response {
	id := chi.URLParam(r, "id")

	// Copy under the lock: runBootstrap writes Status and Error when
	// the orchestration finishes.
	s.mu.Lock()
	run, ok := s.runs[id]
	var status, errMsg string
	if ok {
		status, errMsg = run.Status, run.Error
	}
	s.mu.Unlock()
	if !ok {
		return httpjson.Error(http.StatusNotFound, "InstanceNotFound",
			fmt.Errorf("no bootstrap instance %q", id))
	}

	body := httpjson.M{"id": id, "status": status}
	if errMsg != "" {
		body["error"] = errMsg
	}
	return &httpjson.Response{Status: http.StatusOK, Body: body}
}

// CrawlIssues enumerates every issue in the repository and ingests
// each one. A single issue's failure is logged and does not abort the
// rest of the crawl; the upsert key makes a re-crawl safe.
func (s *Service) CrawlIssues(ctx context.Context) error {
	s.Log.Info("beginning crawl of issues")
	start := time.Now()

	issues, err := s.Syncer.GitHub.AllIssues(ctx)
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}
	s.Log.Info("found issues in repository", "count", len(issues))

	var failed int
	for _, issue := range issues {
		s.Log.Info("ingesting issue", "number", issue.GetNumber())
		if err := s.Syncer.SyncIssue(ctx, issue); err != nil {
			s.Log.Error("ingest issue", "number", issue.GetNumber(), "error", err)
			failed++
		}
	}

	s.Log.Info("crawl finished",
		"count", len(issues),
		"failed", failed,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
