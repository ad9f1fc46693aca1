// Package issuesync keeps a search connector synchronized with the
// issues of one GitHub repository. A webhook path re-syncs single
// issues as they change; a bootstrap orchestration provisions the
// destination connection and performs the initial full crawl.
package issuesync

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/connectorhq/issuesync/graphapi"
	"github.com/connectorhq/issuesync/httpjson"
	"github.com/go-chi/chi/v5"
)

// Service hosts the HTTP surface: the webhook intake, the bootstrap
// trigger, and the issue management API. All dependencies are
// constructed once at process start and injected; Service holds no
// mutable state beyond the bootstrap run registry.
type Service struct {
	Log    *slog.Logger
	Graph  *graphapi.Client
	Queue  Queue
	Syncer *Syncer

	// Repository the connector is bound to.
	Owner string
	Repo  string

	WebhookSecret      string
	LogPayloads        bool
	ResultTemplateFile string

	// SchemaPollInterval is the wait between schema registration
	// status polls. Defaults to a minute; registration can take
	// several.
	SchemaPollInterval time.Duration

	router *chi.Mux

	mu   sync.Mutex
	runs map[string]*bootstrapRun
}

func (s *Service) Init() {
	if s.SchemaPollInterval == 0 {
		s.SchemaPollInterval = time.Minute
	}
	s.runs = make(map[string]*bootstrapRun)

	s.router = chi.NewRouter()
	s.router.Method(http.MethodPost, "/webhook", httpjson.Handler(s.webhook))
	s.router.Method(http.MethodPost, "/initialize", httpjson.Handler(s.initialize))
	s.router.Method(http.MethodGet, "/initialize/{id}", httpjson.Handler(s.initializeStatus))

	s.router.Route("/issues/{number}", func(r chi.Router) {
		r.Method(http.MethodPost, "/label", httpjson.Handler(s.labelIssue))
		r.Method(http.MethodPost, "/unlabel", httpjson.Handler(s.unlabelIssue))
		r.Method(http.MethodPost, "/assign", httpjson.Handler(s.assignIssue))
		r.Method(http.MethodPost, "/unassign", httpjson.Handler(s.unassignIssue))
		r.Method(http.MethodPost, "/close", httpjson.Handler(s.closeIssue))
	})
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
