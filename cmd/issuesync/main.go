package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/coder/serpent"
	"github.com/connectorhq/issuesync"
	"github.com/connectorhq/issuesync/ghapi"
	"github.com/connectorhq/issuesync/graphapi"
	"github.com/google/go-github/v59/github"
	"github.com/lmittmann/tint"
	"golang.org/x/oauth2"
)

func newLogger() *slog.Logger {
	logOpts := &tint.Options{
		AddSource:  true,
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen + " 05.999",
	}
	return slog.New(tint.NewHandler(os.Stderr, logOpts))
}

type rootCmd struct {
	bindAddr         string
	owner            string
	repo             string
	githubToken      string
	webhookSecret    string
	logPayloads      bool
	connectorID      string
	graphTenantID    string
	graphClientID    string
	graphSecret      string
	resultTemplate   string
	schemaPollPeriod time.Duration
}

func (r *rootCmd) githubClient(ctx context.Context) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: r.githubToken})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

func main() {
	log := newLogger()
	var root rootCmd
	cmd := &serpent.Command{
		Use:   "issuesync",
		Short: "issuesync keeps a search connector in sync with a repository's GitHub issues",
		Handler: func(inv *serpent.Invocation) error {
			log.Debug("starting issuesync")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			graphClient, err := graphapi.NewClient(ctx, log, graphapi.Config{
				TenantID:     root.graphTenantID,
				ClientID:     root.graphClientID,
				ClientSecret: root.graphSecret,
				ConnectionID: root.connectorID,
			})
			if err != nil {
				return err
			}

			ghClient := &ghapi.Client{
				Log:    log,
				Owner:  root.owner,
				Repo:   root.repo,
				GitHub: root.githubClient(ctx),
			}

			syncer := &issuesync.Syncer{
				Log:    log,
				GitHub: ghClient,
				Graph:  graphClient,
			}

			queue := issuesync.NewMemQueue(256)
			worker := &issuesync.Worker{
				Log:    log,
				Queue:  queue,
				Syncer: syncer,
			}
			go func() {
				_ = worker.Run(ctx)
			}()

			srv := &issuesync.Service{
				Log:                log,
				Graph:              graphClient,
				Queue:              queue,
				Syncer:             syncer,
				Owner:              root.owner,
				Repo:               root.repo,
				WebhookSecret:      root.webhookSecret,
				LogPayloads:        root.logPayloads,
				ResultTemplateFile: root.resultTemplate,
				SchemaPollInterval: root.schemaPollPeriod,
			}
			srv.Init()

			bindAddr := root.bindAddr
			// support Cloud Run
			port := os.Getenv("PORT")
			if port != "" {
				bindAddr = ":" + port
			}

			listener, err := net.Listen("tcp", bindAddr)
			if err != nil {
				return err
			}
			log.Info("listening", "addr", listener.Addr())

			go func() {
				<-ctx.Done()
				listener.Close()
			}()

			return http.Serve(listener, srv)
		},
		Options: []serpent.Option{
			{
				Flag:        "bind-addr",
				Description: "Address to bind to.",
				Default:     "localhost:8080",
				Value:       serpent.StringOf(&root.bindAddr),
			},
			{
				Flag:        "github-owner",
				Description: "Owner of the GitHub repository to sync.",
				Required:    true,
				Value:       serpent.StringOf(&root.owner),
			},
			{
				Flag:        "github-repo",
				Description: "Name of the GitHub repository to sync.",
				Required:    true,
				Value:       serpent.StringOf(&root.repo),
			},
			{
				Flag:        "connector-id",
				Description: "Identifier of the destination connection.",
				Required:    true,
				Value:       serpent.StringOf(&root.connectorID),
			},
			{
				Flag:        "graph-tenant-id",
				Description: "Destination tenant ID.",
				Required:    true,
				Value:       serpent.StringOf(&root.graphTenantID),
			},
			{
				Flag:        "graph-client-id",
				Description: "Destination application client ID.",
				Required:    true,
				Value:       serpent.StringOf(&root.graphClientID),
			},
			{
				Flag:        "result-template",
				Default:     "./templates/search-result-issues.json",
				Description: "Path to the search result display template.",
				Value:       serpent.StringOf(&root.resultTemplate),
			},
			{
				Flag:        "schema-poll-interval",
				Default:     "60s",
				Description: "Wait between schema registration status polls.",
				Value:       serpent.DurationOf(&root.schemaPollPeriod),
			},
			{
				Flag:        "log-payloads",
				Description: "Log webhook payloads for debugging.",
				Value:       serpent.BoolOf(&root.logPayloads),
			},
			// SECRETS: only configurable via environment variables.
			{
				Description: "GitHub personal access token.",
				Env:         "GITHUB_TOKEN",
				Required:    true,
				Value:       serpent.StringOf(&root.githubToken),
			},
			{
				Description: "Shared secret for webhook signature verification.",
				Env:         "GITHUB_WEBHOOK_SECRET",
				Value:       serpent.StringOf(&root.webhookSecret),
			},
			{
				Description: "Destination application client secret.",
				Env:         "GRAPH_CLIENT_SECRET",
				Required:    true,
				Value:       serpent.StringOf(&root.graphSecret),
			},
		},
	}

	err := cmd.Invoke().WithOS().Run()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
