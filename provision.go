package issuesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/connectorhq/issuesync/graphapi"
)

// EnsureConnection fetches the connection by its configured
// identifier, creating it when the destination reports not-found.
// Consent failures and creation failures both yield a nil connection
// so the orchestrator can short-circuit with a clean outcome instead
// of retrying something that needs operator action.
func (s *Service) EnsureConnection(ctx context.Context) (*graphapi.Connection, error) {
	s.Log.Info("ensuring connection")

	conn, err := s.Graph.GetConnection(ctx)
	if err == nil {
		s.Log.Info("connection exists")
		return conn, nil
	}

	var consentErr *graphapi.ConsentRequiredError
	if errors.As(err, &consentErr) {
		s.Log.Warn(consentErr.Error())
		return nil, nil
	}
	if !errors.Is(err, graphapi.ErrNotFound) {
		return nil, err
	}

	s.Log.Info("connection does not exist", "connection", s.Graph.ConnectionID())
	conn, err = s.createConnection(ctx)
	if err != nil {
		s.Log.Error("error creating new connection", "error", err)
		return nil, nil
	}
	return conn, nil
}

func (s *Service) createConnection(ctx context.Context) (*graphapi.Connection, error) {
	layout, err := s.resultTemplate()
	if err != nil {
		return nil, err
	}

	return s.Graph.CreateConnection(ctx, &graphapi.Connection{
		ID:          s.Graph.ConnectionID(),
		Name:        "GitHub Issues Manager",
		Description: "GitHub issues for a project repository",
		ActivitySettings: &graphapi.ActivitySettings{
			// Lets the destination recognize issue links users share
			// with each other and resolve them back to indexed items.
			URLToItemResolvers: []graphapi.ItemIDResolver{
				{
					ODataType: "#microsoft.graph.externalConnectors.itemIdResolver",
					Priority:  1,
					ItemID:    "{issueId}",
					URLMatchInfo: graphapi.URLMatchInfo{
						BaseURLs:   []string{"https://github.com"},
						URLPattern: fmt.Sprintf("/%s/%s/issues/(?<issueId>[0-9]+)", s.Owner, s.Repo),
					},
				},
			},
		},
		SearchSettings: &graphapi.SearchSettings{
			SearchResultTemplates: []graphapi.ResultTemplate{
				{
					ID:       "issueDisplay",
					Priority: 1,
					Layout:   layout,
				},
			},
		},
	})
}

// resultTemplate loads the search-result display card from disk.
func (s *Service) resultTemplate() (map[string]any, error) {
	contents, err := os.ReadFile(s.ResultTemplateFile)
	if err != nil {
		return nil, fmt.Errorf("read result template: %w", err)
	}
	var layout map[string]any
	if err := json.Unmarshal(contents, &layout); err != nil {
		return nil, fmt.Errorf("parse result template %s: %w", s.ResultTemplateFile, err)
	}
	return layout, nil
}

// EnsureSchema checks for a registered schema and registers ours when
// there is none. A non-empty return is the URL to poll for the
// asynchronous registration's completion.
func (s *Service) EnsureSchema(ctx context.Context) (string, error) {
	s.Log.Info("ensuring schema")

	_, err := s.Graph.GetSchema(ctx)
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, graphapi.ErrNotFound) {
		return "", err
	}

	s.Log.Info("schema not registered", "connection", s.Graph.ConnectionID())
	return s.Graph.RegisterSchema(ctx, issuesSchema)
}

// PollSchemaOperation makes one poll of the registration operation.
func (s *Service) PollSchemaOperation(ctx context.Context, pollURL string) (bool, error) {
	return s.Graph.OperationComplete(ctx, pollURL)
}
