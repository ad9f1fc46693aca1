package issuesync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/connectorhq/issuesync/ghapi"
	"github.com/connectorhq/issuesync/graphapi"
	"github.com/google/go-github/v59/github"
)

// Syncer turns one issue into a document and upserts it. Both the
// webhook worker and the bulk crawl converge here, so out-of-order or
// duplicate deliveries land on the same idempotent write.
type Syncer struct {
	Log    *slog.Logger
	GitHub *ghapi.Client
	Graph  *graphapi.Client
}

// SyncIssue fetches the issue's timeline and comments, builds the
// document, and upserts it by issue number.
func (s *Syncer) SyncIssue(ctx context.Context, issue *github.Issue) error {
	number := issue.GetNumber()

	events, err := s.GitHub.Timeline(ctx, number)
	if err != nil {
		return fmt.Errorf("get timeline for issue #%d: %w", number, err)
	}

	comments, err := s.GitHub.Comments(ctx, number)
	if err != nil {
		return fmt.Errorf("get comments for issue #%d: %w", number, err)
	}

	doc := BuildDocument(issue, events, comments)
	if err := s.Graph.UpsertItem(ctx, doc.Item()); err != nil {
		return fmt.Errorf("ingest issue #%d: %w", number, err)
	}
	return nil
}
