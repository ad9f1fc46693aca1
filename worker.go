package issuesync

import (
	"context"
	"fmt"
	"log/slog"
)

// Worker drains the notification queue one item at a time. Each item
// is a full re-sync of a single issue; nothing from the original
// webhook payload is trusted beyond the number and repo.
type Worker struct {
	Log    *slog.Logger
	Queue  *MemQueue
	Syncer *Syncer
}

// Run blocks until ctx is canceled, processing items serially. A
// failed item is logged and dropped; redelivery is the queue
// substrate's concern, not ours.
func (w *Worker) Run(ctx context.Context) error {
	w.Log.Info("notification worker started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-w.Queue.Items():
			if err := w.process(ctx, item); err != nil {
				w.Log.Error("process notification",
					"issue", item.IssueNumber,
					"repo", item.Owner+"/"+item.Repo,
					"error", err,
				)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, item WorkItem) error {
	w.Log.Info("processing queue item", "issue", item.IssueNumber)

	issue, err := w.Syncer.GitHub.Issue(ctx, item.IssueNumber)
	if err != nil {
		return fmt.Errorf("could not get issue #%d: %w", item.IssueNumber, err)
	}

	return w.Syncer.SyncIssue(ctx, issue)
}
