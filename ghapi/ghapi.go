// Package ghapi wraps the GitHub REST API for a single repository and
// applies a rate-limit-aware retry policy to every call.
package ghapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/go-github/v59/github"
)

// DefaultRetryBudget is the number of retries each logical call gets
// after a rate-limit response before the error is propagated.
const DefaultRetryBudget = 3

type sleepFunc func(context.Context, time.Duration) error

// Client calls the GitHub API for one configured repository.
type Client struct {
	Log    *slog.Logger
	Owner  string
	Repo   string
	GitHub *github.Client

	// RetryBudget overrides DefaultRetryBudget when positive.
	RetryBudget int

	// sleep is swapped out in tests to record waits instead of
	// performing them.
	sleep sleepFunc
}

func (c *Client) budget() int {
	if c.RetryBudget > 0 {
		return c.RetryBudget
	}
	return DefaultRetryBudget
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// rateLimitWait reports whether err is a rate-limit signal and, if so,
// how long the server asked us to wait before retrying.
func rateLimitWait(err error) (time.Duration, bool) {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return time.Until(rle.Rate.Reset.Time), true
	}
	var arle *github.AbuseRateLimitError
	if errors.As(err, &arle) {
		if arle.RetryAfter != nil {
			return *arle.RetryAfter, true
		}
		return time.Minute, true
	}
	return 0, false
}

// withRetry runs op, sleeping for the server-specified duration and
// retrying whenever op fails with a rate-limit error and budget
// remains. Any other error propagates immediately.
func withRetry[T any](ctx context.Context, c *Client, op func(context.Context) (T, error)) (T, error) {
	retries := c.budget()
	for {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		wait, ok := rateLimitWait(err)
		if !ok || retries <= 0 {
			var zero T
			return zero, err
		}
		c.Log.Warn("rate limit exceeded",
			"wait", wait,
			"retries_remaining", retries,
		)
		retries--
		if werr := c.wait(ctx, wait); werr != nil {
			var zero T
			return zero, werr
		}
	}
}

// Issue fetches a single issue by number.
func (c *Client) Issue(ctx context.Context, number int) (*github.Issue, error) {
	return withRetry(ctx, c, func(ctx context.Context) (*github.Issue, error) {
		issue, _, err := c.GitHub.Issues.Get(ctx, c.Owner, c.Repo, number)
		return issue, err
	})
}

// Comments fetches all comments on an issue in chronological order.
func (c *Client) Comments(ctx context.Context, number int) ([]*github.IssueComment, error) {
	return withRetry(ctx, c, func(ctx context.Context) ([]*github.IssueComment, error) {
		return Page(ctx, func(ctx context.Context, opt *github.ListOptions) ([]*github.IssueComment, *github.Response, error) {
			return c.GitHub.Issues.ListComments(ctx, c.Owner, c.Repo, number, &github.IssueListCommentsOptions{
				ListOptions: *opt,
			})
		}, -1)
	})
}

// Timeline fetches all timeline events on an issue in chronological
// order. The last event's actor is who most recently modified the
// issue.
func (c *Client) Timeline(ctx context.Context, number int) ([]*github.Timeline, error) {
	return withRetry(ctx, c, func(ctx context.Context) ([]*github.Timeline, error) {
		return Page(ctx, func(ctx context.Context, opt *github.ListOptions) ([]*github.Timeline, *github.Response, error) {
			return c.GitHub.Issues.ListIssueTimeline(ctx, c.Owner, c.Repo, number, opt)
		}, -1)
	})
}

// AllIssues lists every issue in the repository, in any state, with
// pull requests filtered out. The issues listing endpoint returns both.
func (c *Client) AllIssues(ctx context.Context) ([]*github.Issue, error) {
	issues, err := Page(ctx, func(ctx context.Context, opt *github.ListOptions) ([]*github.Issue, *github.Response, error) {
		return c.GitHub.Issues.ListByRepo(ctx, c.Owner, c.Repo, &github.IssueListByRepoOptions{
			State:       "all",
			ListOptions: *opt,
		})
	}, -1)
	if err != nil {
		return nil, err
	}
	return OnlyTrueIssues(issues), nil
}

// AddLabels adds labels to an issue.
func (c *Client) AddLabels(ctx context.Context, number int, labels []string) error {
	_, err := withRetry(ctx, c, func(ctx context.Context) (struct{}, error) {
		_, _, err := c.GitHub.Issues.AddLabelsToIssue(ctx, c.Owner, c.Repo, number, labels)
		return struct{}{}, err
	})
	return err
}

// RemoveLabels removes labels from an issue. The API takes one label
// per call.
func (c *Client) RemoveLabels(ctx context.Context, number int, labels []string) error {
	_, err := withRetry(ctx, c, func(ctx context.Context) (struct{}, error) {
		for _, label := range labels {
			if _, err := c.GitHub.Issues.RemoveLabelForIssue(ctx, c.Owner, c.Repo, number, label); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	return err
}

// Assign assigns users to an issue.
func (c *Client) Assign(ctx context.Context, number int, users []string) error {
	_, err := withRetry(ctx, c, func(ctx context.Context) (struct{}, error) {
		_, _, err := c.GitHub.Issues.AddAssignees(ctx, c.Owner, c.Repo, number, users)
		return struct{}{}, err
	})
	return err
}

// Unassign removes users from an issue.
func (c *Client) Unassign(ctx context.Context, number int, users []string) error {
	_, err := withRetry(ctx, c, func(ctx context.Context) (struct{}, error) {
		_, _, err := c.GitHub.Issues.RemoveAssignees(ctx, c.Owner, c.Repo, number, users)
		return struct{}{}, err
	})
	return err
}

// Close closes an issue.
func (c *Client) Close(ctx context.Context, number int) error {
	_, err := withRetry(ctx, c, func(ctx context.Context) (struct{}, error) {
		_, _, err := c.GitHub.Issues.Edit(ctx, c.Owner, c.Repo, number, &github.IssueRequest{
			State: github.String("closed"),
		})
		return struct{}{}, err
	})
	return err
}
