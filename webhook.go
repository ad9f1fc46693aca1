package issuesync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ammario/prefixsuffix"
	"github.com/connectorhq/issuesync/httpjson"
	githook "github.com/go-playground/webhooks/v6/github"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	eventHeader     = "X-GitHub-Event"
)

// webhook receives issue notifications from GitHub. Outcomes: 400 when
// required headers are missing, 401 when the signature doesn't check
// out, 202 otherwise. Only recognized event types produce a work item;
// everything else is accepted and dropped so the sender won't retry.
func (s *Service) webhook(w http.ResponseWriter, r *http.Request) *httpjson.Response {
	signature := r.Header.Get(signatureHeader)
	event := r.Header.Get(eventHeader)
	if signature == "" || event == "" {
		return httpjson.Error(http.StatusBadRequest, "MissingHeaders",
			fmt.Errorf("%s and %s headers are required", signatureHeader, eventHeader))
	}

	// The signature covers the body exactly as received. Only the
	// logging below is allowed to re-encode it.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return httpjson.Error(http.StatusBadRequest, "BadPayload", err)
	}

	if s.LogPayloads {
		s.logPayload(r, body)
	}

	if !verifySignature(body, signature, s.WebhookSecret, s.Log) {
		return httpjson.Error(http.StatusUnauthorized, "InvalidSignature",
			fmt.Errorf("signature validation failed"))
	}

	if !strings.EqualFold(event, "issues") && !strings.EqualFold(event, "issue_comment") {
		s.Log.Warn("unexpected event type", "event", event)
		return &httpjson.Response{
			Status: http.StatusAccepted,
			Body:   httpjson.M{"message": "event ignored"},
		}
	}

	item, action, err := workItemFromPayload(event, body)
	if err != nil {
		return httpjson.Error(http.StatusBadRequest, "BadPayload", err)
	}

	s.Log.Info("event received",
		"action", action,
		"issue", item.IssueNumber,
		"repo", item.Owner+"/"+item.Repo,
	)

	// The 202 and the enqueue are one logical action. If the enqueue
	// is lost the sync is corrected by the next webhook or full crawl,
	// so we log instead of attempting a two-phase commit.
	if err := s.Queue.Enqueue(r.Context(), *item); err != nil {
		s.Log.Error("enqueue work item lost", "issue", item.IssueNumber, "error", err)
	}

	return &httpjson.Response{
		Status: http.StatusAccepted,
		Body:   httpjson.M{"message": "notification accepted"},
	}
}

// workItemFromPayload parses the few fields the worker needs from a
// recognized event. Everything else in the payload is treated as
// untrusted and stale.
func workItemFromPayload(event string, body []byte) (*WorkItem, string, error) {
	var (
		action   string
		number   int
		fullName string
	)
	switch {
	case strings.EqualFold(event, "issues"):
		var payload githook.IssuesPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, "", fmt.Errorf("parse issues payload: %w", err)
		}
		action = payload.Action
		number = int(payload.Issue.Number)
		fullName = payload.Repository.FullName
	case strings.EqualFold(event, "issue_comment"):
		var payload githook.IssueCommentPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, "", fmt.Errorf("parse issue_comment payload: %w", err)
		}
		action = payload.Action
		number = int(payload.Issue.Number)
		fullName = payload.Repository.FullName
	}

	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok {
		return nil, "", fmt.Errorf("malformed repository name %q", fullName)
	}

	return &WorkItem{
		Owner:       owner,
		Repo:        repo,
		IssueNumber: number,
	}, action, nil
}

// logPayload logs a pretty-printed, truncated copy of the request for
// debugging. The raw bytes stay untouched for signature verification.
func (s *Service) logPayload(r *http.Request, body []byte) {
	for name, values := range r.Header {
		s.Log.Debug("webhook header", "name", name, "value", strings.Join(values, ","))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		s.Log.Debug("webhook body is not valid JSON", "error", err)
		return
	}

	saver := prefixsuffix.Saver{
		// Max 4000 characters per payload.
		N: 4000,
	}
	saver.Write(pretty.Bytes())
	s.Log.Debug("webhook body", "body", string(saver.Bytes()))
}
