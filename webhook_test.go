package issuesync

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemQueue) {
	t.Helper()
	queue := NewMemQueue(8)
	srv := &Service{
		Log:           discardLogger(),
		Queue:         queue,
		WebhookSecret: "It's a Secret to Everybody",
	}
	srv.Init()
	return srv, queue
}

func postWebhook(srv *Service, body, signature, event string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	if event != "" {
		req.Header.Set("X-GitHub-Event", event)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

const issuesOpenedBody = `{
	"action": "opened",
	"issue": {"number": 42},
	"repository": {"full_name": "acme/widgets"}
}`

func TestWebhook(t *testing.T) {
	t.Parallel()

	t.Run("AcceptedAndQueued", func(t *testing.T) {
		t.Parallel()
		srv, queue := newTestService(t)

		w := postWebhook(srv, issuesOpenedBody, sign([]byte(issuesOpenedBody), srv.WebhookSecret), "issues")
		require.Equal(t, http.StatusAccepted, w.Code)

		require.Len(t, queue.Items(), 1)
		item := <-queue.Items()
		require.Equal(t, WorkItem{Owner: "acme", Repo: "widgets", IssueNumber: 42}, item)
	})

	t.Run("IssueComment", func(t *testing.T) {
		t.Parallel()
		srv, queue := newTestService(t)

		body := `{"action":"created","issue":{"number":7},"repository":{"full_name":"acme/widgets"}}`
		w := postWebhook(srv, body, sign([]byte(body), srv.WebhookSecret), "issue_comment")
		require.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, queue.Items(), 1)
	})

	t.Run("BadSignature", func(t *testing.T) {
		t.Parallel()
		srv, queue := newTestService(t)

		w := postWebhook(srv, issuesOpenedBody, sign([]byte(issuesOpenedBody), "wrong"), "issues")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Empty(t, queue.Items())
	})

	t.Run("MissingHeaders", func(t *testing.T) {
		t.Parallel()
		srv, queue := newTestService(t)

		w := postWebhook(srv, issuesOpenedBody, "", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Empty(t, queue.Items())

		w = postWebhook(srv, issuesOpenedBody, sign([]byte(issuesOpenedBody), srv.WebhookSecret), "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Empty(t, queue.Items())
	})

	t.Run("UnrecognizedEventAccepted", func(t *testing.T) {
		t.Parallel()
		srv, queue := newTestService(t)

		// Accepted so the sender does not retry, but no work item.
		w := postWebhook(srv, issuesOpenedBody, sign([]byte(issuesOpenedBody), srv.WebhookSecret), "push")
		require.Equal(t, http.StatusAccepted, w.Code)
		require.Empty(t, queue.Items())
	})

	t.Run("NoSecretConfigured", func(t *testing.T) {
		t.Parallel()
		srv, queue := newTestService(t)
		srv.WebhookSecret = ""

		w := postWebhook(srv, issuesOpenedBody, sign([]byte(issuesOpenedBody), ""), "issues")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Empty(t, queue.Items())
	})
}
