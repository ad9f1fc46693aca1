package issuesync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/connectorhq/issuesync/httpjson"
	"github.com/go-chi/chi/v5"
)

// Request bodies for the issue management endpoints.
type updateLabelsRequest struct {
	Labels []string `json:"labels"`
}

type updateAssignmentsRequest struct {
	Users []string `json:"users"`
}

func issueNumber(r *http.Request) (int, error) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		return 0, fmt.Errorf("issue number must be an integer")
	}
	return number, nil
}

func accepted() *httpjson.Response {
	return &httpjson.Response{
		Status: http.StatusAccepted,
		Body:   "Success",
	}
}

func (s *Service) labelIssue(w http.ResponseWriter, r *http.Request) *httpjson.Response {
	number, err := issueNumber(r)
	if err != nil {
		return httpjson.Error(http.StatusBadRequest, "LabelIssueError", err)
	}
	var req updateLabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httpjson.Error(http.StatusBadRequest, "LabelIssueError", err)
	}

	s.Log.Info("received request to add labels",
		"labels", strings.Join(req.Labels, ","),
		"issue", number,
	)

	if err := s.Syncer.GitHub.AddLabels(r.Context(), number, req.Labels); err != nil {
		return httpjson.Error(http.StatusBadRequest, "LabelIssueError", err)
	}
	return accepted()
}

func (s *Service) unlabelIssue(w http.ResponseWriter, r *http.Request) *httpjson.Response {
	number, err := issueNumber(r)
	if err != nil {
		return httpjson.Error(http.StatusBadRequest, "UnlabelIssueError", err)
	}
	var req updateLabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httpjson.Error(http.StatusBadRequest, "UnlabelIssueError", err)
	}

	s.Log.Info("received request to remove labels",
		"labels", strings.Join(req.Labels, ","),
		"issue", number,
	)

	if err := s.Syncer.GitHub.RemoveLabels(r.Context(), number, req.Labels); err != nil {
		return httpjson.Error(http.StatusBadRequest, "UnlabelIssueError", err)
	}
	return accepted()
}

func (s *Service) assignIssue(w http.ResponseWriter, r *http.Request) *httpjson.Response {
	number, err := issueNumber(r)
	if err != nil {
		return httpjson.Error(http.StatusBadRequest, "AssignIssueError", err)
	}
	var req updateAssignmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httpjson.Error(http.StatusBadRequest, "AssignIssueError", err)
	}

	s.Log.Info("received request to assign issue",
		"issue", number,
		"users", strings.Join(req.Users, ","),
	)

	if err := s.Syncer.GitHub.Assign(r.Context(), number, req.Users); err != nil {
		return httpjson.Error(http.StatusBadRequest, "AssignIssueError", err)
	}
	return accepted()
}

func (s *Service) unassignIssue(w http.ResponseWriter, r *http.Request) *httpjson.Response {
	number, err := issueNumber(r)
	if err != nil {
		return httpjson.Error(http.StatusBadRequest, "UnassignIssueError", err)
	}
	var req updateAssignmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httpjson.Error(http.StatusBadRequest, "UnassignIssueError", err)
	}

	s.Log.Info("received request to unassign issue",
		"issue", number,
		"users", strings.Join(req.Users, ","),
	)

	if err := s.Syncer.GitHub.Unassign(r.Context(), number, req.Users); err != nil {
		return httpjson.Error(http.StatusBadRequest, "UnassignIssueError", err)
	}
	return accepted()
}

func (s *Service) closeIssue(w http.ResponseWriter, r *http.Request) *httpjson.Response {
	number, err := issueNumber(r)
	if err != nil {
		return httpjson.Error(http.StatusBadRequest, "CloseIssueError", err)
	}

	s.Log.Info("received request to close issue", "issue", number)

	if err := s.Syncer.GitHub.Close(r.Context(), number); err != nil {
		return httpjson.Error(http.StatusBadRequest, "CloseIssueError", err)
	}
	return accepted()
}
