package issuesync

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/connectorhq/issuesync/graphapi"
	"github.com/google/go-github/v59/github"
	stripmd "github.com/writeas/go-strip-markdown/v2"
)

const (
	openStatusIcon   = "https://img.shields.io/badge/Open-brightgreen?logo=github"
	closedStatusIcon = "https://img.shields.io/badge/Closed-purple?logo=github"
)

var repoNameRE = regexp.MustCompile(`https://api\.github\.com/repos/([^/]+/[^/]+)`)

// extractRepoName pulls "owner/repo" out of a GitHub API URL. A URL
// that doesn't match yields an empty string, not an error.
func extractRepoName(url string) string {
	m := repoNameRE.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// Document is the normalized projection of an issue for the
// destination index. Its ID is the issue number as a string, which
// makes every upsert idempotent.
type Document struct {
	ID             string
	Title          string
	IssueNumber    int
	Repo           string
	Body           string
	Assignees      string
	Labels         string
	State          string
	IssueURL       string
	Icon           string
	UpdatedAt      time.Time
	LastModifiedBy string
	Author         []string
	AuthorURL      string
	StatusIcon     string
	Content        string
}

// BuildDocument maps an issue plus its timeline and comments to a
// Document. Events and comments must be in the chronological order the
// API returned them.
func BuildDocument(issue *github.Issue, events []*github.Timeline, comments []*github.IssueComment) *Document {
	author := issue.GetUser().GetLogin()

	// The most recent timeline actor modified the issue last. Issues
	// that were never updated have no timeline, in which case the
	// author did.
	lastModifiedBy := author
	if len(events) > 0 {
		if actor := events[len(events)-1].GetActor().GetLogin(); actor != "" {
			lastModifiedBy = actor
		}
	}

	var content strings.Builder
	content.WriteString(stripmd.Strip(issue.GetBody()))
	for _, comment := range comments {
		content.WriteString("\n")
		content.WriteString(stripmd.Strip(comment.GetBody()))
	}

	return &Document{
		ID:             strconv.Itoa(issue.GetNumber()),
		Title:          issue.GetTitle(),
		IssueNumber:    issue.GetNumber(),
		Repo:           extractRepoName(issue.GetURL()),
		Body:           issue.GetBody(),
		Assignees:      joinUsers(issue.Assignees),
		Labels:         joinLabels(issue.Labels),
		State:          issue.GetState(),
		IssueURL:       issue.GetHTMLURL(),
		Icon:           issue.GetUser().GetAvatarURL(),
		UpdatedAt:      issue.GetUpdatedAt().Time,
		LastModifiedBy: lastModifiedBy,
		Author:         []string{author},
		AuthorURL:      issue.GetUser().GetHTMLURL(),
		StatusIcon:     iconForState(issue.GetState()),
		Content:        content.String(),
	}
}

// joinUsers renders assignees as a comma-joined list, or the literal
// "None". Commas inside names are not escaped.
func joinUsers(users []*github.User) string {
	if len(users) == 0 {
		return "None"
	}
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.GetLogin()
	}
	return strings.Join(names, ",")
}

func joinLabels(labels []*github.Label) string {
	if len(labels) == 0 {
		return "None"
	}
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.GetName()
	}
	return strings.Join(names, ",")
}

// iconForState selects the status badge. Issues are only ever open or
// closed; anything else is a bug in the caller.
func iconForState(state string) string {
	switch state {
	case "open":
		return openStatusIcon
	case "closed":
		return closedStatusIcon
	default:
		panic("unknown issue state: " + state)
	}
}

// Item converts the document to the destination's wire shape. The
// author property carries the "authors" semantic label, which requires
// a collection even for a single value.
func (d *Document) Item() *graphapi.Item {
	return &graphapi.Item{
		ID: d.ID,
		ACL: []graphapi.ACLEntry{
			{
				Type:       "everyone",
				Value:      "everyone",
				AccessType: "grant",
			},
		},
		Properties: map[string]any{
			"title":             d.Title,
			"issueNumber":       d.IssueNumber,
			"repo":              d.Repo,
			"body":              d.Body,
			"assignees":         d.Assignees,
			"labels":            d.Labels,
			"state":             d.State,
			"issueUrl":          d.IssueURL,
			"icon":              d.Icon,
			"updatedAt":         d.UpdatedAt.Format(time.RFC3339),
			"lastModifiedBy":    d.LastModifiedBy,
			"author@odata.type": "Collection(String)",
			"author":            d.Author,
			"authorUrl":         d.AuthorURL,
			"statusIcon":        d.StatusIcon,
		},
		Content: &graphapi.ItemContent{
			Type:  "text",
			Value: d.Content,
		},
	}
}
