package issuesync

import "github.com/connectorhq/issuesync/graphapi"

// issuesSchema describes Document's shape to the destination. It is a
// compatibility contract: the field list, types, and semantic labels
// must match what the search layer was built against, so do not edit
// it without re-provisioning the connection.
var issuesSchema = &graphapi.Schema{
	BaseType: "microsoft.graph.externalItem",
	Properties: []graphapi.Property{
		{
			Name:          "title",
			Type:          "string",
			Aliases:       []string{"issueTitle"},
			IsSearchable:  true,
			IsQueryable:   true,
			IsRetrievable: true,
			Labels:        []string{"title"},
		},
		{
			Name:          "issueNumber",
			Type:          "int64",
			IsQueryable:   true,
			IsRetrievable: true,
		},
		{
			Name:          "repo",
			Type:          "string",
			IsSearchable:  true,
			IsQueryable:   true,
			IsRetrievable: true,
		},
		{
			Name:          "body",
			Type:          "string",
			Aliases:       []string{"message"},
			IsSearchable:  true,
			IsQueryable:   true,
			IsRetrievable: true,
		},
		{
			Name:          "assignees",
			Type:          "string",
			IsSearchable:  true,
			IsQueryable:   true,
			IsRetrievable: true,
		},
		{
			Name:          "labels",
			Type:          "string",
			IsSearchable:  true,
			IsQueryable:   true,
			IsRetrievable: true,
		},
		{
			Name:          "state",
			Type:          "string",
			IsQueryable:   true,
			IsRetrievable: true,
			IsRefinable:   true,
		},
		{
			Name:          "issueUrl",
			Type:          "string",
			IsRetrievable: true,
			Labels:        []string{"url"},
		},
		{
			Name:          "icon",
			Type:          "string",
			IsRetrievable: true,
			Labels:        []string{"iconUrl"},
		},
		{
			Name:          "updatedAt",
			Type:          "dateTime",
			IsQueryable:   true,
			IsRetrievable: true,
			IsRefinable:   true,
			Labels:        []string{"lastModifiedDateTime"},
		},
		{
			Name:          "lastModifiedBy",
			Type:          "string",
			IsSearchable:  true,
			IsQueryable:   true,
			IsRetrievable: true,
			Labels:        []string{"lastModifiedBy"},
		},
		{
			Name:          "author",
			Type:          "stringCollection",
			IsQueryable:   true,
			IsRetrievable: true,
			IsRefinable:   true,
			Labels:        []string{"authors"},
		},
		{
			Name:          "authorUrl",
			Type:          "string",
			IsRetrievable: true,
		},
		{
			Name:          "statusIcon",
			Type:          "string",
			IsRetrievable: true,
		},
	},
}
