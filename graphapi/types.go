package graphapi

// Connection is the destination-side container for one repository's
// documents.
type Connection struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Description      string            `json:"description,omitempty"`
	State            string            `json:"state,omitempty"`
	ActivitySettings *ActivitySettings `json:"activitySettings,omitempty"`
	SearchSettings   *SearchSettings   `json:"searchSettings,omitempty"`
}

// ActivitySettings teaches the destination how to map a shared issue
// URL back to an indexed item.
type ActivitySettings struct {
	URLToItemResolvers []ItemIDResolver `json:"urlToItemResolvers"`
}

type ItemIDResolver struct {
	ODataType    string       `json:"@odata.type"`
	Priority     int          `json:"priority"`
	ItemID       string       `json:"itemId"`
	URLMatchInfo URLMatchInfo `json:"urlMatchInfo"`
}

type URLMatchInfo struct {
	BaseURLs   []string `json:"baseUrls"`
	URLPattern string   `json:"urlPattern"`
}

// SearchSettings carries the display templates for search results.
type SearchSettings struct {
	SearchResultTemplates []ResultTemplate `json:"searchResultTemplates"`
}

type ResultTemplate struct {
	ID       string         `json:"id"`
	Priority int            `json:"priority"`
	Layout   map[string]any `json:"layout"`
}

// Schema describes the shape of indexed items to the destination.
// Registration is asynchronous and polled to completion.
type Schema struct {
	BaseType   string     `json:"baseType"`
	Properties []Property `json:"properties"`
}

type Property struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Aliases       []string `json:"aliases,omitempty"`
	IsSearchable  bool     `json:"isSearchable"`
	IsQueryable   bool     `json:"isQueryable"`
	IsRetrievable bool     `json:"isRetrievable"`
	IsRefinable   bool     `json:"isRefinable"`
	Labels        []string `json:"labels,omitempty"`
}

// Item is one indexable document. The ID is the idempotency key:
// putting the same ID again replaces, never duplicates.
type Item struct {
	ID         string         `json:"id"`
	ACL        []ACLEntry     `json:"acl"`
	Properties map[string]any `json:"properties"`
	Content    *ItemContent   `json:"content,omitempty"`
}

type ACLEntry struct {
	Type       string `json:"type"`
	Value      string `json:"value"`
	AccessType string `json:"accessType"`
}

type ItemContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type connectionOperation struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}
