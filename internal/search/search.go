// Package search finds documents by name and description.
package search

import "context"

// Query describes a search request. Empty AreaID or ModuleType means any.
type Query struct {
	Text       string
	AreaID     string
	ModuleType string
	Limit      int
}

// Hit is a single matching document.
type Hit struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	FileType    string `json:"fileType"`
	FolderID    string `json:"folderId"`
	AreaID      string `json:"areaId"`
	ModuleType  string `json:"moduleType"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Hit  `json:"results"`
	Total   int    `json:"total"`
	Query   string `json:"query"`
	Engine  string `json:"engine"`
}

// Searcher can execute a search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Hit, int, error)
	Healthy() bool
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FileType    string `json:"fileType"`
	FolderID    string `json:"folderId"`
	AreaID      string `json:"areaId"`
	ModuleType  string `json:"moduleType"`
}

// Index is the write side of a search engine.
type Index interface {
	Searcher
	IndexDocument(doc DocumentRecord) error
	IndexDocuments(docs []DocumentRecord) error
	DeleteDocument(id string) error
}
