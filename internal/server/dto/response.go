package dto

// --- Common Responses ---

// OkResponse is a simple success response.
type OkResponse struct {
	Ok bool `json:"ok"`
}

// HealthResponse reports server liveness and build version.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// --- Page Responses ---

// PageSummary is a brief representation of a page for list responses.
type PageSummary struct {
	Path      string   `json:"path"`
	Title     string   `json:"title"`
	Author    string   `json:"author,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// ListPagesResponse is a response containing a list of pages.
type ListPagesResponse struct {
	Pages []PageSummary `json:"pages"`
}

// PageResponse is a full page with content and its current ETag.
type PageResponse struct {
	Path      string   `json:"path"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Author    string   `json:"author,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Version   int      `json:"version"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	ETag      string   `json:"etag"`
}

// DeletePageResponse reports a deletion and the files it orphaned.
type DeletePageResponse struct {
	Ok            bool     `json:"ok"`
	OrphanedFiles []string `json:"orphanedFiles,omitempty"`
}

// SearchPagesResponse is a response containing ranked search results.
type SearchPagesResponse struct {
	Pages []PageSummary `json:"pages"`
}

// TreeNode is a node in the hierarchical page tree.
type TreeNode struct {
	Path     string     `json:"path"`
	Title    string     `json:"title"`
	IsFolder bool       `json:"isFolder"`
	Children []TreeNode `json:"children,omitempty"`
}

// GetTreeResponse is a response containing the page tree.
type GetTreeResponse struct {
	Tree []TreeNode `json:"tree"`
}

// --- File Responses ---

// FileResponse is the metadata of an uploaded file.
type FileResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Category    string `json:"category"`
	UploadedAt  string `json:"uploaded_at"`
	// URL is the API path serving the raw file bytes.
	URL string `json:"url"`
}

// ListFilesResponse is a response containing all uploaded files.
type ListFilesResponse struct {
	Files []FileResponse `json:"files"`
}

// FileReferencesResponse lists the pages that reference a file.
type FileReferencesResponse struct {
	ID    string   `json:"id"`
	Pages []string `json:"pages"`
}

// ListOrphansResponse lists files no page references.
type ListOrphansResponse struct {
	Files []FileResponse `json:"files"`
}

// CleanupOrphansResponse reports the result of an orphan cleanup.
type CleanupOrphansResponse struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
}

// RebuildIndexResponse reports the size of the rebuilt index documents.
type RebuildIndexResponse struct {
	Pages int `json:"pages"`
	Files int `json:"files"`
}

// --- Config Responses ---

// ConfigResponse is the wiki configuration document.
type ConfigResponse struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
