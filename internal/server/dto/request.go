package dto

// --- Health ---

// HealthRequest is a request for the health endpoint.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error { return nil }

// --- Pages ---

// ListPagesRequest is a request to list pages, optionally under a prefix.
type ListPagesRequest struct {
	Prefix string `query:"prefix"`
}

// Validate is a no-op for ListPagesRequest.
func (r *ListPagesRequest) Validate() error { return nil }

// GetPageRequest is a request to fetch a single page.
type GetPageRequest struct {
	Path string `path:"path"`
}

// Validate validates the get page request fields.
func (r *GetPageRequest) Validate() error {
	if r.Path == "" {
		return MissingField("path")
	}
	return nil
}

// CreatePageRequest is a request to create a new page.
type CreatePageRequest struct {
	Path    string   `json:"path"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// Validate validates the create page request fields.
func (r *CreatePageRequest) Validate() error {
	if r.Path == "" {
		return MissingField("path")
	}
	return nil
}

// UpdatePageRequest is a request to update an existing page. ETag must be
// the value returned by the last read; the update is rejected with a
// conflict if the page changed since.
type UpdatePageRequest struct {
	Path    string   `path:"path"`
	Content string   `json:"content"`
	ETag    string   `json:"etag"`
	Tags    []string `json:"tags,omitempty"`
}

// Validate validates the update page request fields.
func (r *UpdatePageRequest) Validate() error {
	if r.Path == "" {
		return MissingField("path")
	}
	if r.ETag == "" {
		return MissingField("etag")
	}
	return nil
}

// DeletePageRequest is a request to delete a page.
type DeletePageRequest struct {
	Path string `path:"path"`
}

// Validate validates the delete page request fields.
func (r *DeletePageRequest) Validate() error {
	if r.Path == "" {
		return MissingField("path")
	}
	return nil
}

// SearchPagesRequest is a request to search page metadata.
type SearchPagesRequest struct {
	Query string `query:"q"`
}

// Validate validates the search request fields.
func (r *SearchPagesRequest) Validate() error {
	if r.Query == "" {
		return MissingField("q")
	}
	return nil
}

// GetTreeRequest is a request for the hierarchical page tree.
type GetTreeRequest struct{}

// Validate is a no-op for GetTreeRequest.
func (r *GetTreeRequest) Validate() error { return nil }

// --- Files ---

// ListFilesRequest is a request to list all uploaded files.
type ListFilesRequest struct{}

// Validate is a no-op for ListFilesRequest.
func (r *ListFilesRequest) Validate() error { return nil }

// GetFileRequest is a request for a file's metadata.
type GetFileRequest struct {
	ID string `path:"id"`
}

// Validate validates the get file request fields.
func (r *GetFileRequest) Validate() error {
	if r.ID == "" {
		return MissingField("id")
	}
	return nil
}

// UploadFileRequest is a request to upload a file. Data is base64-encoded.
type UploadFileRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Data        string `json:"data"`
}

// Validate validates the upload request fields.
func (r *UploadFileRequest) Validate() error {
	if r.Filename == "" {
		return MissingField("filename")
	}
	if r.Data == "" {
		return MissingField("data")
	}
	return nil
}

// DeleteFileRequest is a request to delete a file.
type DeleteFileRequest struct {
	ID string `path:"id"`
}

// Validate validates the delete file request fields.
func (r *DeleteFileRequest) Validate() error {
	if r.ID == "" {
		return MissingField("id")
	}
	return nil
}

// FileReferencesRequest is a request for the pages referencing a file.
type FileReferencesRequest struct {
	ID string `path:"id"`
}

// Validate validates the references request fields.
func (r *FileReferencesRequest) Validate() error {
	if r.ID == "" {
		return MissingField("id")
	}
	return nil
}

// --- Admin ---

// ListOrphansRequest is a request for files no page references.
type ListOrphansRequest struct{}

// Validate is a no-op for ListOrphansRequest.
func (r *ListOrphansRequest) Validate() error { return nil }

// CleanupOrphansRequest is a request to delete orphaned files. When IDs is
// empty, all currently orphaned files are deleted.
type CleanupOrphansRequest struct {
	IDs []string `json:"ids,omitempty"`
}

// Validate is a no-op for CleanupOrphansRequest.
func (r *CleanupOrphansRequest) Validate() error { return nil }

// RebuildIndexRequest is a request to rebuild the metadata index documents
// from the stored objects.
type RebuildIndexRequest struct{}

// Validate is a no-op for RebuildIndexRequest.
func (r *RebuildIndexRequest) Validate() error { return nil }

// --- Config ---

// GetConfigRequest is a request for the wiki configuration document.
type GetConfigRequest struct{}

// Validate is a no-op for GetConfigRequest.
func (r *GetConfigRequest) Validate() error { return nil }

// UpdateConfigRequest is a request to replace the wiki configuration.
type UpdateConfigRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Validate validates the update config request fields.
func (r *UpdateConfigRequest) Validate() error {
	if r.Title == "" {
		return MissingField("title")
	}
	return nil
}
