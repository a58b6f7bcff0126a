// Package wiki implements the repository layer of the wiki: page and file
// CRUD on top of the object store, with the metadata index documents kept
// consistent through bounded compare-and-swap, and referential integrity
// (orphaned file detection) recomputed from page content.
//
// Object key layout (fixed, preserved for compatibility):
//
//	pages/<path>           one object per page, markdown with front matter
//	files/<category>/<id>  one object per uploaded file
//	metadata/pages.json    page index document
//	metadata/files.json    file index document
//	config/wiki.json       site configuration
package wiki

import (
	"strings"
)

const (
	pagePrefix = "pages/"
	filePrefix = "files/"

	// ConfigKey is the bucket key of the site configuration document.
	ConfigKey = "config/wiki.json"
)

// NormalizePath canonicalizes a caller-supplied page path: trims slashes
// and whitespace and appends the .md extension when missing. Returns an
// empty string for paths that cannot name a page.
func NormalizePath(path string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return ""
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ""
		}
	}
	if strings.ContainsAny(path, "\\\x00") {
		return ""
	}
	if !strings.HasSuffix(path, ".md") {
		path += ".md"
	}
	return path
}

func pageKey(path string) string { return pagePrefix + path }

func fileKey(category, id string) string { return filePrefix + category + "/" + id }

// FileCategory buckets a content type into the key namespace used under
// files/. It must stay deterministic: the category is not stored in the
// file index, it is re-derived from the content type on every access.
func FileCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "images"
	case strings.HasPrefix(contentType, "video/"):
		return "videos"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case contentType == "application/pdf" || strings.HasPrefix(contentType, "text/"):
		return "documents"
	default:
		return "attachments"
	}
}
