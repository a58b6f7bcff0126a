package wiki

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// fileRefPattern matches a bare filename or file id, with or without an
// extension. Page links (.md) and external URLs are filtered out before
// this is applied; refs that match no indexed file are simply never
// resolved, so a permissive pattern here costs nothing.
var fileRefPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._()-]*$`)

// ExtractFileRefs returns the set of file identifiers referenced from the
// markdown content through image (![alt](ref)) or link ([text](ref))
// destinations. The result is sorted and de-duplicated.
//
// This is a pure function: no I/O, no state. The orphan detection paths
// recompute it from stored page bodies instead of persisting a reference
// graph, because content edits can change references without the file
// repository ever being told.
func ExtractFileRefs(content string) []string {
	src := []byte(content)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	set := map[string]struct{}{}
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var dest string
		switch v := n.(type) {
		case *ast.Image:
			dest = string(v.Destination)
		case *ast.Link:
			dest = string(v.Destination)
		default:
			return ast.WalkContinue, nil
		}
		if ref, ok := candidateRef(dest); ok {
			set[ref] = struct{}{}
		}
		return ast.WalkContinue, nil
	})

	refs := make([]string, 0, len(set))
	for r := range set {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return refs
}

// candidateRef reduces a link destination to a file identifier, rejecting
// external URLs, anchors, and page-to-page links.
func candidateRef(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") {
		return "", false
	}
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "//") || strings.Contains(dest, ":") {
		// Covers http(s), mailto:, data:, and protocol-relative URLs.
		return "", false
	}
	if i := strings.IndexAny(dest, "?#"); i >= 0 {
		dest = dest[:i]
	}
	base := path.Base(dest)
	if strings.HasSuffix(strings.ToLower(base), ".md") {
		return "", false
	}
	if !fileRefPattern.MatchString(base) {
		return "", false
	}
	return base, true
}

// ExtractTitle returns the text of the first level-1 heading, or "".
func ExtractTitle(content string) string {
	src := []byte(content)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	title := ""
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || title != "" {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		title = strings.TrimSpace(nodeText(h, src))
		return ast.WalkStop, nil
	})
	return title
}

// nodeText concatenates the raw text segments beneath n.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// titleForPath falls back to a readable title derived from the path stem.
func titleForPath(p string) string {
	base := strings.TrimSuffix(path.Base(p), ".md")
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return base
}
