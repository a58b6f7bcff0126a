package wiki

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Metadata is the page metadata carried in the YAML front matter of the
// stored object.
type Metadata struct {
	Title     string    `yaml:"title"`
	Author    string    `yaml:"author"`
	CreatedAt time.Time `yaml:"created"`
	UpdatedAt time.Time `yaml:"updated"`
	// Version increments by exactly one on every successful update.
	Version int      `yaml:"version"`
	Tags    []string `yaml:"tags,omitempty"`
}

// Page is a wiki page as read from the object store.
//
// ETag is the concurrency token of the stored object, not of the index
// entry; it always reflects the most recently read or written object state
// and is the precondition for the next update.
type Page struct {
	Path    string
	Content string
	Meta    Metadata
	ETag    string
}

// Title returns the page title from metadata.
func (p *Page) Title() string { return p.Meta.Title }

const frontMatterFence = "---\n"

// encodePage serializes a page body with its YAML front matter.
func encodePage(meta Metadata, content string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontMatterFence)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&meta); err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	buf.WriteString(frontMatterFence)
	buf.WriteString("\n")
	buf.WriteString(content)
	return buf.Bytes(), nil
}

// decodePage splits a stored object into front matter and body. Objects
// without front matter (for example written by external tooling) decode to
// zero metadata with the whole body as content; the index rebuild path
// tolerates them.
func decodePage(data []byte) (Metadata, string, error) {
	var meta Metadata
	s := string(data)
	if !strings.HasPrefix(s, frontMatterFence) {
		return meta, s, nil
	}
	rest := s[len(frontMatterFence):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return meta, s, nil
	}
	if err := yaml.Unmarshal([]byte(rest[:end+1]), &meta); err != nil {
		return Metadata{}, "", fmt.Errorf("invalid front matter: %w", err)
	}
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")
	return meta, body, nil
}
