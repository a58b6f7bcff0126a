package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/maruel/ksid"

	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/objstore"
)

// DefaultMaxFileSize caps uploads when no explicit limit is configured.
const DefaultMaxFileSize = 25 << 20

// deniedExtensions are never accepted as uploads, regardless of declared
// content type.
var deniedExtensions = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".bat": true, ".cmd": true,
	".com": true, ".scr": true, ".ps1": true, ".sh": true, ".msi": true,
	".jar": true, ".vbs": true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._()-]+`)

var errIDCollision = errors.New("file id collision")

// FileRepository implements file CRUD plus orphan detection over the file
// blobs and the file index document.
type FileRepository struct {
	store   objstore.Store
	idx     *index.Store
	maxSize int64
}

// NewFileRepository creates a file repository. maxSize <= 0 selects
// DefaultMaxFileSize.
func NewFileRepository(store objstore.Store, idx *index.Store, maxSize int64) *FileRepository {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &FileRepository{store: store, idx: idx, maxSize: maxSize}
}

// MaxSize returns the configured upload size limit in bytes.
func (r *FileRepository) MaxSize() int64 { return r.maxSize }

// Upload validates and stores a file, then indexes it. The id is the
// sanitized filename; a ksid suffix disambiguates collisions, so the id in
// the returned entry is the one to reference from page content.
func (r *FileRepository) Upload(ctx context.Context, filename, contentType string, data []byte) (*index.FileEntry, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidFileType)
	}
	ext := strings.ToLower(path.Ext(filename))
	if deniedExtensions[ext] {
		return nil, fmt.Errorf("%w: extension %q is not allowed", ErrInvalidFileType, ext)
	}
	if int64(len(data)) > r.maxSize {
		return nil, fmt.Errorf("%w: file exceeds %d MB", ErrFileTooLarge, r.maxSize>>20)
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Pick an id that is free as of the last index snapshot. A concurrent
	// upload of the same name can still take it first; the CAS'd index
	// insert detects that, and the loop re-disambiguates. ksid suffixes are
	// unique, so two rounds settle it.
	doc, err := r.idx.Files(ctx)
	if err != nil {
		return nil, err
	}
	id := sanitizeFilename(filename)
	if doc.Get(id) != nil {
		id = disambiguate(id)
	}
	category := FileCategory(contentType)

	for attempt := 0; attempt < 3; attempt++ {
		_, err := r.store.Put(ctx, fileKey(category, id), data, objstore.PutOptions{
			IfNoneMatch: true,
			ContentType: contentType,
		})
		if err != nil {
			if objstore.IsPreconditionFailed(err) {
				id = disambiguate(id)
				continue
			}
			return nil, err
		}
		entry := index.FileEntry{
			ID:          id,
			Filename:    filename,
			Size:        int64(len(data)),
			ContentType: contentType,
			UploadedAt:  time.Now().UTC(),
		}
		_, err = r.idx.ApplyFiles(ctx, func(d *index.FileIndex) error {
			if d.Get(id) != nil {
				return errIDCollision
			}
			d.Upsert(entry)
			return nil
		})
		if errors.Is(err, errIDCollision) {
			// Lost the id to a concurrent upload after our blob write.
			if derr := r.store.Delete(ctx, fileKey(category, id)); derr != nil {
				slog.WarnContext(ctx, "Failed to clean up collided upload blob", "id", id, "err", derr)
			}
			id = disambiguate(id)
			continue
		}
		if err != nil {
			slog.WarnContext(ctx, "File stored but index update failed; rebuild will heal", "id", id, "err", err)
			return &entry, err
		}
		return &entry, nil
	}
	return nil, fmt.Errorf("could not allocate a unique id for %q", filename)
}

// Get returns the index entry and blob for id.
func (r *FileRepository) Get(ctx context.Context, id string) (*index.FileEntry, []byte, error) {
	doc, err := r.idx.Files(ctx)
	if err != nil {
		return nil, nil, err
	}
	entry := doc.Get(id)
	if entry == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	data, _, err := r.store.Get(ctx, fileKey(FileCategory(entry.ContentType), entry.ID))
	if err != nil {
		return nil, nil, err
	}
	return entry, data, nil
}

// Delete removes the blob and the index entry for id.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	doc, err := r.idx.Files(ctx)
	if err != nil {
		return err
	}
	entry := doc.Get(id)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if err := r.store.Delete(ctx, fileKey(FileCategory(entry.ContentType), entry.ID)); err != nil {
		return err
	}
	_, err = r.idx.ApplyFiles(ctx, func(d *index.FileIndex) error {
		d.Remove(id)
		return nil
	})
	return err
}

// List returns every indexed file.
func (r *FileRepository) List(ctx context.Context) ([]index.FileEntry, error) {
	doc, err := r.idx.Files(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Files, nil
}

// References returns the paths of all pages whose content references the
// file, by id or by original filename.
func (r *FileRepository) References(ctx context.Context, id string) ([]string, error) {
	doc, err := r.idx.Files(ctx)
	if err != nil {
		return nil, err
	}
	entry := doc.Get(id)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	rev, err := r.reverseIndex(ctx)
	if err != nil {
		return nil, err
	}
	return referrersOf(rev, entry), nil
}

// FindOrphaned resolves the given references (file ids or filenames, as
// extracted from a deleted page) against the file index and returns the
// ids that no remaining page references.
func (r *FileRepository) FindOrphaned(ctx context.Context, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	doc, err := r.idx.Files(ctx)
	if err != nil {
		return nil, err
	}
	rev, err := r.reverseIndex(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var orphaned []string
	for _, ref := range refs {
		entry := resolveRef(doc, ref)
		if entry == nil || seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		if len(referrersOf(rev, entry)) == 0 {
			orphaned = append(orphaned, entry.ID)
		}
	}
	sort.Strings(orphaned)
	return orphaned, nil
}

// AllOrphaned scans every page body once to build a reverse reference
// index, then returns every indexed file with zero referrers.
func (r *FileRepository) AllOrphaned(ctx context.Context) ([]index.FileEntry, error) {
	doc, err := r.idx.Files(ctx)
	if err != nil {
		return nil, err
	}
	rev, err := r.reverseIndex(ctx)
	if err != nil {
		return nil, err
	}
	var orphaned []index.FileEntry
	for _, entry := range doc.Files {
		if len(referrersOf(rev, &entry)) == 0 {
			orphaned = append(orphaned, entry)
		}
	}
	return orphaned, nil
}

// DeleteOrphaned deletes the given file ids best-effort: a failure on one
// id does not abort the rest. It returns the ids that failed along with
// the joined errors. Ids that are already gone count as deleted.
func (r *FileRepository) DeleteOrphaned(ctx context.Context, ids []string) ([]string, error) {
	var failed []string
	var errs []error
	for _, id := range ids {
		err := r.Delete(ctx, id)
		if err != nil && !errors.Is(err, ErrFileNotFound) {
			failed = append(failed, id)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return failed, errors.Join(errs...)
}

// RebuildIndex reconstructs metadata/files.json from a listing of the
// files/ prefix. Entries already indexed keep their recorded metadata;
// objects written by external tooling get entries derived from the key.
func (r *FileRepository) RebuildIndex(ctx context.Context) (*index.FileIndex, error) {
	existing, err := r.idx.Files(ctx)
	if err != nil {
		return nil, err
	}
	var entries []index.FileEntry
	for info, err := range r.store.List(ctx, filePrefix) {
		if err != nil {
			return nil, err
		}
		rest := strings.TrimPrefix(info.Key, filePrefix)
		category, id, ok := strings.Cut(rest, "/")
		if !ok || id == "" {
			continue
		}
		if cur := existing.Get(id); cur != nil {
			entries = append(entries, *cur)
			continue
		}
		ct := mime.TypeByExtension(strings.ToLower(path.Ext(id)))
		if ct == "" || FileCategory(ct) != category {
			ct = fallbackContentType(category)
		}
		entries = append(entries, index.FileEntry{
			ID:          id,
			Filename:    id,
			Size:        info.Size,
			ContentType: ct,
			UploadedAt:  time.Now().UTC(),
		})
	}
	return r.idx.ApplyFiles(ctx, func(d *index.FileIndex) error {
		d.Files = d.Files[:0]
		for _, e := range entries {
			d.Upsert(e)
		}
		return nil
	})
}

// reverseIndex maps every reference extracted from every indexed page to
// the paths of the pages containing it. Built in one pass so the
// all-orphans scan is O(pages + files), not O(pages * files).
func (r *FileRepository) reverseIndex(ctx context.Context) (map[string][]string, error) {
	pages, err := r.idx.Pages(ctx)
	if err != nil {
		return nil, err
	}
	rev := map[string][]string{}
	for _, e := range pages.Pages {
		data, _, err := r.store.Get(ctx, pageKey(e.Path))
		if err != nil {
			if objstore.IsNotFound(err) {
				// Dangling index entry; rebuild will scrub it.
				continue
			}
			return nil, err
		}
		_, content, err := decodePage(data)
		if err != nil {
			continue
		}
		for _, ref := range ExtractFileRefs(content) {
			rev[ref] = append(rev[ref], e.Path)
		}
	}
	return rev, nil
}

// referrersOf returns the unique page paths referencing the entry by id or
// by original filename.
func referrersOf(rev map[string][]string, entry *index.FileEntry) []string {
	seen := map[string]bool{}
	var paths []string
	for _, ref := range []string{entry.ID, entry.Filename} {
		for _, p := range rev[ref] {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// resolveRef finds the file entry a markdown reference points at, matching
// the id first and the original filename second.
func resolveRef(doc *index.FileIndex, ref string) *index.FileEntry {
	if e := doc.Get(ref); e != nil {
		return e
	}
	for i := range doc.Files {
		if doc.Files[i].Filename == ref {
			return &doc.Files[i]
		}
	}
	return nil
}

// sanitizeFilename reduces a filename to the id alphabet.
func sanitizeFilename(name string) string {
	name = path.Base(strings.TrimSpace(name))
	name = unsafeFilenameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "file"
	}
	return name
}

// disambiguate inserts a k-sortable unique suffix before the extension.
func disambiguate(id string) string {
	ext := path.Ext(id)
	stem := strings.TrimSuffix(id, ext)
	return fmt.Sprintf("%s-%s%s", stem, ksid.NewID().String(), ext)
}

func fallbackContentType(category string) string {
	switch category {
	case "images":
		return "image/png"
	case "videos":
		return "video/mp4"
	case "audio":
		return "audio/mpeg"
	case "documents":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
