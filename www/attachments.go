package www

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"batchtrack/config"
	"batchtrack/record"
	"batchtrack/store"

	"github.com/google/uuid"
)

// attachmentStore saves uploaded files under
// <root>/<product>/<batch>/<stage>/<family>/<uuid>_<name>.
type attachmentStore struct {
	root     string
	prefixes []string
	exts     map[string]bool
	maxBytes int64
}

func newAttachmentStore(cfg config.AttachmentsConfig) *attachmentStore {
	exts := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, e := range cfg.AllowedExtensions {
		exts[strings.ToLower(e)] = true
	}
	mb := cfg.MaxUploadMB
	if mb <= 0 {
		mb = 32
	}
	return &attachmentStore{
		root:     cfg.Root,
		prefixes: cfg.AllowedMimePrefixes,
		exts:     exts,
		maxBytes: mb << 20,
	}
}

// allowed accepts any file when no allow-list is configured, otherwise a
// matching mime prefix or extension.
func (s *attachmentStore) allowed(name, mimeType string) bool {
	if len(s.prefixes) == 0 && len(s.exts) == 0 {
		return true
	}
	mimeType = strings.ToLower(mimeType)
	for _, p := range s.prefixes {
		if strings.HasPrefix(mimeType, strings.ToLower(p)) {
			return true
		}
	}
	return s.exts[strings.ToLower(filepath.Ext(name))]
}

func sanitizeComponent(v, fallback string) string {
	c := strings.TrimSpace(v)
	c = strings.NewReplacer("/", "_", `\`, "_").Replace(c)
	if c == "" || c == "." || c == ".." {
		return fallback
	}
	return c
}

func safeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, "._")
	return name
}

// Save writes every file and returns the relative paths. When any file is
// rejected nothing is kept and a validation error names the rejected files.
func (s *attachmentStore) Save(files []*multipart.FileHeader, b *store.Batch, family string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	rel := path.Join(
		sanitizeComponent(b.ProductName, "unknown_product"),
		sanitizeComponent(b.BatchNumber, "unknown_batch"),
		sanitizeComponent(b.ProcessSegment, "unknown_segment"),
		sanitizeComponent(family, "misc"),
	)
	dir := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}

	var saved, rejected []string
	for _, fh := range files {
		name := safeFilename(fh.Filename)
		if name == "" {
			continue
		}
		if !s.allowed(name, fh.Header.Get("Content-Type")) {
			rejected = append(rejected, name)
			continue
		}
		unique := uuid.NewString() + "_" + name
		if err := writeUpload(fh, filepath.Join(dir, unique)); err != nil {
			s.Remove(saved)
			return nil, err
		}
		saved = append(saved, path.Join(rel, unique))
	}
	if len(rejected) > 0 {
		s.Remove(saved)
		return nil, record.NewValidationError("unsupported attachment type: " + strings.Join(rejected, ", "))
	}
	return saved, nil
}

func writeUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}

// Remove deletes stored files by relative path. Missing files are ignored.
func (s *attachmentStore) Remove(rels []string) {
	for _, rel := range rels {
		if p, ok := s.resolve(rel); ok {
			os.Remove(p)
		}
	}
}

// resolve maps a relative attachment path into the root, refusing paths
// that escape it.
func (s *attachmentStore) resolve(rel string) (string, bool) {
	clean := path.Clean("/" + strings.ReplaceAll(rel, `\`, "/"))
	if clean == "/" || strings.Contains(rel, "..") {
		return "", false
	}
	return filepath.Join(s.root, filepath.FromSlash(clean[1:])), true
}

func (h *Handlers) handleDownload(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/download/")
	p, ok := h.files.resolve(rel)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file path")
		return
	}
	st, err := os.Stat(p)
	if err != nil || st.IsDir() {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(p)))
	http.ServeFile(w, r, p)
}
