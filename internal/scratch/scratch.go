// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scratch implements the artifact cache between fetch and parse: a
// filesystem key-value store of (format, bytes) keyed by identifier slug.
// It is a cache, not a system of record; artifacts are eligible for removal
// once parsed.
package scratch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// formatExt maps artifact formats to file extensions. Unknown formats are
// stored as .bin so a pre-staged manual artifact is never lost.
var formatExt = map[types.ArtifactFormat]string{
	types.FormatHTML:    ".html",
	types.FormatPDF:     ".pdf",
	types.FormatXML:     ".xml",
	types.FormatUnknown: ".bin",
}

// Sidecar records fetch provenance next to each artifact.
type Sidecar struct {
	Identifier string               `yaml:"identifier"`
	Format     types.ArtifactFormat `yaml:"format"`
	Route      string               `yaml:"route,omitempty"`
	Size       int                  `yaml:"size"`
	FetchedAt  time.Time            `yaml:"fetched_at"`
}

// Store is a directory of artifacts plus YAML sidecars. Writes go through a
// temp file and rename, so readers never observe a partial artifact.
type Store struct {
	dir string
}

// NewStore creates the scratch directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string { return s.dir }

// Put writes an artifact under key, replacing any prior artifact for the
// key regardless of its old format. The sidecar is written after the
// artifact bytes land.
func (s *Store) Put(key string, format types.ArtifactFormat, data []byte, route string) error {
	// Drop stale artifacts of other formats first so Get never finds two.
	for f, ext := range formatExt {
		if f == format {
			continue
		}
		os.Remove(filepath.Join(s.dir, key+ext))
	}

	dest := filepath.Join(s.dir, key+formatExt[format])
	if err := writeAtomic(dest, data); err != nil {
		return fmt.Errorf("writing artifact %s: %w", key, err)
	}

	sc := Sidecar{
		Identifier: key,
		Format:     format,
		Route:      route,
		Size:       len(data),
		FetchedAt:  time.Now().UTC(),
	}
	scData, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshaling sidecar for %s: %w", key, err)
	}
	if err := writeAtomic(filepath.Join(s.dir, key+".yaml"), scData); err != nil {
		return fmt.Errorf("writing sidecar %s: %w", key, err)
	}
	return nil
}

// Get reads the artifact stored under key. The format comes from the
// sidecar when present, otherwise from the file extension, otherwise from
// content sniffing (pre-staged manual artifacts may lack both).
func (s *Store) Get(key string) (types.RawArtifact, error) {
	for format, ext := range formatExt {
		path := filepath.Join(s.dir, key+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if format == types.FormatUnknown {
			format = DetectFormat(data, "")
		}
		// A sidecar left behind by an interrupted Put describes the old
		// artifact; trust it only when its size matches the bytes on disk.
		if sc, scErr := s.sidecar(key); scErr == nil && sc.Format != types.FormatUnknown && sc.Size == len(data) {
			format = sc.Format
		}
		return types.RawArtifact{Key: key, Format: format, Data: data}, nil
	}
	return types.RawArtifact{}, fmt.Errorf("no artifact for key %q: %w", key, os.ErrNotExist)
}

// Has reports whether an artifact exists for key.
func (s *Store) Has(key string) bool {
	for _, ext := range formatExt {
		if _, err := os.Stat(filepath.Join(s.dir, key+ext)); err == nil {
			return true
		}
	}
	return false
}

// Delete removes the artifact and sidecar for key. Missing files are not
// an error.
func (s *Store) Delete(key string) error {
	var firstErr error
	for _, ext := range formatExt {
		if err := os.Remove(filepath.Join(s.dir, key+ext)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	if err := os.Remove(filepath.Join(s.dir, key+".yaml")); err != nil && !os.IsNotExist(err) && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (s *Store) sidecar(key string) (Sidecar, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key+".yaml"))
	if err != nil {
		return Sidecar{}, err
	}
	var sc Sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Sidecar{}, err
	}
	return sc, nil
}

// writeAtomic writes data to dest via a temp file and rename.
func writeAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".scratch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// DetectFormat sniffs the artifact format from leading bytes, falling back
// to the Content-Type header value when the bytes are ambiguous.
func DetectFormat(data []byte, contentType string) types.ArtifactFormat {
	head := data
	if len(head) > 2048 {
		head = head[:2048]
	}

	switch {
	case bytes.HasPrefix(head, []byte("%PDF-")):
		return types.FormatPDF
	case bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), []byte("<?xml")):
		return types.FormatXML
	}

	lower := strings.ToLower(string(head))
	if strings.Contains(lower, "<!doctype html") || strings.Contains(lower, "<html") {
		return types.FormatHTML
	}

	switch {
	case strings.Contains(contentType, "pdf"):
		return types.FormatPDF
	case strings.Contains(contentType, "xml"):
		return types.FormatXML
	case strings.Contains(contentType, "html"):
		return types.FormatHTML
	}
	return types.FormatUnknown
}
