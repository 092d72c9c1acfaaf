// Package cache stores transcription results keyed by the SHA-256
// digest of the original audio bytes: identical inputs always hit the
// same entry, regardless of how the audio was chunked.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sbeier/audiosessions/internal/apperrors"
)

// Segment is one timed portion of a transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Entry is the persisted form of a transcription result. The transient
// success flag is deliberately excluded.
type Entry struct {
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	Duration   float64   `json:"duration"`
	Segments   []Segment `json:"segments"`
	TokensUsed int64     `json:"tokens_used"`
}

// Cache is a file-per-entry store. Entries are written once after a
// successful remote call and never invalidated automatically;
// concurrent writes for the same source are benign last-writer-wins.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir, creating it if missing.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &apperrors.CacheIOError{Op: "init", Err: err}
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// HashFile computes the SHA-256 digest of the file's full bytes as a
// 64-character hex string.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get looks up an entry by digest. A missing entry is (nil, false, nil);
// IO or decode failures are reported so the caller can log and treat
// them as a miss.
func (c *Cache) Get(hash string) (*Entry, bool, error) {
	data, err := os.ReadFile(c.entryPath(hash))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &apperrors.CacheIOError{Op: "read", Err: err}
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, &apperrors.CacheIOError{Op: "decode", Err: err}
	}
	return &entry, true, nil
}

// Put writes an entry under the given digest.
func (c *Cache) Put(hash string, entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return &apperrors.CacheIOError{Op: "encode", Err: err}
	}

	if err := os.WriteFile(c.entryPath(hash), data, 0644); err != nil {
		return &apperrors.CacheIOError{Op: "write", Err: err}
	}
	return nil
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return &apperrors.CacheIOError{Op: "clear", Err: err}
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		os.Remove(filepath.Join(c.dir, e.Name()))
	}
	return nil
}

func (c *Cache) entryPath(hash string) string {
	return filepath.Join(c.dir, hash+".json")
}
