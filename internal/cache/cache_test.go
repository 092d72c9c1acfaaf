package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashFileStable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	if err := os.WriteFile(a, []byte("same bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	ha, err := HashFile(a)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	hb, err := HashFile(b)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	if ha != hb {
		t.Error("Expected identical hashes for identical content")
	}
	if len(ha) != 64 {
		t.Errorf("Expected 64-character hex digest, got %d characters", len(ha))
	}
}

func TestHashFileDiffers(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	os.WriteFile(a, []byte("alpha"), 0644)
	os.WriteFile(b, []byte("beta"), 0644)

	ha, _ := HashFile(a)
	hb, _ := HashFile(b)
	if ha == hb {
		t.Error("Expected different hashes for different content")
	}
}

func TestGetMissingEntry(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	entry, ok, err := c.Get("0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Errorf("Expected no error for missing entry, got %v", err)
	}
	if ok || entry != nil {
		t.Error("Expected miss for unknown hash")
	}
}

func TestPutGetRoundtrip(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hash := "abc123"
	in := &Entry{
		Text:       "hello world",
		Language:   "de",
		Duration:   12.5,
		Segments:   []Segment{{Start: 0, End: 12.5, Text: "hello world"}},
		TokensUsed: 42,
	}
	if err := c.Put(hash, in); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	out, ok, err := c.Get(hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected hit")
	}
	if out.Text != in.Text || out.Language != in.Language || out.TokensUsed != in.TokensUsed {
		t.Errorf("Entry mismatch: %+v vs %+v", out, in)
	}
	if len(out.Segments) != 1 || out.Segments[0].Text != "hello world" {
		t.Errorf("Segments mismatch: %+v", out.Segments)
	}
}

func TestGetCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hash := "deadbeef"
	if err := os.WriteFile(filepath.Join(dir, hash+".json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := c.Get(hash)
	if err == nil {
		t.Error("Expected error for corrupt entry")
	}
	if ok {
		t.Error("Expected miss for corrupt entry")
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c.Put("one", &Entry{Text: "1"})
	c.Put("two", &Entry{Text: "2"})

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, ok, _ := c.Get("one"); ok {
		t.Error("Expected entry removed by Clear")
	}
}
