package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestCache(t *testing.T, capacity int64) (*DiskCache, string) {
	t.Helper()
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, capacity, 1)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	t.Cleanup(func() { dc.Close() }) //nolint:errcheck
	return dc, dir
}

func TestDiskCache_BasicOperations(t *testing.T) {
	dc, _ := newTestCache(t, 1<<20)

	key := Key("hello there", "en_US-lessac-high", 0.95)
	value := []byte("pcm bytes")

	if _, ok := dc.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := dc.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !dc.Contains(key) {
		t.Error("Contains() = false after Put")
	}

	got, ok := dc.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Get() = %q, want %q", got, value)
	}

	if err := dc.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := dc.Get(key); ok {
		t.Error("key still present after Delete")
	}

	stats := dc.Stats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("hits/misses = %d/%d, want 1/2", stats.Hits, stats.Misses)
	}
}

func TestDiskCache_CompressesLargeValues(t *testing.T) {
	dc, _ := newTestCache(t, 1<<20)

	// Silence compresses well
	value := make([]byte, 64*1024)
	if err := dc.Put("silence", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	stats := dc.Stats()
	if stats.Size >= stats.RawSize {
		t.Errorf("size on disk %d should be smaller than raw size %d", stats.Size, stats.RawSize)
	}

	got, ok := dc.Get("silence")
	if !ok || !bytes.Equal(got, value) {
		t.Error("compressed value did not round trip")
	}
}

func TestDiskCache_EvictsLeastRecentlyUsed(t *testing.T) {
	dc, _ := newTestCache(t, 300)

	for _, k := range []string{"a", "b", "c"} {
		if err := dc.Put(k, bytes.Repeat([]byte(k), 100)); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Touch "a" so "b" becomes the oldest
	if _, ok := dc.Get("a"); !ok {
		t.Fatal("expected a to be cached")
	}
	time.Sleep(5 * time.Millisecond)

	if err := dc.Put("d", bytes.Repeat([]byte("d"), 100)); err != nil {
		t.Fatalf("Put(d) failed: %v", err)
	}

	if dc.Contains("b") {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if !dc.Contains(k) {
			t.Errorf("%s should still be cached", k)
		}
	}
	if got := dc.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestDiskCache_ItemTooLarge(t *testing.T) {
	dc, _ := newTestCache(t, 10)

	err := dc.Put("big", []byte("this value is longer than ten bytes"))
	if !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put() error = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCache_PersistsIndex(t *testing.T) {
	dir := t.TempDir()

	dc, err := NewDiskCache(dir, 1<<20, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := dc.Put("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close() //nolint:errcheck

	got, ok := reopened.Get("k")
	if !ok || string(got) != "v" {
		t.Errorf("Get() after reopen = %q, %v", got, ok)
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dc, dir := newTestCache(t, 1<<20)

	if err := dc.Put("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, fileName("k"))); err != nil {
		t.Fatal(err)
	}

	if _, ok := dc.Get("k"); ok {
		t.Error("expected miss when cache file is gone")
	}
	if dc.Contains("k") {
		t.Error("entry should be dropped after a failed read")
	}
}

func TestDiskCache_Clear(t *testing.T) {
	dc, dir := newTestCache(t, 1<<20)

	for _, k := range []string{"a", "b"} {
		if err := dc.Put(k, []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	if err := dc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if n := dc.Stats().ItemCount; n != 0 {
		t.Errorf("ItemCount = %d after Clear", n)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != indexFile {
			t.Errorf("unexpected file %s after Clear", e.Name())
		}
	}
}

func TestDiskCache_ClosedRejectsPut(t *testing.T) {
	dc, _ := newTestCache(t, 1<<20)
	if err := dc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := dc.Put("k", []byte("v")); !errors.Is(err, ErrClosed) {
		t.Errorf("Put() after Close error = %v, want ErrClosed", err)
	}
}

func TestKey(t *testing.T) {
	base := Key("hello", "voice-a", 1.0)

	tests := []struct {
		name string
		key  string
	}{
		{"different text", Key("hello!", "voice-a", 1.0)},
		{"different voice", Key("hello", "voice-b", 1.0)},
		{"different rate", Key("hello", "voice-a", 0.95)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key == base {
				t.Errorf("expected distinct keys, both %s", base)
			}
		})
	}

	if Key("hello", "voice-a", 1.0) != base {
		t.Error("Key() is not deterministic")
	}
	if !strings.HasPrefix(base, "voice-a:") {
		t.Errorf("Key() = %s, want voice prefix", base)
	}
}

func TestStatsString(t *testing.T) {
	s := Stats{Capacity: 100_000_000, Size: 50_000, RawSize: 100_000, ItemCount: 3, Hits: 3, Misses: 1}
	got := s.String()
	for _, want := range []string{"3 clips", "50 kB", "100 MB", "50% saved", "hit rate 75%"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
