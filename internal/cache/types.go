package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrClosed is returned when the cache is used after Close
	ErrClosed = errors.New("cache is closed")
)

// Stats holds cache performance metrics.
type Stats struct {
	Capacity  int64 // Maximum size on disk in bytes
	Size      int64 // Current size on disk in bytes
	RawSize   int64 // Uncompressed size of all entries
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64

	LastAccess time.Time
}

// HitRate returns hits / (hits + misses), or zero before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// String renders the stats for humans.
func (s Stats) String() string {
	saved := "0%"
	if s.RawSize > 0 {
		saved = strconv.FormatFloat(100*(1-float64(s.Size)/float64(s.RawSize)), 'f', 0, 64) + "%"
	}
	return fmt.Sprintf("%d clips, %s of %s used (%s saved by compression), hit rate %.0f%%",
		s.ItemCount,
		humanize.Bytes(uint64(s.Size)),
		humanize.Bytes(uint64(s.Capacity)),
		saved,
		s.HitRate()*100)
}

// Key builds the cache key for text spoken by voice at rate.
func Key(text, voice string, rate float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%.3f", voice, text, rate)
	return voice + ":" + hex.EncodeToString(h.Sum(nil))
}
