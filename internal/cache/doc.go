// Package cache keeps synthesized audio on disk so repeated utterances skip
// the engine. Entries are zstd-compressed and evicted least recently used
// first once the cache is over capacity.
package cache
