// Package replay tracks recently observed message identifiers per device.
//
// The cache is a per-device bounded ordered set with FIFO eviction,
// sharded by device so that messages from distinct devices do not contend
// on one lock. Check-and-add is atomic per (device, message ID).
//
// The cache is process-local and volatile: after a restart previously
// seen identifiers become acceptable again. That is documented behavior,
// not a bug - the freshness window bounds the re-admission exposure,
// because an identifier older than the skew budget cannot pass the
// freshness check even if the cache forgot it.
package replay
