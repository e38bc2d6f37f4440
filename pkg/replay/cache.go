package replay

import (
	"hash/fnv"
	"sync"
)

// DefaultCapacity is the default per-device identifier retention.
const DefaultCapacity = 1000

// shardCount is the number of lock shards. Messages from devices in
// different shards never contend.
const shardCount = 16

// Cache is a sharded, per-device bounded set of recently observed message
// identifiers. It is safe for concurrent use.
type Cache struct {
	capacity int
	shards   [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	devices map[string]*deviceSet
}

// deviceSet holds one device's identifiers in insertion order.
type deviceSet struct {
	ids   map[string]struct{}
	order []string
}

// NewCache creates a cache retaining up to capacity identifiers per device.
// Non-positive capacity uses DefaultCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{capacity: capacity}
	for i := range c.shards {
		c.shards[i].devices = make(map[string]*deviceSet)
	}
	return c
}

// CheckAndAdd atomically tests whether messageID was already observed for
// deviceID and records it if not. It returns true when the identifier is
// new (and is now recorded), false on a replay (cache unchanged).
func (c *Cache) CheckAndAdd(deviceID, messageID string) bool {
	sh := c.shard(deviceID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	set, ok := sh.devices[deviceID]
	if !ok {
		set = &deviceSet{ids: make(map[string]struct{})}
		sh.devices[deviceID] = set
	}

	if _, seen := set.ids[messageID]; seen {
		return false
	}

	set.ids[messageID] = struct{}{}
	set.order = append(set.order, messageID)

	// Evict the oldest identifier once the cap is exceeded
	if len(set.order) > c.capacity {
		oldest := set.order[0]
		set.order = set.order[1:]
		delete(set.ids, oldest)
	}
	return true
}

// Contains reports whether messageID was observed for deviceID.
func (c *Cache) Contains(deviceID, messageID string) bool {
	sh := c.shard(deviceID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	set, ok := sh.devices[deviceID]
	if !ok {
		return false
	}
	_, seen := set.ids[messageID]
	return seen
}

// Len returns the number of identifiers currently retained for deviceID.
func (c *Cache) Len(deviceID string) int {
	sh := c.shard(deviceID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	set, ok := sh.devices[deviceID]
	if !ok {
		return 0
	}
	return len(set.order)
}

// Capacity returns the per-device retention cap.
func (c *Cache) Capacity() int {
	return c.capacity
}

func (c *Cache) shard(deviceID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(deviceID))
	return &c.shards[h.Sum32()%shardCount]
}
