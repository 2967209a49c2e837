package pricecache

import (
	"sync"

	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/model"
)

// View is the read-only face of the cache exposed to consumers.
type View interface {
	Get(symbol, market string) (model.PriceRecord, bool)
	Snapshot() map[model.Key]model.PriceRecord
	Len() int
	Subscribe(buffer int) (<-chan model.PriceRecord, func())
}

// Cache is a keyed last-write-wins store of price records.
type Cache struct {
	mu      sync.RWMutex
	records map[model.Key]model.PriceRecord

	obsMu     sync.Mutex
	observers map[int]chan model.PriceRecord
	nextID    int

	metrics *metrics.Metrics
}

// New creates an empty cache.
func New(m *metrics.Metrics) *Cache {
	return &Cache{
		records:   make(map[model.Key]model.PriceRecord),
		observers: make(map[int]chan model.PriceRecord),
		metrics:   m,
	}
}

// Put stores rec, replacing any earlier record for its key. Records are not
// compared by timestamp.
func (c *Cache) Put(rec model.PriceRecord) {
	c.mu.Lock()
	c.records[rec.Key()] = rec
	n := len(c.records)
	c.mu.Unlock()

	c.metrics.SetCached(n)
	c.notify(rec)
}

// Get returns the record for (symbol, market).
func (c *Cache) Get(symbol, market string) (model.PriceRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[model.Key{Symbol: symbol, Market: market}]
	return rec, ok
}

// Snapshot returns a copy of every record.
func (c *Cache) Snapshot() map[model.Key]model.PriceRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[model.Key]model.PriceRecord, len(c.records))
	for k, rec := range c.records {
		out[k] = rec
	}
	return out
}

// Delete removes the record for key.
func (c *Cache) Delete(key model.Key) bool {
	c.mu.Lock()
	_, ok := c.records[key]
	delete(c.records, key)
	n := len(c.records)
	c.mu.Unlock()

	c.metrics.SetCached(n)
	return ok
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Subscribe returns a channel that receives every record stored after the
// call, and a cancel func that closes it. Sends never block: when the
// channel is full the notification is dropped, though the cache itself is
// still updated.
func (c *Cache) Subscribe(buffer int) (<-chan model.PriceRecord, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan model.PriceRecord, buffer)

	c.obsMu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = ch
	c.obsMu.Unlock()

	cancel := func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()
		if _, ok := c.observers[id]; ok {
			delete(c.observers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// CloseObservers closes every observer channel. Used on session teardown.
func (c *Cache) CloseObservers() {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	for id, ch := range c.observers {
		delete(c.observers, id)
		close(ch)
	}
}

func (c *Cache) notify(rec model.PriceRecord) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	for _, ch := range c.observers {
		select {
		case ch <- rec:
		default:
			c.metrics.ObserverDrop()
		}
	}
}
