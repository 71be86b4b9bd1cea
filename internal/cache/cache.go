package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/archviz/diagramsvc/internal/model"
)

// Entry is one immutable cache record (spec.md §3).
type Entry struct {
	Key       string
	Artifact  model.RenderedArtifact
	PublicURL string
	Method    string // generator strategy that produced Artifact (svg_template | mermaid | chart)
	CreatedAt time.Time
	TTL       time.Duration
	size      int64
}

func (e Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL))
}

// Cache is a bounded, TTL-evicting, content-addressed store with
// single-flight coalescing on misses (spec.md §4.9).
type Cache struct {
	mu        sync.Mutex
	maxBytes  int64
	usedBytes int64
	entries   map[string]*list.Element // key -> lru list element
	lru       *list.List                // front = most recently used

	callsMu sync.Mutex
	calls   map[string]*call // key -> in-flight shared computation
}

// call is one shared, reference-counted computation in flight for a key.
// Its own ctx is independent of any single waiter's: it's cancelled only
// when the last waiter leaves (leaveCall), never by an individual waiter's
// cancellation while others remain attached (spec.md §4.9).
type call struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	waiters int

	artifact model.RenderedArtifact
	url      string
	method   string
	err      error
}

func New(maxBytes int64) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		calls:    make(map[string]*call),
	}
}

// Get returns the entry for key, or ok=false on miss or expiry. An expired
// entry is evicted eagerly on lookup.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	entry := el.Value.(Entry)
	if entry.expired(time.Now()) {
		c.removeLocked(el)
		return Entry{}, false
	}
	c.lru.MoveToFront(el)
	return entry, true
}

// Put inserts entry under key. Idempotent: a later Put for an existing,
// unexpired key is a no-op, since entries are immutable (spec.md §4.9).
func (c *Cache) Put(key string, artifact model.RenderedArtifact, publicURL, method string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		if !el.Value.(Entry).expired(time.Now()) {
			return
		}
		c.removeLocked(el)
	}

	entry := Entry{
		Key:       key,
		Artifact:  artifact,
		PublicURL: publicURL,
		Method:    method,
		CreatedAt: time.Now(),
		TTL:       ttl,
		size:      int64(len(artifact.Content)),
	}
	el := c.lru.PushFront(entry)
	c.entries[key] = el
	c.usedBytes += entry.size
	c.evictLocked()
}

func (c *Cache) removeLocked(el *list.Element) {
	entry := el.Value.(Entry)
	delete(c.entries, entry.Key)
	c.lru.Remove(el)
	c.usedBytes -= entry.size
}

// evictLocked drops least-recently-used entries until usedBytes fits within
// maxBytes (spec.md §4.9, "LRU with a bounded byte-size ceiling").
func (c *Cache) evictLocked() {
	for c.maxBytes > 0 && c.usedBytes > c.maxBytes {
		back := c.lru.Back()
		if back == nil {
			return
		}
		c.removeLocked(back)
	}
}

// joinCall attaches the current goroutine as a waiter on key's in-flight
// computation, creating one if none exists. The bool return reports whether
// this caller owns the computation (and so must run it).
func (c *Cache) joinCall(key string) (*call, bool) {
	c.callsMu.Lock()
	defer c.callsMu.Unlock()

	if cl, ok := c.calls[key]; ok {
		cl.mu.Lock()
		cl.waiters++
		cl.mu.Unlock()
		return cl, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := &call{ctx: ctx, cancel: cancel, done: make(chan struct{}), waiters: 1}
	c.calls[key] = cl
	return cl, true
}

// leaveCall detaches one waiter from cl. Once no waiters remain, cl's
// computation is cancelled — this is what kills an abandoned computation's
// subprocess (spec.md §5, "external subprocesses in flight are killed on
// cancellation"). A waiter that stays until cl.done is closed leaves
// naturally through run's own cleanup and never needs to call this.
func (c *Cache) leaveCall(cl *call) {
	cl.mu.Lock()
	cl.waiters--
	n := cl.waiters
	cl.mu.Unlock()
	if n == 0 {
		cl.cancel()
	}
}

// run executes fn for the owner of cl, publishes the result to cl, then
// removes cl from the registry so the next GetOrCompute for key starts a
// fresh computation. The registry removal happens after close(cl.done) so a
// caller that joins between fn returning and this cleanup still observes
// the completed call instead of racing a second computation into existence.
func (c *Cache) run(key string, cl *call, ttl time.Duration, fn func(context.Context) (model.RenderedArtifact, string, string, error)) {
	artifact, url, method, err := fn(cl.ctx)
	if err == nil {
		c.Put(key, artifact, url, method, ttl)
	}
	cl.artifact, cl.url, cl.method, cl.err = artifact, url, method, err
	close(cl.done)

	c.callsMu.Lock()
	if c.calls[key] == cl {
		delete(c.calls, key)
	}
	c.callsMu.Unlock()
	cl.cancel()
}

// GetOrCompute returns the cached entry for key if present, else runs fn
// exactly once across all concurrent callers sharing key and caches its
// result (spec.md §4.9's "at-most-one concurrent generation per key").
// Cancelling ctx for one caller detaches only that caller: the shared
// computation keeps running while other waiters remain attached, and is
// cancelled the moment the last waiter leaves — so a genuinely abandoned
// request still kills its subprocess instead of running to completion
// unobserved (spec.md §5).
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (model.RenderedArtifact, string, string, error)) (Entry, error) {
	if entry, ok := c.Get(key); ok {
		return entry, nil
	}

	cl, owner := c.joinCall(key)
	if owner {
		go c.run(key, cl, ttl, fn)
	}

	select {
	case <-cl.done:
		if cl.err != nil {
			return Entry{}, cl.err
		}
		return Entry{Key: key, Artifact: cl.artifact, PublicURL: cl.url, Method: cl.method, CreatedAt: time.Now(), TTL: ttl}, nil
	case <-ctx.Done():
		c.leaveCall(cl)
		return Entry{}, ctx.Err()
	}
}

// Stats reports occupancy for the health endpoint.
type Stats struct {
	Entries   int   `json:"entries"`
	UsedBytes int64 `json:"used_bytes"`
	MaxBytes  int64 `json:"max_bytes"`
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.entries), UsedBytes: c.usedBytes, MaxBytes: c.maxBytes}
}
