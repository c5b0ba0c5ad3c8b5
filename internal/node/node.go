package node

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"kvbalancer/internal/cache"
	"kvbalancer/internal/hashing"
	"kvbalancer/internal/queue"
	"kvbalancer/internal/request"
	"kvbalancer/internal/storage"
)

// ErrClosed is returned when a destroyed node is used.
var ErrClosed = errors.New("node is closed")

// WritePolicy decides whether an EDIT of an uncached key fills the cache.
type WritePolicy int

const (
	// WriteAllocate caches every edited document.
	WriteAllocate WritePolicy = iota
	// WriteAround writes uncached documents to the store only; GETs fill
	// the cache.
	WriteAround
)

func (p WritePolicy) String() string {
	switch p {
	case WriteAllocate:
		return "write-allocate"
	case WriteAround:
		return "write-around"
	default:
		return "unknown"
	}
}

// Options configures a node.
type Options struct {
	CacheCapacity int
	QueueCapacity int
	StoreBuckets  int
	KeyHasher     hashing.KeyHasher
	WritePolicy   WritePolicy
	// Logger defaults to zerolog.Nop().
	Logger *zerolog.Logger
}

// Node is a server with its own store, cache and request queue.
type Node struct {
	id     uint32
	store  *storage.Store
	cache  *cache.LRU
	queue  *queue.Queue[request.Request]
	policy WritePolicy
	logger zerolog.Logger

	borrowed int
	closed   bool
}

// New creates a node. Zero queue capacity and bucket count fall back to
// the package defaults; the cache capacity must be positive.
func New(id uint32, opts Options) (*Node, error) {
	if opts.QueueCapacity == 0 {
		opts.QueueCapacity = queue.DefaultCapacity
	}
	if opts.StoreBuckets == 0 {
		opts.StoreBuckets = storage.DefaultBuckets
	}

	c, err := cache.New(opts.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("server %d: %w", id, err)
	}
	s, err := storage.NewStore(opts.StoreBuckets, opts.KeyHasher)
	if err != nil {
		return nil, fmt.Errorf("server %d: %w", id, err)
	}
	q, err := queue.New[request.Request](opts.QueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("server %d: %w", id, err)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Uint32("server_id", id).Logger()
	}

	return &Node{
		id:     id,
		store:  s,
		cache:  c,
		queue:  q,
		policy: opts.WritePolicy,
		logger: logger,
	}, nil
}

// ID returns the server id.
func (n *Node) ID() uint32 {
	return n.id
}

// Store returns the backing store.
func (n *Node) Store() *storage.Store {
	return n.store
}

// Cache returns the LRU cache.
func (n *Node) Cache() *cache.LRU {
	return n.cache
}

// QueueDepth returns the number of pending requests.
func (n *Node) QueueDepth() int {
	if n.closed {
		return 0
	}
	return n.queue.Len()
}

// HandleRequest queues req. An EDIT returns a lazy acknowledgement; a GET
// flushes the queue and returns its own response.
func (n *Node) HandleRequest(req request.Request) (request.Response, error) {
	if n.closed {
		return request.Response{}, ErrClosed
	}
	if err := req.Validate(); err != nil {
		return request.Response{}, err
	}

	if err := n.enqueue(req); err != nil {
		return request.Response{}, err
	}

	switch req.Type {
	case request.TypeEdit:
		return request.Response{
			ServerID: n.id,
			Request:  req,
			Result:   request.Lazy(n.queue.Len()),
		}, nil
	default:
		responses := n.Flush()
		return responses[len(responses)-1], nil
	}
}

// enqueue appends req, flushing a full queue first.
func (n *Node) enqueue(req request.Request) error {
	for attempt := 0; attempt < 2; attempt++ {
		err := n.queue.Push(req)
		if err == nil {
			return nil
		}
		if !errors.Is(err, queue.ErrFull) {
			return err
		}
		n.logger.Debug().Int("depth", n.queue.Len()).Msg("queue full, flushing")
		n.Flush()
	}
	return queue.ErrFull
}

// Flush executes every queued request in arrival order and returns their
// responses in the same order.
func (n *Node) Flush() []request.Response {
	if n.closed {
		return nil
	}

	pending := n.queue.Drain()
	responses := make([]request.Response, 0, len(pending))
	for _, req := range pending {
		resp, err := n.Execute(req)
		if err != nil {
			// requests are validated before they are queued
			n.logger.Error().Err(err).Str("key", req.Key).Msg("dropping queued request")
			continue
		}
		n.logger.Debug().
			Str("type", req.Type.String()).
			Str("key", req.Key).
			Str("result", resp.Result.Kind.String()).
			Str("evicted", resp.Result.EvictedKey).
			Msg("executed request")
		responses = append(responses, resp)
	}
	return responses
}

// Execute runs req against the cache and store immediately.
func (n *Node) Execute(req request.Request) (request.Response, error) {
	switch req.Type {
	case request.TypeEdit:
		return n.EditDocument(req.Key, req.Content), nil
	case request.TypeGet:
		return n.GetDocument(req.Key), nil
	default:
		return request.Response{}, fmt.Errorf("%w: unknown type %d", request.ErrInvalidRequest, int(req.Type))
	}
}

// EditDocument writes content under key, keeping any cached copy equal
// to the stored one.
func (n *Node) EditDocument(key string, content []byte) request.Response {
	resp := request.Response{
		ServerID: n.id,
		Request:  request.Edit(key, content),
		Found:    true,
	}

	if n.cache.Update(key, content) {
		if !n.store.Update(key, content) {
			n.store.Put(key, content)
		}
		resp.Result = request.Hit()
		return resp
	}

	if !n.store.Update(key, content) {
		n.store.Put(key, content)
	}
	if n.policy == WriteAround {
		resp.Result = request.Miss()
		return resp
	}
	resp.Result = n.fill(key, content)
	return resp
}

// GetDocument reads key, filling the cache from the store on a miss.
func (n *Node) GetDocument(key string) request.Response {
	resp := request.Response{
		ServerID: n.id,
		Request:  request.Get(key),
	}

	if value, ok := n.cache.Get(key); ok {
		resp.Result = request.Hit()
		resp.Payload = value
		resp.Found = true
		return resp
	}

	value, ok := n.store.Get(key)
	if !ok {
		resp.Result = request.Fault()
		return resp
	}
	resp.Result = n.fill(key, value)
	resp.Payload = value
	resp.Found = true
	return resp
}

func (n *Node) fill(key string, value []byte) request.Result {
	res := n.cache.Put(key, value)
	if res.Evicted {
		return request.Evict(res.EvictedKey)
	}
	return request.Miss()
}

// Close destroys the node's store, cache and queue. Pending requests are
// discarded without being executed.
func (n *Node) Close() error {
	if n.closed {
		return ErrClosed
	}
	n.closed = true
	if dropped := n.queue.Len(); dropped > 0 {
		n.logger.Warn().Int("dropped", dropped).Msg("closing with pending requests")
	}
	n.queue.Drain()
	n.cache.Clear()
	n.store.Clear()
	return nil
}

// Closed reports whether Close has run.
func (n *Node) Closed() bool {
	return n.closed
}

// Borrowers returns the number of outstanding borrowed Refs.
func (n *Node) Borrowers() int {
	return n.borrowed
}
