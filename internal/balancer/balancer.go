package balancer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"kvbalancer/internal/hashing"
	"kvbalancer/internal/migration"
	"kvbalancer/internal/node"
	"kvbalancer/internal/request"
	"kvbalancer/internal/ring"
)

// VirtualIDStride separates a server id from its virtual ids.
const VirtualIDStride = 100000

// Replicas is the number of virtual entries added per server when
// virtual nodes are enabled.
const Replicas = 2

var (
	ErrServerExists   = errors.New("server already exists")
	ErrServerNotFound = errors.New("server not found")
	ErrNoServers      = errors.New("no servers on the ring")
	ErrInvalidID      = errors.New("invalid server id")
	ErrClosed         = errors.New("balancer is closed")
)

// Options configures a Balancer.
type Options struct {
	EnableVNodes  bool
	QueueCapacity int
	StoreBuckets  int
	KeyHasher     hashing.KeyHasher
	IDHasher      hashing.IDHasher
	WritePolicy   node.WritePolicy
	// Logger defaults to zerolog.Nop().
	Logger *zerolog.Logger
}

// Balancer owns every server and the ring that places them.
type Balancer struct {
	mu       sync.Mutex
	opts     Options
	ring     *ring.Ring[node.Ref]
	servers  map[uint32]*node.Node
	migrator *migration.Engine
	logger   zerolog.Logger
	closed   bool
}

// New creates an empty balancer.
func New(opts Options) *Balancer {
	if opts.KeyHasher == nil {
		opts.KeyHasher = hashing.DJB2{}
	}
	if opts.IDHasher == nil {
		opts.IDHasher = hashing.Mix32{}
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "balancer").Logger()
	}

	return &Balancer{
		opts:     opts,
		ring:     ring.New[node.Ref](),
		servers:  make(map[uint32]*node.Node),
		migrator: migration.New(opts.KeyHasher, opts.Logger),
		logger:   logger,
	}
}

// labels returns the ids hashed onto the ring for server id, in the order
// they are inserted and removed.
func (b *Balancer) labels(id uint32) []uint32 {
	if !b.opts.EnableVNodes {
		return []uint32{id}
	}
	out := []uint32{id}
	for r := uint32(1); r <= Replicas; r++ {
		out = append(out, r*VirtualIDStride+id)
	}
	return out
}

// AddServer creates server id and places it on the ring. For every new
// entry the current owner of its position drains its queue and hands over
// the documents the entry now owns.
func (b *Balancer) AddServer(id uint32, cacheCapacity int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if _, exists := b.servers[id]; exists {
		return fmt.Errorf("%w: %d", ErrServerExists, id)
	}
	if b.opts.EnableVNodes && id >= VirtualIDStride {
		return fmt.Errorf("%w: %d must be below %d with virtual nodes", ErrInvalidID, id, VirtualIDStride)
	}

	labels := b.labels(id)
	positions := make([]uint32, len(labels))
	for i, label := range labels {
		pos := b.opts.IDHasher.HashID(label)
		if b.ring.Has(pos) {
			return fmt.Errorf("server %d: %w: %d", id, ring.ErrPositionTaken, pos)
		}
		for _, prev := range positions[:i] {
			if prev == pos {
				return fmt.Errorf("server %d: %w: %d", id, ring.ErrPositionTaken, pos)
			}
		}
		positions[i] = pos
	}

	n, err := node.New(id, node.Options{
		CacheCapacity: cacheCapacity,
		QueueCapacity: b.opts.QueueCapacity,
		StoreBuckets:  b.opts.StoreBuckets,
		KeyHasher:     b.opts.KeyHasher,
		WritePolicy:   b.opts.WritePolicy,
		Logger:        b.opts.Logger,
	})
	if err != nil {
		return err
	}

	owner := node.Own(n)
	for i, pos := range positions {
		ref := owner
		if i > 0 {
			ref = owner.Borrow()
		}
		if err := b.takeOver(n, pos); err != nil {
			return err
		}
		if err := b.ring.Insert(ring.Entry[node.Ref]{Position: pos, Label: labels[i], Value: ref}); err != nil {
			return err
		}
	}
	b.servers[id] = n

	b.logger.Info().
		Uint32("server_id", id).
		Int("cache_capacity", cacheCapacity).
		Int("entries", len(positions)).
		Msg("server added")
	return nil
}

// takeOver migrates to n the documents that a new entry at pos takes
// from the entry currently owning pos.
func (b *Balancer) takeOver(n *node.Node, pos uint32) error {
	idx := b.ring.Search(pos)
	if idx < 0 {
		return nil
	}
	donor := b.ring.At(idx).Value.Node()
	if donor == n {
		return nil
	}
	lo := b.ring.Predecessor(idx).Position

	donor.Flush()
	if _, err := b.migrator.OnAdd(donor, n, lo, pos); err != nil {
		return fmt.Errorf("server %d: %w", n.ID(), err)
	}
	return nil
}

// RemoveServer drains server id, hands all of its documents to the
// servers that take over its ring ranges and destroys it. Removing from
// an empty ring is a no-op.
func (b *Balancer) RemoveServer(id uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.ring.Len() == 0 {
		return nil
	}
	n, ok := b.servers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrServerNotFound, id)
	}

	n.Flush()

	labels := b.labels(id)
	refs := make([]node.Ref, 0, len(labels))
	for i, label := range labels {
		pos := b.opts.IDHasher.HashID(label)
		idx := b.ring.Index(pos)
		if idx < 0 {
			continue
		}
		final := i == len(labels)-1

		if b.ring.Len() == 1 {
			b.logger.Warn().
				Uint32("server_id", id).
				Int("dropped", n.Store().Len()).
				Msg("removing last server, documents are dropped")
		} else if err := b.handOver(n, idx, final); err != nil {
			return err
		}

		e, _ := b.ring.Remove(pos)
		refs = append(refs, e.Value)
	}
	delete(b.servers, id)

	// replicas first: only the owning ref frees the node
	slices.SortStableFunc(refs, func(a, b node.Ref) int {
		return ownerRank(a) - ownerRank(b)
	})
	for _, ref := range refs {
		if err := ref.Release(); err != nil {
			return fmt.Errorf("server %d: %w", id, err)
		}
	}

	b.logger.Info().Uint32("server_id", id).Msg("server removed")
	return nil
}

// handOver migrates the documents of the entry at idx to its successor.
// The last entry of a server hands over everything that is left.
func (b *Balancer) handOver(n *node.Node, idx int, final bool) error {
	succ := b.ring.Successor(idx).Value.Node()
	var err error
	if final {
		_, err = b.migrator.OnRemove(n, succ)
	} else if succ != n {
		lo, hi := b.ring.OwnedRange(idx)
		_, err = b.migrator.OnRemoveRange(n, succ, lo, hi)
	}
	if err != nil {
		return fmt.Errorf("server %d: %w", n.ID(), err)
	}
	return nil
}

// ForwardRequest routes req to the server owning hash(req.Key).
func (b *Balancer) ForwardRequest(req request.Request) (request.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return request.Response{}, ErrClosed
	}
	if err := req.Validate(); err != nil {
		return request.Response{}, err
	}
	e, ok := b.ring.Owner(b.opts.KeyHasher.HashKey(req.Key))
	if !ok {
		return request.Response{}, ErrNoServers
	}
	return e.Value.Node().HandleRequest(req)
}

// Locate returns the id of the server owning key without executing
// anything.
func (b *Balancer) Locate(key string) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.ring.Owner(b.opts.KeyHasher.HashKey(key))
	if !ok {
		return 0, ErrNoServers
	}
	return e.Value.Node().ID(), nil
}

// Close releases every server. Entries that share a server release it
// once, through the owning entry.
func (b *Balancer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.closed = true

	entries := b.ring.Entries()
	var errs []error
	for _, owners := range []bool{false, true} {
		for _, e := range entries {
			if e.Value.Owner() != owners {
				continue
			}
			if err := e.Value.Release(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	b.ring = ring.New[node.Ref]()
	b.servers = make(map[uint32]*node.Node)
	return errors.Join(errs...)
}

func ownerRank(r node.Ref) int {
	if r.Owner() {
		return 1
	}
	return 0
}
