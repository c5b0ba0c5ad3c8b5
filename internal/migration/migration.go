// Package migration moves documents between servers when the ring
// changes. Only stores are migrated: cached copies of moved documents are
// dropped from the donor and the receiving server fills its own cache on
// first access.
package migration

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"kvbalancer/internal/hashing"
	"kvbalancer/internal/node"
	"kvbalancer/internal/ring"
	"kvbalancer/internal/storage"
)

// ErrPendingRequests is returned when the donor still has queued
// requests; its store would not reflect them yet.
var ErrPendingRequests = errors.New("donor queue not drained")

// Stats summarizes one migration pass.
type Stats struct {
	Moved  int
	Purged int
}

// Engine performs migrations. It hashes keys with the same strategy the
// balancer routes with.
type Engine struct {
	hasher hashing.KeyHasher
	logger zerolog.Logger
}

// New creates an engine. A nil logger disables logging.
func New(hasher hashing.KeyHasher, logger *zerolog.Logger) *Engine {
	if hasher == nil {
		hasher = hashing.DJB2{}
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "migration").Logger()
	}
	return &Engine{hasher: hasher, logger: l}
}

// OnAdd moves the donor documents whose hash lies in (lo, hi], the range
// a newly placed destination entry took over, and drops them from the
// donor's cache.
func (e *Engine) OnAdd(donor, dest *node.Node, lo, hi uint32) (Stats, error) {
	st, err := e.moveRange(donor, dest, lo, hi)
	if err != nil {
		return st, err
	}
	e.logger.Info().
		Uint32("donor", donor.ID()).
		Uint32("destination", dest.ID()).
		Uint32("lo", lo).
		Uint32("hi", hi).
		Int("moved", st.Moved).
		Int("purged", st.Purged).
		Msg("migrated on add")
	return st, nil
}

// OnRemoveRange moves the donor documents in (lo, hi] to successor. It
// is used when one of several ring entries of the donor goes away.
func (e *Engine) OnRemoveRange(donor, successor *node.Node, lo, hi uint32) (Stats, error) {
	st, err := e.moveRange(donor, successor, lo, hi)
	if err != nil {
		return st, err
	}
	e.logger.Info().
		Uint32("donor", donor.ID()).
		Uint32("successor", successor.ID()).
		Int("moved", st.Moved).
		Msg("migrated entry range on remove")
	return st, nil
}

// OnRemove moves every donor document to successor. The donor's cache is
// left alone; it is destroyed with the donor.
func (e *Engine) OnRemove(donor, successor *node.Node) (Stats, error) {
	if donor == successor {
		return Stats{}, nil
	}
	if donor.QueueDepth() > 0 {
		return Stats{}, fmt.Errorf("server %d: %w", donor.ID(), ErrPendingRequests)
	}

	docs := collect(donor.Store(), func(string) bool { return true })
	for _, d := range docs {
		put(successor.Store(), d)
		donor.Store().Remove(donor.Store().Bucket(d.Key), d.Key)
	}

	st := Stats{Moved: len(docs)}
	e.logger.Info().
		Uint32("donor", donor.ID()).
		Uint32("successor", successor.ID()).
		Int("moved", st.Moved).
		Msg("migrated on remove")
	return st, nil
}

func (e *Engine) moveRange(donor, dest *node.Node, lo, hi uint32) (Stats, error) {
	if donor == dest {
		return Stats{}, nil
	}
	if donor.QueueDepth() > 0 {
		return Stats{}, fmt.Errorf("server %d: %w", donor.ID(), ErrPendingRequests)
	}

	inRange := func(key string) bool {
		return ring.InRange(e.hasher.HashKey(key), lo, hi)
	}

	var st Stats
	for _, d := range collect(donor.Store(), inRange) {
		put(dest.Store(), d)
		donor.Store().Remove(donor.Store().Bucket(d.Key), d.Key)
		st.Moved++
	}
	for _, key := range donor.Cache().Keys() {
		if inRange(key) && donor.Cache().Remove(key) {
			st.Purged++
		}
	}
	return st, nil
}

// collect snapshots the matching documents so the store is not mutated
// while it is being walked.
func collect(s *storage.Store, match func(key string) bool) []storage.Document {
	var docs []storage.Document
	s.Range(func(_ int, d storage.Document) bool {
		if match(d.Key) {
			docs = append(docs, d)
		}
		return true
	})
	return docs
}

func put(s *storage.Store, d storage.Document) {
	if !s.Update(d.Key, d.Value) {
		s.Put(d.Key, d.Value)
	}
}
