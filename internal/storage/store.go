package storage

import (
	"errors"

	"kvbalancer/internal/hashing"
)

// DefaultBuckets is the bucket count used when none is configured.
const DefaultBuckets = 1000

// ErrInvalidBuckets is returned for a non-positive bucket count.
var ErrInvalidBuckets = errors.New("store bucket count must be positive")

// Document is a key and a copy of its value.
type Document struct {
	Key   string
	Value []byte
}

type entry struct {
	key   string
	value []byte
}

// Store is a fixed bucket-count chained table. Put does not deduplicate;
// callers check Get first. Values are copied on the way in and out.
type Store struct {
	hasher  hashing.KeyHasher
	buckets [][]entry
	size    int
}

// NewStore creates an empty store with the given bucket count.
func NewStore(buckets int, hasher hashing.KeyHasher) (*Store, error) {
	if buckets <= 0 {
		return nil, ErrInvalidBuckets
	}
	if hasher == nil {
		hasher = hashing.DJB2{}
	}
	return &Store{
		hasher:  hasher,
		buckets: make([][]entry, buckets),
	}, nil
}

// Bucket returns the bucket index of key.
func (s *Store) Bucket(key string) int {
	return int(s.hasher.HashKey(key) % uint32(len(s.buckets)))
}

// Put inserts key at the head of its bucket chain.
func (s *Store) Put(key string, value []byte) {
	b := s.Bucket(key)
	e := entry{key: key, value: copyBytes(value)}
	s.buckets[b] = append([]entry{e}, s.buckets[b]...)
	s.size++
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	i, b := s.find(key)
	if i < 0 {
		return nil, false
	}
	return copyBytes(s.buckets[b][i].value), true
}

// Contains reports whether key is stored.
func (s *Store) Contains(key string) bool {
	i, _ := s.find(key)
	return i >= 0
}

// Update replaces the value of an existing key in place. It returns false
// if the key is not stored.
func (s *Store) Update(key string, value []byte) bool {
	i, b := s.find(key)
	if i < 0 {
		return false
	}
	s.buckets[b][i].value = copyBytes(value)
	return true
}

// Remove unlinks key from the given bucket. The caller computes bucket
// with Bucket(key) on this store.
func (s *Store) Remove(bucket int, key string) bool {
	if bucket < 0 || bucket >= len(s.buckets) {
		return false
	}
	chain := s.buckets[bucket]
	for i := range chain {
		if chain[i].key == key {
			s.buckets[bucket] = append(chain[:i], chain[i+1:]...)
			s.size--
			return true
		}
	}
	return false
}

// Range calls fn for every document in bucket order until fn returns
// false. fn must not mutate the store.
func (s *Store) Range(fn func(bucket int, doc Document) bool) {
	for b, chain := range s.buckets {
		for _, e := range chain {
			if !fn(b, Document{Key: e.key, Value: copyBytes(e.value)}) {
				return
			}
		}
	}
}

// Keys returns every stored key in bucket order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, s.size)
	for _, chain := range s.buckets {
		for _, e := range chain {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	return s.size
}

// Buckets returns the fixed bucket count.
func (s *Store) Buckets() int {
	return len(s.buckets)
}

// Clear drops every document.
func (s *Store) Clear() {
	for i := range s.buckets {
		s.buckets[i] = nil
	}
	s.size = 0
}

func (s *Store) find(key string) (int, int) {
	b := s.Bucket(key)
	for i, e := range s.buckets[b] {
		if e.key == key {
			return i, b
		}
	}
	return -1, b
}

// copyBytes returns an independent copy; nil stays nil only for nil input.
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
