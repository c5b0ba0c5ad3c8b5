// Package storage provides the per-server backing store: an unbounded
// table of documents spread over a fixed number of hash buckets. The
// store never evicts and never resizes.
package storage
