// Package balancer implements the load balancer that places servers on a
// consistent hashing ring, routes document requests to their owner and
// migrates documents when servers join or leave.
//
// With virtual nodes enabled every server occupies three ring positions:
// its own id and the virtual ids 100000+id and 200000+id. The three
// entries share one store, cache and queue.
//
// All methods are serialized by a single mutex; the servers and the ring
// below it are never touched concurrently.
package balancer
