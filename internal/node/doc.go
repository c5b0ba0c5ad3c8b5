// Package node implements a single simulated server.
//
// A Node owns one backing store, one LRU cache and one request queue.
// EDIT requests are acknowledged immediately and only applied when the
// queue is flushed; a GET, or an EDIT arriving at a full queue, flushes
// everything queued so far in arrival order.
//
// Ring entries refer to a node through a Ref. The primary entry holds the
// owning Ref; virtual replicas hold borrowed Refs, and releasing one of
// those never frees the node.
package node
