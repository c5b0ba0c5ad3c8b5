// Package cache implements the bounded per-server LRU cache.
//
// Entries are held in a keyed map and ordered by recency in a separate
// list: the front of the list is the least recently used entry and the
// back the most recently used one. Both Put and Get count as a use.
// Put never overwrites; callers that need to change a cached value use
// Update.
package cache
