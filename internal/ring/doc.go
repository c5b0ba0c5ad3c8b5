// Package ring implements the sorted placement ring used for consistent
// hashing. An entry at position p owns the half-open range (q, p] where q
// is the position of the entry just below it; the lowest entry also owns
// everything above the highest position. Every hash therefore has exactly
// one owner as long as the ring is not empty.
package ring
