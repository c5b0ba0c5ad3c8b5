// Package hashing provides the hash strategies used to place servers and
// documents on the ring. Server ids and document keys are hashed by
// separate strategies that are chosen once, when the balancer is built.
package hashing
