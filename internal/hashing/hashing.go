package hashing

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// KeyHasher hashes document keys onto the ring.
type KeyHasher interface {
	HashKey(key string) uint32
}

// IDHasher hashes server ids (real or virtual) onto the ring.
type IDHasher interface {
	HashID(id uint32) uint32
}

// KeyHasherFunc adapts a plain function to KeyHasher.
type KeyHasherFunc func(key string) uint32

// HashKey calls f(key).
func (f KeyHasherFunc) HashKey(key string) uint32 { return f(key) }

// IDHasherFunc adapts a plain function to IDHasher.
type IDHasherFunc func(id uint32) uint32

// HashID calls f(id).
func (f IDHasherFunc) HashID(id uint32) uint32 { return f(id) }

// DJB2 is the default document key hash (h = h*33 + c, seeded with 5381).
type DJB2 struct{}

// HashKey implements KeyHasher.
func (DJB2) HashKey(key string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(key); i++ {
		h = (h << 5) + h + uint32(key[i])
	}
	return h
}

// FNV1a hashes keys with 32-bit FNV-1a.
type FNV1a struct{}

// HashKey implements KeyHasher.
func (FNV1a) HashKey(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// Mix32 scrambles integer server ids so that consecutive ids land far
// apart on the ring.
type Mix32 struct{}

// HashID implements IDHasher.
func (Mix32) HashID(id uint32) uint32 {
	id = ((id >> 16) ^ id) * 0x45d9f3b
	id = ((id >> 16) ^ id) * 0x45d9f3b
	return (id >> 16) ^ id
}

// Key hash strategy names accepted by KeyHasherByName.
const (
	NameDJB2  = "djb2"
	NameFNV1a = "fnv1a"
)

// KeyHasherByName resolves a configured strategy name.
func KeyHasherByName(name string) (KeyHasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameDJB2:
		return DJB2{}, nil
	case NameFNV1a:
		return FNV1a{}, nil
	default:
		return nil, fmt.Errorf("unknown key hash %q (expected %s or %s)", name, NameDJB2, NameFNV1a)
	}
}
