package cuckoopack

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-metro"
	"github.com/spaolacci/murmur3"
)

// Hasher32 produces the 32-bit digests a cuckoo filter derives its
// fingerprints and bucket indices from. Implementations must be
// deterministic across processes and platforms, otherwise the packed
// storage written by one process can't be read back by another.
type Hasher32 interface {
	// Sum32 returns the digest of the element bytes
	Sum32(data []byte) uint32

	// Sum32Word returns the digest of a single stored word, used to
	// derive the alternate bucket index of a fingerprint
	Sum32Word(word uint32) uint32
}

// DefaultHasher returns the hasher used when none is injected
func DefaultHasher() Hasher32 {
	return NewMurmur3Hasher()
}

// Murmur3Hasher implements Hasher32 with the 32-bit murmur3 digest
type Murmur3Hasher struct {
	seed uint32
}

// NewMurmur3Hasher creates a Murmur3Hasher with a zero seed
func NewMurmur3Hasher() *Murmur3Hasher {
	return &Murmur3Hasher{0}
}

// NewMurmur3HasherWithSeed creates a Murmur3Hasher with the seed _seed_
func NewMurmur3HasherWithSeed(seed uint32) *Murmur3Hasher {
	return &Murmur3Hasher{seed}
}

func (hasher *Murmur3Hasher) Sum32(data []byte) uint32 {
	return murmur3.Sum32WithSeed(data, hasher.seed)
}

func (hasher *Murmur3Hasher) Sum32Word(word uint32) uint32 {
	return murmur3.Sum32WithSeed(wordToBytes(word), hasher.seed)
}

// MetroHasher implements Hasher32 by truncating the 64-bit metro digest
type MetroHasher struct {
	seed uint64
}

// NewMetroHasher creates a MetroHasher with the default seed 1373
func NewMetroHasher() *MetroHasher {
	return &MetroHasher{1373}
}

// NewMetroHasherWithSeed creates a MetroHasher with the seed _seed_
func NewMetroHasherWithSeed(seed uint64) *MetroHasher {
	return &MetroHasher{seed}
}

func (hasher *MetroHasher) Sum32(data []byte) uint32 {
	return uint32(metro.Hash64(data, hasher.seed))
}

func (hasher *MetroHasher) Sum32Word(word uint32) uint32 {
	return uint32(metro.Hash64(wordToBytes(word), hasher.seed))
}

// XXHash64Hasher implements Hasher32 by truncating the 64-bit xxHash digest
type XXHash64Hasher struct{}

// NewXXHash64Hasher creates an XXHash64Hasher
func NewXXHash64Hasher() *XXHash64Hasher {
	return &XXHash64Hasher{}
}

func (hasher *XXHash64Hasher) Sum32(data []byte) uint32 {
	return uint32(xxhash.Sum64(data))
}

func (hasher *XXHash64Hasher) Sum32Word(word uint32) uint32 {
	return uint32(xxhash.Sum64(wordToBytes(word)))
}

// wordToBytes encodes a word big-endian for digesting
func wordToBytes(word uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, word)
	return buf
}
