package cuckoopack

import (
	"fmt"
	"math"

	"github.com/probkit/cuckoopack/internal/util"
)

type BaseCuckooFilter interface {
	// Capacity returns the total number of fingerprint slots
	Capacity() uint64

	// Length returns the number of entries currently held
	Length() uint64

	// BucketCount returns the number of buckets
	BucketCount() uint64

	// BucketSize returns the number of slots per bucket
	BucketSize() uint64

	// FingerprintBits returns the width of the stored fingerprints in bits
	FingerprintBits() uint64

	// MaxKicks returns the eviction budget of a single insert
	MaxKicks() uint64

	// PositiveRate returns the expected false positive rate of the filter
	PositiveRate() float64
}

// AbstractCuckooFilter holds the parameters and the probing machinery
// shared by the in-memory and the redis backed cuckoo filters.
// Fingerprints live in _words_, bucket i occupying the word index range
// [i*bucketSize, (i+1)*bucketSize). The zero word marks a free slot, so a
// legitimate fingerprint of value zero is indistinguishable from one.
// _bucketCount_ is always a power of two, which keeps altIndex an
// involution over the index space.
type AbstractCuckooFilter struct {
	words           IWordArray
	bucketCount     uint64
	bucketSize      uint64
	fingerprintBits uint64
	maxKicks        uint64
	length          uint64
	hasher          Hasher32
}

func makeAbstractCuckooFilter(words IWordArray, bucketSize, maxKicks uint64, hasher Hasher32) (*AbstractCuckooFilter, error) {
	if bucketSize == 0 {
		return nil, fmt.Errorf("cuckoopack: bucket size should be greater than 0")
	}
	if maxKicks == 0 {
		return nil, fmt.Errorf("cuckoopack: max kicks should be greater than 0")
	}
	if hasher == nil {
		hasher = DefaultHasher()
	}
	size := words.Size()
	if size%bucketSize != 0 {
		return nil, fmt.Errorf("cuckoopack: storage of %v words doesn't divide into buckets of size %v", size, bucketSize)
	}
	bucketCount := size / bucketSize
	if !util.IsPowerOfTwo(bucketCount) {
		return nil, fmt.Errorf("cuckoopack: bucket count should be a power of two, got %v", bucketCount)
	}
	filter := &AbstractCuckooFilter{}
	filter.words = words
	filter.bucketCount = bucketCount
	filter.bucketSize = bucketSize
	filter.fingerprintBits = words.WordBits()
	filter.maxKicks = maxKicks
	filter.hasher = hasher
	return filter, nil
}

// Capacity returns the total number of fingerprint slots in the filter
func (cuckooFilter *AbstractCuckooFilter) Capacity() uint64 {
	return cuckooFilter.words.Size()
}

// Length returns the number of entries currently held in the filter
func (cuckooFilter *AbstractCuckooFilter) Length() uint64 {
	return cuckooFilter.length
}

// BucketCount returns the number of buckets in the filter
func (cuckooFilter *AbstractCuckooFilter) BucketCount() uint64 {
	return cuckooFilter.bucketCount
}

// BucketSize returns the number of slots in the individual buckets of the filter
func (cuckooFilter *AbstractCuckooFilter) BucketSize() uint64 {
	return cuckooFilter.bucketSize
}

// FingerprintBits returns the width in bits of the stored fingerprints
func (cuckooFilter *AbstractCuckooFilter) FingerprintBits() uint64 {
	return cuckooFilter.fingerprintBits
}

// MaxKicks returns the number of evictions a single insert attempts after
// finding both candidate buckets of an element full
func (cuckooFilter *AbstractCuckooFilter) MaxKicks() uint64 {
	return cuckooFilter.maxKicks
}

// PositiveRate returns the expected false positive rate of the filter,
// 2*bucketSize / 2^fingerprintBits
func (cuckooFilter *AbstractCuckooFilter) PositiveRate() float64 {
	return math.Pow(2, math.Log2(float64(2*cuckooFilter.bucketSize))-float64(cuckooFilter.fingerprintBits))
}

// Insert adds the fingerprint of the element bytes to the filter. It
// reports false with a nil error when both candidate buckets are full and
// maxKicks evictions couldn't free a slot; fingerprints relocated by those
// evictions stay where the walk left them.
func (cuckooFilter *AbstractCuckooFilter) Insert(data []byte) (bool, error) {
	fingerprint, firstIndex, secondIndex := cuckooFilter.getPositions(data)
	if ok, err := cuckooFilter.bucketAt(firstIndex).add(fingerprint); err != nil {
		return false, err
	} else if ok {
		cuckooFilter.length++
		return true, nil
	}
	if ok, err := cuckooFilter.bucketAt(secondIndex).add(fingerprint); err != nil {
		return false, err
	} else if ok {
		cuckooFilter.length++
		return true, nil
	}
	currIndex := firstIndex
	for kick := uint64(0); kick < cuckooFilter.maxKicks; kick++ {
		slot := kick % cuckooFilter.bucketSize
		evicted, err := cuckooFilter.bucketAt(currIndex).swap(slot, fingerprint)
		if err != nil {
			return false, err
		}
		fingerprint = evicted
		currIndex = cuckooFilter.altIndex(currIndex, fingerprint)
		if ok, err := cuckooFilter.bucketAt(currIndex).add(fingerprint); err != nil {
			return false, err
		} else if ok {
			cuckooFilter.length++
			return true, nil
		}
	}
	return false, nil
}

// Lookup checks if the fingerprint of the element bytes sits in either of
// its two candidate buckets
func (cuckooFilter *AbstractCuckooFilter) Lookup(data []byte) (bool, error) {
	fingerprint, firstIndex, secondIndex := cuckooFilter.getPositions(data)
	if ok, err := cuckooFilter.bucketAt(firstIndex).contains(fingerprint); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	return cuckooFilter.bucketAt(secondIndex).contains(fingerprint)
}

// Remove deletes one copy of the fingerprint of the element bytes from its
// first candidate bucket, falling back to the second. It reports false
// with a nil error when neither bucket holds the fingerprint.
func (cuckooFilter *AbstractCuckooFilter) Remove(data []byte) (bool, error) {
	fingerprint, firstIndex, secondIndex := cuckooFilter.getPositions(data)
	if ok, err := cuckooFilter.bucketAt(firstIndex).remove(fingerprint); err != nil {
		return false, err
	} else if ok {
		cuckooFilter.decrementLength()
		return true, nil
	}
	if ok, err := cuckooFilter.bucketAt(secondIndex).remove(fingerprint); err != nil {
		return false, err
	} else if ok {
		cuckooFilter.decrementLength()
		return true, nil
	}
	return false, nil
}

// getPositions derives the stored fingerprint and the two candidate bucket
// indices of an element. The fingerprint is the top fingerprintBits bits
// of the 32-bit digest, the first index is the digest modulo the bucket
// count and the second is the first xored with a digest of the fingerprint
// itself. With a power-of-two bucket count altIndex maps each of the two
// indices to the other.
func (cuckooFilter *AbstractCuckooFilter) getPositions(data []byte) (uint32, uint64, uint64) {
	hash := cuckooFilter.hasher.Sum32(data)
	fingerprint := hash >> (32 - cuckooFilter.fingerprintBits)
	firstIndex := uint64(hash) % cuckooFilter.bucketCount
	secondIndex := cuckooFilter.altIndex(firstIndex, fingerprint)
	return fingerprint, firstIndex, secondIndex
}

// altIndex returns the partner bucket index of a fingerprint stored at _index_
func (cuckooFilter *AbstractCuckooFilter) altIndex(index uint64, fingerprint uint32) uint64 {
	return (index ^ uint64(cuckooFilter.hasher.Sum32Word(fingerprint))) % cuckooFilter.bucketCount
}

func (cuckooFilter *AbstractCuckooFilter) bucketAt(index uint64) bucket {
	return bucket{cuckooFilter.words, index * cuckooFilter.bucketSize, cuckooFilter.bucketSize}
}

func (cuckooFilter *AbstractCuckooFilter) decrementLength() {
	if cuckooFilter.length > 0 {
		cuckooFilter.length--
	}
}

// countOccupied counts the non-zero words in a snapshot of the storage.
// Restored filters recover their length this way since the packed buffer
// is the only thing persisted.
func (cuckooFilter *AbstractCuckooFilter) countOccupied() (uint64, error) {
	data, err := cuckooFilter.words.ToBytes()
	if err != nil {
		return 0, err
	}
	local, err := FromBytesMem(data, cuckooFilter.fingerprintBits)
	if err != nil {
		return 0, err
	}
	var count uint64
	for i := uint64(0); i < cuckooFilter.Capacity(); i++ {
		value, err := local.Get(i)
		if err != nil {
			return 0, err
		}
		if value != 0 {
			count++
		}
	}
	return count, nil
}
