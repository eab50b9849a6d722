package cuckoopack

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/probkit/cuckoopack/internal/util"
)

// CuckooFilter is the in-memory implementation of BaseCuckooFilter.
// Fingerprints are packed into a WordArrayMem at fingerprintBits bits per
// slot, so a filter of a million 12-bit fingerprints costs 1.5MB.
type CuckooFilter struct {
	*AbstractCuckooFilter
}

var _ DeletableFilter[[]byte] = (*CuckooFilter)(nil)

// NewCuckooFilter creates a new in-memory CuckooFilter
// _bucketCount_ is the number of buckets, which must be a power of two
// _bucketSize_ is the number of fingerprint slots per bucket
// _fingerprintBits_ is the width in bits of the stored fingerprints
func NewCuckooFilter(bucketCount, bucketSize, fingerprintBits uint64) (*CuckooFilter, error) {
	return NewCuckooFilterWithKicks(bucketCount, bucketSize, fingerprintBits, 500)
}

// NewCuckooFilterWithKicks creates a new in-memory CuckooFilter with the
// eviction budget _maxKicks_, the number of evictions a single insert
// attempts after finding both candidate buckets of the element full
func NewCuckooFilterWithKicks(bucketCount, bucketSize, fingerprintBits, maxKicks uint64) (*CuckooFilter, error) {
	return NewCuckooFilterWithHasher(bucketCount, bucketSize, fingerprintBits, maxKicks, DefaultHasher())
}

// NewCuckooFilterWithHasher creates a new in-memory CuckooFilter deriving
// fingerprints and bucket indices from the injected _hasher_. Every filter
// reading a snapshot of this one must be built with the same hasher.
func NewCuckooFilterWithHasher(bucketCount, bucketSize, fingerprintBits, maxKicks uint64, hasher Hasher32) (*CuckooFilter, error) {
	words, err := NewWordArrayMem(bucketCount*bucketSize, fingerprintBits)
	if err != nil {
		return nil, err
	}
	baseFilter, err := makeAbstractCuckooFilter(words, bucketSize, maxKicks, hasher)
	if err != nil {
		return nil, err
	}
	return &CuckooFilter{baseFilter}, nil
}

// NewCuckooFilterWithWordArray creates a CuckooFilter over a prebuilt
// in-memory word array whose word width becomes the fingerprint width.
// The array must be a *WordArrayMem; redis backed storage goes through
// CuckooFilterRedis instead. The filter takes ownership of the array.
func NewCuckooFilterWithWordArray(words IWordArray, bucketSize, maxKicks uint64, hasher Hasher32) (*CuckooFilter, error) {
	if !IsWordArrayMem(words) {
		return nil, fmt.Errorf("cuckoopack: word array should be of type *WordArrayMem")
	}
	baseFilter, err := makeAbstractCuckooFilter(words, bucketSize, maxKicks, hasher)
	if err != nil {
		return nil, err
	}
	length, err := baseFilter.countOccupied()
	if err != nil {
		return nil, err
	}
	baseFilter.length = length
	return &CuckooFilter{baseFilter}, nil
}

// NewCuckooFilterWithCapacity creates an in-memory CuckooFilter sized to
// hold at least _minCapacity_ entries when filled up to _loadFactor_. The
// computed bucket count is rounded up to the next power of two.
func NewCuckooFilterWithCapacity(minCapacity, bucketSize, fingerprintBits uint64, loadFactor float64) (*CuckooFilter, error) {
	if bucketSize == 0 {
		return nil, fmt.Errorf("cuckoopack: bucket size should be greater than 0")
	}
	if loadFactor <= 0 || loadFactor > 1 {
		return nil, fmt.Errorf("cuckoopack: load factor should be in (0, 1], got %v", loadFactor)
	}
	bucketCount := util.NextPowerOfTwo(util.CalculateBucketCount(minCapacity, bucketSize, loadFactor))
	return NewCuckooFilter(bucketCount, bucketSize, fingerprintBits)
}

// NewCuckooFilterWithErrorRate creates an in-memory CuckooFilter sized for
// at least _minCapacity_ entries whose expected false positive rate stays
// below _errorRate_. The fingerprint width is derived from the bucket size
// and the error rate.
func NewCuckooFilterWithErrorRate(minCapacity, bucketSize, maxKicks uint64, errorRate float64) (*CuckooFilter, error) {
	if bucketSize == 0 {
		return nil, fmt.Errorf("cuckoopack: bucket size should be greater than 0")
	}
	if errorRate <= 0 || errorRate >= 1 {
		return nil, fmt.Errorf("cuckoopack: error rate should be in (0, 1), got %v", errorRate)
	}
	fingerprintBits := util.CalculateFingerprintBits(bucketSize, errorRate)
	bucketCount := util.NextPowerOfTwo(util.CalculateBucketCount(minCapacity, bucketSize, 0.955))
	return NewCuckooFilterWithKicks(bucketCount, bucketSize, fingerprintBits, maxKicks)
}

// NewCuckooFilterFromBytes rebuilds an in-memory CuckooFilter from a
// storage snapshot taken with ToBytes. _bucketSize_ and _fingerprintBits_
// travel out of band: the snapshot holds only the packed fingerprints. The
// length is recovered by counting the occupied slots.
func NewCuckooFilterFromBytes(data []byte, bucketSize, fingerprintBits uint64) (*CuckooFilter, error) {
	return NewCuckooFilterFromBytesWithHasher(data, bucketSize, fingerprintBits, 500, DefaultHasher())
}

// NewCuckooFilterFromBytesWithHasher rebuilds an in-memory CuckooFilter
// from a storage snapshot written by a filter with the same _hasher_
func NewCuckooFilterFromBytesWithHasher(data []byte, bucketSize, fingerprintBits, maxKicks uint64, hasher Hasher32) (*CuckooFilter, error) {
	words, err := FromBytesMem(data, fingerprintBits)
	if err != nil {
		return nil, err
	}
	baseFilter, err := makeAbstractCuckooFilter(words, bucketSize, maxKicks, hasher)
	if err != nil {
		return nil, err
	}
	length, err := baseFilter.countOccupied()
	if err != nil {
		return nil, err
	}
	baseFilter.length = length
	return &CuckooFilter{baseFilter}, nil
}

// ToBytes returns a snapshot of the packed fingerprint storage
func (cuckooFilter *CuckooFilter) ToBytes() ([]byte, error) {
	return cuckooFilter.words.ToBytes()
}

// Equals checks if two CuckooFilter hold the same parameters and the same
// fingerprints
func (aFilter *CuckooFilter) Equals(bFilter *CuckooFilter) (bool, error) {
	if aFilter.bucketCount != bFilter.bucketCount ||
		aFilter.bucketSize != bFilter.bucketSize ||
		aFilter.fingerprintBits != bFilter.fingerprintBits {
		return false, nil
	}
	return aFilter.words.Equals(bFilter.words)
}

// cuckooFilterJSON is an internal struct used to json marshal/unmarshal the filter
type cuckooFilterJSON struct {
	BucketCount     uint64 `json:"bc"`
	BucketSize      uint64 `json:"bs"`
	FingerprintBits uint64 `json:"fpb"`
	MaxKicks        uint64 `json:"mk"`
	Length          uint64 `json:"l"`
	Words           string `json:"w"`
}

// Export JSON marshals the CuckooFilter and returns a byte slice containing the data
func (cuckooFilter *CuckooFilter) Export() ([]byte, error) {
	data, err := cuckooFilter.words.ToBytes()
	if err != nil {
		return nil, err
	}
	return json.Marshal(cuckooFilterJSON{
		cuckooFilter.bucketCount,
		cuckooFilter.bucketSize,
		cuckooFilter.fingerprintBits,
		cuckooFilter.maxKicks,
		cuckooFilter.length,
		base64.URLEncoding.EncodeToString(data),
	})
}

// Import JSON unmarshals the _data_ into the CuckooFilter. The hasher
// isn't part of the export and stays as constructed.
func (cuckooFilter *CuckooFilter) Import(data []byte) error {
	var f cuckooFilterJSON
	err := json.Unmarshal(data, &f)
	if err != nil {
		return err
	}
	buf, err := base64.URLEncoding.DecodeString(f.Words)
	if err != nil {
		return err
	}
	words, err := FromBytesMem(buf, f.FingerprintBits)
	if err != nil {
		return err
	}
	baseFilter, err := makeAbstractCuckooFilter(words, f.BucketSize, f.MaxKicks, cuckooFilter.importHasher())
	if err != nil {
		return err
	}
	if baseFilter.bucketCount != f.BucketCount {
		return fmt.Errorf("cuckoopack: imported buffer yields %v buckets, expected %v", baseFilter.bucketCount, f.BucketCount)
	}
	baseFilter.length = f.Length
	cuckooFilter.AbstractCuckooFilter = baseFilter
	return nil
}

// WriteTo writes the CuckooFilter onto the specified _stream_ and returns
// the number of bytes written.
// It can be used to write to disk (using a file stream) or to network.
func (cuckooFilter *CuckooFilter) WriteTo(stream io.Writer) (int64, error) {
	err := binary.Write(stream, binary.BigEndian, cuckooFilter.bucketCount)
	if err != nil {
		return 0, err
	}
	err = binary.Write(stream, binary.BigEndian, cuckooFilter.bucketSize)
	if err != nil {
		return 0, err
	}
	err = binary.Write(stream, binary.BigEndian, cuckooFilter.fingerprintBits)
	if err != nil {
		return 0, err
	}
	err = binary.Write(stream, binary.BigEndian, cuckooFilter.maxKicks)
	if err != nil {
		return 0, err
	}
	err = binary.Write(stream, binary.BigEndian, cuckooFilter.length)
	if err != nil {
		return 0, err
	}
	numBytes, err := cuckooFilter.words.WriteTo(stream)
	if err != nil {
		return 0, err
	}
	return numBytes + int64(5*binary.Size(uint64(0))), nil
}

// ReadFrom reads the CuckooFilter from the specified _stream_ and returns
// the number of bytes read. The hasher isn't part of the stream and stays
// as constructed.
// It can be used to read from disk (using a file stream) or from network.
func (cuckooFilter *CuckooFilter) ReadFrom(stream io.Reader) (int64, error) {
	var bucketCount, bucketSize, fingerprintBits, maxKicks, length uint64
	err := binary.Read(stream, binary.BigEndian, &bucketCount)
	if err != nil {
		return 0, err
	}
	err = binary.Read(stream, binary.BigEndian, &bucketSize)
	if err != nil {
		return 0, err
	}
	err = binary.Read(stream, binary.BigEndian, &fingerprintBits)
	if err != nil {
		return 0, err
	}
	err = binary.Read(stream, binary.BigEndian, &maxKicks)
	if err != nil {
		return 0, err
	}
	err = binary.Read(stream, binary.BigEndian, &length)
	if err != nil {
		return 0, err
	}
	words := &WordArrayMem{}
	numBytes, err := words.ReadFrom(stream)
	if err != nil {
		return 0, err
	}
	if words.WordBits() != fingerprintBits {
		return 0, fmt.Errorf("cuckoopack: stream word width %v doesn't match fingerprint bits %v", words.WordBits(), fingerprintBits)
	}
	baseFilter, err := makeAbstractCuckooFilter(words, bucketSize, maxKicks, cuckooFilter.importHasher())
	if err != nil {
		return 0, err
	}
	if baseFilter.bucketCount != bucketCount {
		return 0, fmt.Errorf("cuckoopack: stream buffer yields %v buckets, expected %v", baseFilter.bucketCount, bucketCount)
	}
	baseFilter.length = length
	cuckooFilter.AbstractCuckooFilter = baseFilter
	return numBytes + int64(5*binary.Size(uint64(0))), nil
}

// importHasher returns the hasher to carry across Import/ReadFrom, falling
// back to the default on a zero-value receiver
func (cuckooFilter *CuckooFilter) importHasher() Hasher32 {
	if cuckooFilter.AbstractCuckooFilter == nil {
		return DefaultHasher()
	}
	return cuckooFilter.hasher
}
