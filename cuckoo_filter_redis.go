package cuckoopack

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/probkit/cuckoopack/internal/util"
)

// CuckooFilterRedis is the redis backed implementation of BaseCuckooFilter.
// The packed fingerprint storage lives in a single redis string wrapped by
// a WordArrayRedis, so the filter state survives process restarts and can
// be picked up again through NewCuckooFilterRedisFromKey.
// _metadataKey_ is the key of a redis hash holding the filter parameters
// and the key of the storage string.
// The length is tracked in process and recomputed from the storage when a
// filter is restored from its metadata key.
type CuckooFilterRedis struct {
	wordsRedis  *WordArrayRedis
	metadataKey string
	*AbstractCuckooFilter
}

var _ DeletableFilter[[]byte] = (*CuckooFilterRedis)(nil)

// NewCuckooFilterRedis creates a new redis backed CuckooFilter
// _bucketCount_ is the number of buckets, which must be a power of two
// _bucketSize_ is the number of fingerprint slots per bucket
// _fingerprintBits_ is the width in bits of the stored fingerprints
func NewCuckooFilterRedis(bucketCount, bucketSize, fingerprintBits uint64) (*CuckooFilterRedis, error) {
	return NewCuckooFilterRedisWithKicks(bucketCount, bucketSize, fingerprintBits, 500)
}

// NewCuckooFilterRedisWithKicks creates a new redis backed CuckooFilter
// with the eviction budget _maxKicks_
func NewCuckooFilterRedisWithKicks(bucketCount, bucketSize, fingerprintBits, maxKicks uint64) (*CuckooFilterRedis, error) {
	return NewCuckooFilterRedisWithHasher(bucketCount, bucketSize, fingerprintBits, maxKicks, DefaultHasher())
}

// NewCuckooFilterRedisWithHasher creates a new redis backed CuckooFilter
// deriving fingerprints and bucket indices from the injected _hasher_.
// A filter restored from this filter's metadata key must be built with the
// same hasher.
func NewCuckooFilterRedisWithHasher(bucketCount, bucketSize, fingerprintBits, maxKicks uint64, hasher Hasher32) (*CuckooFilterRedis, error) {
	words, err := NewWordArrayRedis(bucketCount*bucketSize, fingerprintBits)
	if err != nil {
		return nil, err
	}
	baseFilter, err := makeAbstractCuckooFilter(words, bucketSize, maxKicks, hasher)
	if err != nil {
		return nil, err
	}
	metadataKey := util.GenerateRandomString(16)
	filter := &CuckooFilterRedis{words, metadataKey, baseFilter}
	if err := filter.setMetadata(); err != nil {
		return nil, fmt.Errorf("cuckoopack: error while creating cuckoo filter redis: %v", err)
	}
	return filter, nil
}

// NewCuckooFilterRedisWithErrorRate creates a redis backed CuckooFilter
// sized for at least _minCapacity_ entries whose expected false positive
// rate stays below _errorRate_
func NewCuckooFilterRedisWithErrorRate(minCapacity, bucketSize, maxKicks uint64, errorRate float64) (*CuckooFilterRedis, error) {
	if bucketSize == 0 {
		return nil, fmt.Errorf("cuckoopack: bucket size should be greater than 0")
	}
	if errorRate <= 0 || errorRate >= 1 {
		return nil, fmt.Errorf("cuckoopack: error rate should be in (0, 1), got %v", errorRate)
	}
	fingerprintBits := util.CalculateFingerprintBits(bucketSize, errorRate)
	bucketCount := util.NextPowerOfTwo(util.CalculateBucketCount(minCapacity, bucketSize, 0.955))
	return NewCuckooFilterRedisWithKicks(bucketCount, bucketSize, fingerprintBits, maxKicks)
}

// NewCuckooFilterRedisFromKey restores a redis backed CuckooFilter from
// the metadata hash saved at _metadataKey_. For this to work, a filter
// must have been created earlier and its MetadataKey kept around.
func NewCuckooFilterRedisFromKey(metadataKey string) (*CuckooFilterRedis, error) {
	return NewCuckooFilterRedisFromKeyWithHasher(metadataKey, DefaultHasher())
}

// NewCuckooFilterRedisFromKeyWithHasher restores a redis backed
// CuckooFilter created with the injected _hasher_ from the metadata hash
// saved at _metadataKey_. The length is recomputed by scanning a snapshot
// of the storage for occupied slots.
func NewCuckooFilterRedisFromKeyWithHasher(metadataKey string, hasher Hasher32) (*CuckooFilterRedis, error) {
	values, err := GetRedisClient().HGetAll(context.Background(), metadataKey).Result()
	if err != nil {
		return nil, fmt.Errorf("cuckoopack: error while fetching metadata hash from redis: %v", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("cuckoopack: no cuckoo filter metadata at key %s", metadataKey)
	}
	bucketCount, err := parseMetadataField(values, "bucketCount")
	if err != nil {
		return nil, err
	}
	bucketSize, err := parseMetadataField(values, "bucketSize")
	if err != nil {
		return nil, err
	}
	fingerprintBits, err := parseMetadataField(values, "fingerprintBits")
	if err != nil {
		return nil, err
	}
	maxKicks, err := parseMetadataField(values, "maxKicks")
	if err != nil {
		return nil, err
	}
	words, err := FromRedisKey(values["wordsKey"], fingerprintBits)
	if err != nil {
		return nil, err
	}
	baseFilter, err := makeAbstractCuckooFilter(words, bucketSize, maxKicks, hasher)
	if err != nil {
		return nil, err
	}
	if baseFilter.bucketCount != bucketCount {
		return nil, fmt.Errorf("cuckoopack: storage at key %s yields %v buckets, metadata says %v", words.Key(), baseFilter.bucketCount, bucketCount)
	}
	length, err := baseFilter.countOccupied()
	if err != nil {
		return nil, err
	}
	baseFilter.length = length
	return &CuckooFilterRedis{words, metadataKey, baseFilter}, nil
}

// Key returns the redis key of the string holding the packed fingerprint storage
func (cuckooFilter *CuckooFilterRedis) Key() string {
	return cuckooFilter.wordsRedis.Key()
}

// MetadataKey returns the redis key of the metadata hash of the filter
func (cuckooFilter *CuckooFilterRedis) MetadataKey() string {
	return cuckooFilter.metadataKey
}

// ToBytes returns a snapshot of the packed fingerprint storage. The
// snapshot can be rebuilt into an in-memory filter with
// NewCuckooFilterFromBytes since both backends share one layout.
func (cuckooFilter *CuckooFilterRedis) ToBytes() ([]byte, error) {
	return cuckooFilter.words.ToBytes()
}

// Equals checks if two CuckooFilterRedis hold the same parameters and the
// same fingerprints
func (aFilter *CuckooFilterRedis) Equals(bFilter *CuckooFilterRedis) (bool, error) {
	if aFilter.bucketCount != bFilter.bucketCount ||
		aFilter.bucketSize != bFilter.bucketSize ||
		aFilter.fingerprintBits != bFilter.fingerprintBits {
		return false, nil
	}
	return aFilter.words.Equals(bFilter.words)
}

// Export JSON marshals the CuckooFilterRedis and returns a byte slice
// containing the data. The format is shared with the in-memory filter, so
// an export from either backend imports into the other.
func (cuckooFilter *CuckooFilterRedis) Export() ([]byte, error) {
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

// Import JSON unmarshals the _data_ into the CuckooFilterRedis. The
// storage is rewritten under a fresh redis key and the metadata hash is
// updated to point at it. The hasher isn't part of the export and stays
// as constructed.
func (cuckooFilter *CuckooFilterRedis) Import(data []byte) error {
	var f cuckooFilterJSON
	err := json.Unmarshal(data, &f)
	if err != nil {
		return err
	}
	buf, err := base64.URLEncoding.DecodeString(f.Words)
	if err != nil {
		return err
	}
	words, err := FromBytesRedis(buf, f.FingerprintBits)
	if err != nil {
		return err
	}
	hasher := DefaultHasher()
	if cuckooFilter.AbstractCuckooFilter != nil {
		hasher = cuckooFilter.hasher
	}
	baseFilter, err := makeAbstractCuckooFilter(words, f.BucketSize, f.MaxKicks, hasher)
	if err != nil {
		return err
	}
	if baseFilter.bucketCount != f.BucketCount {
		return fmt.Errorf("cuckoopack: imported buffer yields %v buckets, expected %v", baseFilter.bucketCount, f.BucketCount)
	}
	baseFilter.length = f.Length
	cuckooFilter.AbstractCuckooFilter = baseFilter
	cuckooFilter.wordsRedis = words
	if cuckooFilter.metadataKey == "" {
		cuckooFilter.metadataKey = util.GenerateRandomString(16)
	}
	if err := cuckooFilter.setMetadata(); err != nil {
		return fmt.Errorf("cuckoopack: error while importing cuckoo filter redis: %v", err)
	}
	return nil
}

func (cuckooFilter *CuckooFilterRedis) setMetadata() error {
	metadata := make(map[string]interface{})
	metadata["bucketCount"] = cuckooFilter.bucketCount
	metadata["bucketSize"] = cuckooFilter.bucketSize
	metadata["fingerprintBits"] = cuckooFilter.fingerprintBits
	metadata["maxKicks"] = cuckooFilter.maxKicks
	metadata["wordsKey"] = cuckooFilter.wordsRedis.Key()
	return GetRedisClient().HSet(context.Background(), cuckooFilter.metadataKey, metadata).Err()
}

func parseMetadataField(values map[string]string, field string) (uint64, error) {
	value, err := strconv.ParseUint(values[field], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cuckoopack: malformed metadata field %s: %v", field, err)
	}
	return value, nil
}
