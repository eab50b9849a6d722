package util

import (
	"math"
	"math/bits"
	"math/rand"
	"time"
)

var src = rand.NewSource(time.Now().UnixNano())

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const (
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

// Max returns the greater of x and y.
func Max(x, y uint64) uint64 {
	if x > y {
		return x
	}
	return y
}

// IsPowerOfTwo checks if n is a power of two. Zero is not.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two greater than or equal to n.
func NextPowerOfTwo(n uint64) uint64 {
	if IsPowerOfTwo(n) {
		return n
	}
	return 1 << bits.Len64(n)
}

// CalculateBucketCount returns the number of buckets of size _bucketSize_
// needed to hold _minCapacity_ entries when filled up to _loadFactor_.
func CalculateBucketCount(minCapacity, bucketSize uint64, loadFactor float64) uint64 {
	return Max(uint64(math.Ceil(float64(minCapacity)/(float64(bucketSize)*loadFactor))), 1)
}

// CalculateFingerprintBits returns the fingerprint width in bits needed to
// keep the false positive rate of a cuckoo filter with buckets of size
// _bucketSize_ below _errorRate_, clamped to the storable range [1, 32].
func CalculateFingerprintBits(bucketSize uint64, errorRate float64) uint64 {
	v := math.Ceil(math.Log2(2 * float64(bucketSize) / errorRate))
	if v < 1 {
		return 1
	}
	if v > 32 {
		return 32
	}
	return uint64(v)
}

// GenerateRandomString generates a random alphabetic string of length n
func GenerateRandomString(n int) string {
	b := make([]byte, n)
	// A src.Int63() generates 63 random bits, enough for letterIdxMax characters!
	for i, cache, remain := n-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}
	return string(b)
}
