package cuckoopack

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/probkit/cuckoopack/internal/util"
	"github.com/redis/go-redis/v9"
)

// WordArrayRedis is an implementation of IWordArray backed by a redis
// string. The packed buffer lives in redis at _key_ and every Get or Set
// moves only the byte span of the word it touches, so single-word traffic
// never transfers the whole buffer.
// _byteLen_ mirrors the length of the redis string, fixed at construction.
// The layout of the string is byte for byte the layout of WordArrayMem,
// which is what makes snapshots portable across the two backends.
type WordArrayRedis struct {
	key      string
	wordBits uint64
	byteLen  uint64
}

// NewWordArrayRedis creates a zero-filled word array of _wordCount_ words
// of _wordBits_ bits each, stored at a randomly generated redis key
func NewWordArrayRedis(wordCount, wordBits uint64) (*WordArrayRedis, error) {
	if err := validateWordBits(wordBits); err != nil {
		return nil, err
	}
	byteLen := (wordCount*wordBits + 7) / 8
	key := util.GenerateRandomString(16)
	err := GetRedisClient().Set(context.Background(), key, string(make([]byte, byteLen)), 0).Err()
	if err != nil {
		return nil, fmt.Errorf("cuckoopack: error while creating word array in redis: %v", err)
	}
	return &WordArrayRedis{key, wordBits, byteLen}, nil
}

// FromBytesRedis creates a WordArrayRedis holding a copy of _data_ at a
// randomly generated redis key
func FromBytesRedis(data []byte, wordBits uint64) (*WordArrayRedis, error) {
	if err := validateWordBits(wordBits); err != nil {
		return nil, err
	}
	key := util.GenerateRandomString(16)
	err := GetRedisClient().Set(context.Background(), key, string(data), 0).Err()
	if err != nil {
		return nil, fmt.Errorf("cuckoopack: error while copying word array to redis: %v", err)
	}
	return &WordArrayRedis{key, wordBits, uint64(len(data))}, nil
}

// FromRedisKey creates a WordArrayRedis over the buffer already saved at
// the redis key _key_
func FromRedisKey(key string, wordBits uint64) (*WordArrayRedis, error) {
	if err := validateWordBits(wordBits); err != nil {
		return nil, err
	}
	val, err := GetRedisClient().Get(context.Background(), key).Result()
	if err != nil {
		return nil, fmt.Errorf("cuckoopack: error while fetching word array at key %s: %v", key, err)
	}
	return &WordArrayRedis{key, wordBits, uint64(len(val))}, nil
}

// Key gives the key at which the packed buffer is saved in redis
func (wordArray *WordArrayRedis) Key() string {
	return wordArray.key
}

// Size returns the number of words the redis string holds
func (wordArray *WordArrayRedis) Size() uint64 {
	return wordArray.byteLen * 8 / wordArray.wordBits
}

// WordBits returns the width of each word in bits
func (wordArray *WordArrayRedis) WordBits() uint64 {
	return wordArray.wordBits
}

// Get returns the word at index _index_, fetching its byte span with GETRANGE
func (wordArray *WordArrayRedis) Get(index uint64) (uint32, error) {
	if index >= wordArray.Size() {
		return 0, fmt.Errorf("cuckoopack: index %v out of range for word array of size %v", index, wordArray.Size())
	}
	first, last, trailing := wordRange(index, wordArray.wordBits)
	span, err := GetRedisClient().GetRange(context.Background(), wordArray.key, int64(first), int64(last)).Result()
	if err != nil {
		return 0, fmt.Errorf("cuckoopack: error while reading word at index %v: %v", index, err)
	}
	if uint64(len(span)) != last-first+1 {
		return 0, fmt.Errorf("cuckoopack: word array at key %s is shorter than its declared %v bytes", wordArray.key, wordArray.byteLen)
	}
	return extractWord([]byte(span), trailing, wordArray.wordBits), nil
}

// GetMulti returns the words at the index values passed in the _indexes_
// array, fetching all their byte spans in one pipelined round trip
func (wordArray *WordArrayRedis) GetMulti(indexes []uint64) ([]uint32, error) {
	if len(indexes) == 0 {
		return nil, fmt.Errorf("cuckoopack: at least 1 index is required")
	}
	for i := range indexes {
		if indexes[i] >= wordArray.Size() {
			return nil, fmt.Errorf("cuckoopack: index %v out of range for word array of size %v", indexes[i], wordArray.Size())
		}
	}
	pipe := GetRedisClient().Pipeline()
	ctx := context.Background()
	spans := make([]*redis.StringCmd, len(indexes))
	for i := range indexes {
		first, last, _ := wordRange(indexes[i], wordArray.wordBits)
		spans[i] = pipe.GetRange(ctx, wordArray.key, int64(first), int64(last))
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("cuckoopack: error while reading words: %v", err)
	}
	values := make([]uint32, len(indexes))
	for i := range indexes {
		first, last, trailing := wordRange(indexes[i], wordArray.wordBits)
		span := spans[i].Val()
		if uint64(len(span)) != last-first+1 {
			return nil, fmt.Errorf("cuckoopack: word array at key %s is shorter than its declared %v bytes", wordArray.key, wordArray.byteLen)
		}
		values[i] = extractWord([]byte(span), trailing, wordArray.wordBits)
	}
	return values, nil
}

// Set overwrites the word at index _index_ with _value_. The byte span
// holding the word is fetched, spliced locally and written back in place
// with SETRANGE.
func (wordArray *WordArrayRedis) Set(index uint64, value uint32) error {
	if index >= wordArray.Size() {
		return fmt.Errorf("cuckoopack: index %v out of range for word array of size %v", index, wordArray.Size())
	}
	if uint64(value) > wordMask(wordArray.wordBits) {
		return fmt.Errorf("cuckoopack: value %v doesn't fit in %v bits", value, wordArray.wordBits)
	}
	first, last, trailing := wordRange(index, wordArray.wordBits)
	ctx := context.Background()
	val, err := GetRedisClient().GetRange(ctx, wordArray.key, int64(first), int64(last)).Result()
	if err != nil {
		return fmt.Errorf("cuckoopack: error while reading word at index %v: %v", index, err)
	}
	if uint64(len(val)) != last-first+1 {
		return fmt.Errorf("cuckoopack: word array at key %s is shorter than its declared %v bytes", wordArray.key, wordArray.byteLen)
	}
	span := []byte(val)
	spliceWord(span, trailing, wordArray.wordBits, value)
	err = GetRedisClient().SetRange(ctx, wordArray.key, int64(first), string(span)).Err()
	if err != nil {
		return fmt.Errorf("cuckoopack: error while writing word at index %v: %v", index, err)
	}
	return nil
}

// Equals checks if two WordArrayRedis hold the same words
func (wordArray *WordArrayRedis) Equals(otherWordArray IWordArray) (bool, error) {
	other, ok := otherWordArray.(*WordArrayRedis)
	if !ok {
		return false, fmt.Errorf("cuckoopack: invalid word array type, should be WordArrayRedis")
	}
	if wordArray.wordBits != other.wordBits {
		return false, nil
	}
	ctx := context.Background()
	aVal, err := GetRedisClient().Get(ctx, wordArray.key).Result()
	if err != nil {
		return false, fmt.Errorf("cuckoopack: error while fetching word array at key %s: %v", wordArray.key, err)
	}
	bVal, err := GetRedisClient().Get(ctx, other.key).Result()
	if err != nil {
		return false, fmt.Errorf("cuckoopack: error while fetching word array at key %s: %v", other.key, err)
	}
	return aVal == bVal, nil
}

// ToBytes fetches the whole packed buffer from redis
func (wordArray *WordArrayRedis) ToBytes() ([]byte, error) {
	val, err := GetRedisClient().Get(context.Background(), wordArray.key).Result()
	if err != nil {
		return nil, fmt.Errorf("cuckoopack: error while exporting word array at key %s: %v", wordArray.key, err)
	}
	return []byte(val), nil
}

// WriteTo writes the word array to a stream and returns the number of bytes written onto the stream
func (wordArray *WordArrayRedis) WriteTo(stream io.Writer) (int64, error) {
	data, err := wordArray.ToBytes()
	if err != nil {
		return 0, err
	}
	err = binary.Write(stream, binary.BigEndian, wordArray.wordBits)
	if err != nil {
		return 0, err
	}
	err = binary.Write(stream, binary.BigEndian, uint64(len(data)))
	if err != nil {
		return 0, err
	}
	numBytes, err := stream.Write(data)
	if err != nil {
		return 0, err
	}
	return int64(numBytes) + 2*int64(binary.Size(uint64(0))), nil
}

// ReadFrom reads the stream and replaces the buffer saved in redis with
// its contents, returning the number of bytes read
func (wordArray *WordArrayRedis) ReadFrom(stream io.Reader) (int64, error) {
	var wordBits, byteLen uint64
	err := binary.Read(stream, binary.BigEndian, &wordBits)
	if err != nil {
		return 0, err
	}
	if err := validateWordBits(wordBits); err != nil {
		return 0, err
	}
	err = binary.Read(stream, binary.BigEndian, &byteLen)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, byteLen)
	numBytes, err := io.ReadFull(stream, buf)
	if err != nil {
		return 0, err
	}
	if wordArray.key == "" {
		wordArray.key = util.GenerateRandomString(16)
	}
	err = GetRedisClient().Set(context.Background(), wordArray.key, string(buf), 0).Err()
	if err != nil {
		return 0, fmt.Errorf("cuckoopack: error while importing word array: %v", err)
	}
	wordArray.wordBits = wordBits
	wordArray.byteLen = byteLen
	return int64(numBytes) + 2*int64(binary.Size(uint64(0))), nil
}
