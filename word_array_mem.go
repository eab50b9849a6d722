package cuckoopack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// WordArrayMem is an in-memory implementation of IWordArray.
// _bytes_ is the packed buffer holding the words back to back
// _wordBits_ is the width of each word in bits
type WordArrayMem struct {
	bytes    []byte
	wordBits uint64
}

// NewWordArrayMem creates a zero-filled WordArrayMem with room for
// _wordCount_ words of _wordBits_ bits each
func NewWordArrayMem(wordCount, wordBits uint64) (*WordArrayMem, error) {
	if err := validateWordBits(wordBits); err != nil {
		return nil, err
	}
	return &WordArrayMem{make([]byte, (wordCount*wordBits+7)/8), wordBits}, nil
}

// FromBytesMem creates a WordArrayMem over a copy of _data_. The word
// count is derived from the buffer length, so when 8*len(data) isn't a
// multiple of _wordBits_ the trailing padding bits surface as extra
// zero-valued words.
func FromBytesMem(data []byte, wordBits uint64) (*WordArrayMem, error) {
	if err := validateWordBits(wordBits); err != nil {
		return nil, err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &WordArrayMem{buf, wordBits}, nil
}

// Size returns the number of words the buffer holds
func (wordArray *WordArrayMem) Size() uint64 {
	return uint64(len(wordArray.bytes)) * 8 / wordArray.wordBits
}

// WordBits returns the width of each word in bits
func (wordArray *WordArrayMem) WordBits() uint64 {
	return wordArray.wordBits
}

// Get returns the word at index _index_
func (wordArray *WordArrayMem) Get(index uint64) (uint32, error) {
	if index >= wordArray.Size() {
		return 0, fmt.Errorf("cuckoopack: index %v out of range for word array of size %v", index, wordArray.Size())
	}
	first, last, trailing := wordRange(index, wordArray.wordBits)
	return extractWord(wordArray.bytes[first:last+1], trailing, wordArray.wordBits), nil
}

// GetMulti returns the words at the index values passed in the _indexes_ array
func (wordArray *WordArrayMem) GetMulti(indexes []uint64) ([]uint32, error) {
	if len(indexes) == 0 {
		return nil, fmt.Errorf("cuckoopack: at least 1 index is required")
	}
	values := make([]uint32, len(indexes))
	for i := range indexes {
		value, err := wordArray.Get(indexes[i])
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

// Set overwrites the word at index _index_ with _value_
func (wordArray *WordArrayMem) Set(index uint64, value uint32) error {
	if index >= wordArray.Size() {
		return fmt.Errorf("cuckoopack: index %v out of range for word array of size %v", index, wordArray.Size())
	}
	if uint64(value) > wordMask(wordArray.wordBits) {
		return fmt.Errorf("cuckoopack: value %v doesn't fit in %v bits", value, wordArray.wordBits)
	}
	first, last, trailing := wordRange(index, wordArray.wordBits)
	spliceWord(wordArray.bytes[first:last+1], trailing, wordArray.wordBits, value)
	return nil
}

// Equals checks if two WordArrayMem hold the same words
func (wordArray *WordArrayMem) Equals(otherWordArray IWordArray) (bool, error) {
	other, ok := otherWordArray.(*WordArrayMem)
	if !ok {
		return false, fmt.Errorf("cuckoopack: invalid word array type, should be WordArrayMem")
	}
	return wordArray.wordBits == other.wordBits && bytes.Equal(wordArray.bytes, other.bytes), nil
}

// ToBytes returns an independent copy of the packed buffer
func (wordArray *WordArrayMem) ToBytes() ([]byte, error) {
	buf := make([]byte, len(wordArray.bytes))
	copy(buf, wordArray.bytes)
	return buf, nil
}

// WriteTo writes the word array to a stream and returns the number of bytes written onto the stream
func (wordArray *WordArrayMem) WriteTo(stream io.Writer) (int64, error) {
	err := binary.Write(stream, binary.BigEndian, wordArray.wordBits)
	if err != nil {
		return 0, err
	}
	err = binary.Write(stream, binary.BigEndian, uint64(len(wordArray.bytes)))
	if err != nil {
		return 0, err
	}
	numBytes, err := stream.Write(wordArray.bytes)
	if err != nil {
		return 0, err
	}
	return int64(numBytes) + 2*int64(binary.Size(uint64(0))), nil
}

// ReadFrom reads the stream and imports it into the word array and returns the number of bytes read
func (wordArray *WordArrayMem) ReadFrom(stream io.Reader) (int64, error) {
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
	wordArray.wordBits = wordBits
	wordArray.bytes = buf
	return int64(numBytes) + 2*int64(binary.Size(uint64(0))), nil
}
