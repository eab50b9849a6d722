/*
Word arrays store fixed-width unsigned integers packed back to back in a
byte buffer - both in-memory and redis backed. The layout is big-endian:
word k occupies bits [k*wordBits, (k+1)*wordBits) counted from the most
significant bit of byte 0, so the buffer reads as one continuous bit
string regardless of where it is stored.
*/
package cuckoopack

import (
	"fmt"
	"io"
)

// maxWordBits is the widest storable word. Words travel through uint32
// and the byte span of a single word never exceeds 5 bytes.
const maxWordBits = 32

type IWordArray interface {
	// Size returns the number of words the buffer holds, always derived
	// from the buffer length as len(buffer)*8/wordBits
	Size() uint64

	// WordBits returns the width of each word in bits
	WordBits() uint64

	// Get returns the word at index
	Get(index uint64) (uint32, error)

	// GetMulti returns the words at the index values
	// passed in the indexes array
	GetMulti(indexes []uint64) ([]uint32, error)

	// Set overwrites the word at index with value
	Set(index uint64, value uint32) error

	// Equals checks if two word arrays hold the same words
	Equals(otherWordArray IWordArray) (bool, error)

	// ToBytes returns an independent copy of the packed buffer
	ToBytes() ([]byte, error)

	// WriteTo writes the word array to a stream and
	// returns the number of bytes written onto the stream
	WriteTo(stream io.Writer) (int64, error)

	// ReadFrom reads the stream and imports it into the word array
	// and returns the number of bytes read
	ReadFrom(stream io.Reader) (int64, error)
}

// Function IsWordArrayMem is used to check if the passed variable `t`
// is of type *WordArrayMem or not
func IsWordArrayMem(t interface{}) bool {
	switch t.(type) {
	case *WordArrayMem:
		return true
	default:
		return false
	}
}

func validateWordBits(wordBits uint64) error {
	if wordBits < 1 || wordBits > maxWordBits {
		return fmt.Errorf("cuckoopack: word width should be between 1 and %v bits, got %v", maxWordBits, wordBits)
	}
	return nil
}

// wordRange locates the word at _index_ inside the packed buffer: the
// first and last byte index its bits touch, and the number of bits of the
// last byte that sit after it.
func wordRange(index, wordBits uint64) (first, last, trailing uint64) {
	bitPos := index * wordBits
	first = bitPos / 8
	last = (bitPos + wordBits - 1) / 8
	trailing = (last+1)*8 - (bitPos + wordBits)
	return first, last, trailing
}

func wordMask(wordBits uint64) uint64 {
	return (uint64(1) << wordBits) - 1
}

// extractWord pulls one word out of the byte span covering it. The span
// bytes are accumulated big-endian into a single integer, shifted right to
// drop the trailing bits and masked down to the word width.
func extractWord(span []byte, trailing, wordBits uint64) uint32 {
	var acc uint64
	for i := 0; i < len(span); i++ {
		acc = acc<<8 | uint64(span[i])
	}
	return uint32((acc >> trailing) & wordMask(wordBits))
}

// spliceWord overwrites one word inside its byte span in place, keeping
// the neighbouring bits it shares its first and last byte with.
func spliceWord(span []byte, trailing, wordBits uint64, value uint32) {
	var acc uint64
	for i := 0; i < len(span); i++ {
		acc = acc<<8 | uint64(span[i])
	}
	acc &^= wordMask(wordBits) << trailing
	acc |= uint64(value) << trailing
	for i := len(span) - 1; i >= 0; i-- {
		span[i] = byte(acc)
		acc >>= 8
	}
}
