package cuckoopack

import "encoding/binary"

// Funnel converts an element of an arbitrary type into the bytes a filter
// digests. Funnels must be deterministic: the same element always yields
// the same bytes.
type Funnel[E any] func(element E) []byte

// BytesFunnel passes element bytes through unchanged
func BytesFunnel(element []byte) []byte {
	return element
}

// StringFunnel encodes a string element as its raw bytes
func StringFunnel(element string) []byte {
	return []byte(element)
}

// Uint32Funnel encodes an element big-endian
func Uint32Funnel(element uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, element)
	return buf
}

// Uint64Funnel encodes an element big-endian
func Uint64Funnel(element uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, element)
	return buf
}
