/*
Package cuckoopack implements a cuckoo filter over bit-packed fingerprint
storage - both in-memory and redis backed.

A Cuckoo filter is a data structure used for approximate set membership
queries, similar to a Bloom filter. It is designed to provide a compromise
between memory efficiency, fast membership queries, and the ability to
delete elements from the filter. Unlike a Bloom filter, a Cuckoo filter
allows for efficient removal of elements while maintaining relatively low
false positive rates.
Refer: https://www.cs.cmu.edu/~dga/papers/cuckoo-conext2014.pdf

Fingerprints are fixed-width words of 1 to 32 bits packed back to back in
a flat byte buffer, so narrow fingerprints cost exactly the bits they
need. The same packed layout is kept either in process memory or in a
redis string, and a snapshot taken from one backend can be restored into
the other.
*/
package cuckoopack

type BaseFilter[T any] interface {
	Insert(element T) (bool, error)
	Lookup(element T) (bool, error)
}

// DeletableFilter is a BaseFilter whose elements can also be removed
type DeletableFilter[T any] interface {
	BaseFilter[T]
	Remove(element T) (bool, error)
}
