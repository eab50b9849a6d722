package cuckoopack

import "fmt"

// TypedCuckooFilter adapts a byte-oriented filter into a DeletableFilter
// over elements of any type E. Elements pass through the _funnel_ on the
// way in, so inserts, lookups and removals of equal elements always digest
// equal bytes.
type TypedCuckooFilter[E any] struct {
	filter DeletableFilter[[]byte]
	funnel Funnel[E]
}

var _ DeletableFilter[string] = (*TypedCuckooFilter[string])(nil)

// NewTypedCuckooFilter wraps the byte-oriented _filter_ with the _funnel_
// serializing elements of type E
func NewTypedCuckooFilter[E any](filter DeletableFilter[[]byte], funnel Funnel[E]) (*TypedCuckooFilter[E], error) {
	if filter == nil {
		return nil, fmt.Errorf("cuckoopack: filter is required")
	}
	if funnel == nil {
		return nil, fmt.Errorf("cuckoopack: funnel is required")
	}
	return &TypedCuckooFilter[E]{filter, funnel}, nil
}

// Insert writes the _element_ in the filter for future lookup
func (typedFilter *TypedCuckooFilter[E]) Insert(element E) (bool, error) {
	return typedFilter.filter.Insert(typedFilter.funnel(element))
}

// Lookup checks if the _element_ is present in the filter
func (typedFilter *TypedCuckooFilter[E]) Lookup(element E) (bool, error) {
	return typedFilter.filter.Lookup(typedFilter.funnel(element))
}

// Remove deletes one occurrence of the _element_ from the filter
func (typedFilter *TypedCuckooFilter[E]) Remove(element E) (bool, error) {
	return typedFilter.filter.Remove(typedFilter.funnel(element))
}
