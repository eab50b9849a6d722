/*
Buckets are containers of a fixed number of fingerprint slots used in
cuckoo filters. Here a bucket is a view over a contiguous run of words
inside a word array rather than a container of its own, so the same code
drives both the in-memory and the redis backed storage.
*/
package cuckoopack

// bucket is a window of _size_ slots starting at word index _offset_.
// A slot holding the zero word is free.
type bucket struct {
	words  IWordArray
	offset uint64
	size   uint64
}

// slots fetches every fingerprint in the bucket in slot order
func (b bucket) slots() ([]uint32, error) {
	indexes := make([]uint64, b.size)
	for i := uint64(0); i < b.size; i++ {
		indexes[i] = b.offset + i
	}
	return b.words.GetMulti(indexes)
}

// at returns the fingerprint stored in the slot at _slot_
func (b bucket) at(slot uint64) (uint32, error) {
	return b.words.Get(b.offset + slot)
}

// set overwrites the slot at _slot_ with _fingerprint_
func (b bucket) set(slot uint64, fingerprint uint32) error {
	return b.words.Set(b.offset+slot, fingerprint)
}

// add stores the fingerprint in the first free slot. It reports false
// without touching storage when every slot is taken.
func (b bucket) add(fingerprint uint32) (bool, error) {
	values, err := b.slots()
	if err != nil {
		return false, err
	}
	for slot := range values {
		if values[slot] == 0 {
			if err := b.set(uint64(slot), fingerprint); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// contains checks if any slot holds the fingerprint
func (b bucket) contains(fingerprint uint32) (bool, error) {
	values, err := b.slots()
	if err != nil {
		return false, err
	}
	for slot := range values {
		if values[slot] == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

// remove frees the first slot holding the fingerprint. It reports false
// when no slot does.
func (b bucket) remove(fingerprint uint32) (bool, error) {
	values, err := b.slots()
	if err != nil {
		return false, err
	}
	for slot := range values {
		if values[slot] == fingerprint {
			if err := b.set(uint64(slot), 0); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// swap exchanges the fingerprint in the slot at _slot_ for the incoming
// one and returns the evicted occupant
func (b bucket) swap(slot uint64, fingerprint uint32) (uint32, error) {
	evicted, err := b.at(slot)
	if err != nil {
		return 0, err
	}
	if err := b.set(slot, fingerprint); err != nil {
		return 0, err
	}
	return evicted, nil
}
