package cuckoopack

import (
	"bytes"
	"fmt"
	"math/rand"
	"strconv"
	"testing"
)

func TestCuckooFilterBasic(t *testing.T) {
	filter, _ := NewCuckooFilter(32, 4, 16)
	ok, err := filter.Insert([]byte("john"))
	if !ok || err != nil {
		t.Errorf("john should get added in the filter, got %v, error %v", ok, err)
	}
	ok, err = filter.Insert([]byte("jane"))
	if !ok || err != nil {
		t.Errorf("jane should get added in the filter, got %v, error %v", ok, err)
	}
	if filter.Length() != 2 {
		t.Errorf("filter length should be 2, instead found %v", filter.Length())
	}
	if ok, _ := filter.Lookup([]byte("john")); !ok {
		t.Error("john should be present in filter")
	}
	if ok, _ := filter.Lookup([]byte("jane")); !ok {
		t.Error("jane should be present in filter")
	}
}

func TestAddDifferentBuckets(t *testing.T) {
	hasher := &fixedHasher{
		digests:     map[string]uint32{"foo": 0x77000002},
		wordDigests: map[uint32]uint32{0x77: 5},
	}
	filter, _ := NewCuckooFilterWithHasher(8, 2, 8, 500, hasher)
	e := []byte("foo")
	for i := 0; i < 4; i++ {
		if ok, _ := filter.Insert(e); !ok {
			t.Errorf("insert %v of foo should land in a bucket", i+1)
		}
	}
	if filter.Length() != 4 {
		t.Errorf("filter length should be 4, instead found %v", filter.Length())
	}
	// both candidate buckets, 2 and 7, are full of the fingerprint 0x77
	for _, index := range []uint64{4, 5, 14, 15} {
		if value, _ := filter.words.Get(index); value != 0x77 {
			t.Fatalf("word %v should be 77, got %x", index, value)
		}
	}
	if ok, _ := filter.Insert(e); ok {
		t.Error("fifth insert of foo should fail, both buckets are full")
	}
	if filter.Length() != 4 {
		t.Errorf("filter length should still be 4, instead found %v", filter.Length())
	}
	for i := 0; i < 4; i++ {
		if ok, _ := filter.Remove(e); !ok {
			t.Errorf("remove %v of foo should take out one copy", i+1)
		}
	}
	if ok, _ := filter.Remove(e); ok {
		t.Error("no copies of foo should be left to remove")
	}
	if filter.Length() != 0 {
		t.Errorf("filter length should be 0, instead found %v", filter.Length())
	}
}

func TestCuckooEvictionWalk(t *testing.T) {
	hasher := &fixedHasher{
		digests: map[string]uint32{
			"a": 0x0A000000,
			"b": 0x0B000001,
			"c": 0x0C000000,
		},
		wordDigests: map[uint32]uint32{0x0A: 1, 0x0B: 3, 0x0C: 1},
	}
	filter, _ := NewCuckooFilterWithHasher(4, 1, 8, 500, hasher)
	filter.Insert([]byte("a"))
	filter.Insert([]byte("b"))
	// both buckets of c hold a and b, so the insert has to relocate them
	ok, err := filter.Insert([]byte("c"))
	if !ok || err != nil {
		t.Fatalf("c should get added in the filter, got %v, error %v", ok, err)
	}
	if filter.Length() != 3 {
		t.Errorf("filter length should be 3, instead found %v", filter.Length())
	}
	data, _ := filter.ToBytes()
	if !bytes.Equal(data, []byte{0x0C, 0x0A, 0x0B, 0x00}) {
		t.Fatalf("storage should be 0c0a0b00, got %x", data)
	}
	for _, e := range []string{"a", "b", "c"} {
		if ok, _ := filter.Lookup([]byte(e)); !ok {
			t.Errorf("%v should be present in filter after the relocations", e)
		}
	}
}

func TestCuckooNoRollbackWhenFull(t *testing.T) {
	hasher := &fixedHasher{
		digests: map[string]uint32{
			"one":   0x11000000,
			"two":   0x22000001,
			"three": 0x33000000,
		},
		wordDigests: map[uint32]uint32{0x11: 1, 0x22: 1, 0x33: 1},
	}
	filter, _ := NewCuckooFilterWithHasher(2, 1, 8, 2, hasher)
	filter.Insert([]byte("one"))
	filter.Insert([]byte("two"))
	ok, err := filter.Insert([]byte("three"))
	if ok {
		t.Error("filter is full, insert of three should report false")
	}
	if err != nil {
		t.Errorf("a full filter is not an error, got %v", err)
	}
	if filter.Length() != 2 {
		t.Errorf("filter length should still be 2, instead found %v", filter.Length())
	}
	// the walk moved three in and one across, and dropped two on the floor
	data, _ := filter.ToBytes()
	if !bytes.Equal(data, []byte{0x33, 0x11}) {
		t.Fatalf("storage should be 3311, got %x", data)
	}
	if ok, _ := filter.Lookup([]byte("one")); !ok {
		t.Error("one should still be present in filter")
	}
	if ok, _ := filter.Lookup([]byte("two")); ok {
		t.Error("two should have been evicted out of the filter")
	}
	if ok, _ := filter.Lookup([]byte("three")); !ok {
		t.Error("three should be present in filter")
	}
}

func TestCuckooFilterFull(t *testing.T) {
	hasher := &fixedHasher{
		digests:     map[string]uint32{"foo": 0xAB000000},
		wordDigests: map[uint32]uint32{0xAB: 0},
	}
	filter, _ := NewCuckooFilterWithHasher(1, 1, 8, 3, hasher)
	if ok, _ := filter.Insert([]byte("foo")); !ok {
		t.Error("foo should get added in the filter")
	}
	ok, err := filter.Insert([]byte("foo"))
	if ok {
		t.Error("filter is full, second insert should report false")
	}
	if err != nil {
		t.Errorf("a full filter is not an error, got %v", err)
	}
	if filter.Length() != 1 {
		t.Errorf("filter length should be 1, instead found %v", filter.Length())
	}
	if ok, _ := filter.Lookup([]byte("foo")); !ok {
		t.Error("foo should be present in filter")
	}
}

func TestInsertAndLookup(t *testing.T) {
	filter, _ := NewCuckooFilterWithErrorRate(20, 4, 500, 0.0001)
	filter.Insert([]byte("alice"))
	filter.Insert([]byte("andrew"))
	filter.Insert([]byte("bob"))
	filter.Insert([]byte("sam"))

	filter.Insert([]byte("alice"))
	filter.Insert([]byte("andrew"))
	filter.Insert([]byte("bob"))
	filter.Insert([]byte("sam"))

	if filter.Length() != 8 {
		t.Errorf("filter length should be 8, instead found %v", filter.Length())
	}

	ok1, _ := filter.Lookup([]byte("samx"))
	ok2, _ := filter.Lookup([]byte("samy"))
	ok3, e1 := filter.Lookup([]byte("alice"))
	ok4, _ := filter.Lookup([]byte("joe"))

	if ok1 {
		t.Error("samx shouldn't be present in filter")
	}
	if ok2 {
		t.Error("samy shouldn't be present in filter")
	}
	if !ok3 {
		t.Errorf("alice should be present in filter, error: %v", e1)
	}
	if ok4 {
		t.Error("joe shouldn't be present in filter")
	}
}

func TestRemovePresent(t *testing.T) {
	filter, _ := NewCuckooFilterWithErrorRate(20, 4, 500, 0.0001)
	filter.Insert([]byte("foo"))
	filter.Insert([]byte("bar"))
	ok, _ := filter.Remove([]byte("foo"))
	if !ok {
		t.Error("should be able to remove as foo is in the filter")
	}
	ok, _ = filter.Remove([]byte("foo"))
	if ok {
		t.Error("shouldn't be able to remove as foo isn't in the filter")
	}
	if filter.Length() != 1 {
		t.Errorf("filter length should be 1, instead found %v", filter.Length())
	}
}

func TestRemoveNotPresent(t *testing.T) {
	filter, _ := NewCuckooFilterWithErrorRate(20, 4, 500, 0.0001)
	filter.Insert([]byte("foo"))
	ok, _ := filter.Remove([]byte("bar"))
	if ok {
		t.Error("shouldn't be able to remove as bar isn't in the filter")
	}
}

func TestCuckooNoFalseNegatives(t *testing.T) {
	filter, _ := NewCuckooFilter(256, 4, 13)
	for i := 0; i < 800; i++ {
		e := []byte(fmt.Sprintf("item-%d", i))
		if ok, err := filter.Insert(e); !ok || err != nil {
			t.Fatalf("item-%d should get added in the filter, got %v, error %v", i, ok, err)
		}
	}
	if filter.Length() != 800 {
		t.Errorf("filter length should be 800, instead found %v", filter.Length())
	}
	for i := 0; i < 800; i++ {
		e := []byte(fmt.Sprintf("item-%d", i))
		if ok, _ := filter.Lookup(e); !ok {
			t.Fatalf("item-%d should be present in filter", i)
		}
	}
}

func TestCuckooRemoveCycle(t *testing.T) {
	filter, _ := NewCuckooFilter(256, 4, 32)
	for i := 0; i < 800; i++ {
		e := []byte(fmt.Sprintf("item-%d", i))
		if ok, _ := filter.Insert(e); !ok {
			t.Fatalf("item-%d should get added in the filter", i)
		}
	}
	for i := 0; i < 800; i++ {
		e := []byte(fmt.Sprintf("item-%d", i))
		if ok, _ := filter.Remove(e); !ok {
			t.Fatalf("item-%d should be removable from the filter", i)
		}
	}
	if filter.Length() != 0 {
		t.Errorf("filter length should be 0, instead found %v", filter.Length())
	}
	for i := 0; i < 800; i++ {
		e := []byte(fmt.Sprintf("item-%d", i))
		if ok, _ := filter.Lookup(e); ok {
			t.Fatalf("item-%d shouldn't be present in the drained filter", i)
		}
	}
	if ok, _ := filter.Insert([]byte("item-0")); !ok {
		t.Error("drained filter should accept inserts again")
	}
}

func TestCuckooObservedPositiveRate(t *testing.T) {
	filter, _ := NewCuckooFilter(2048, 4, 16)
	for i := 0; i < 7000; i++ {
		e := []byte(fmt.Sprintf("in-%d", i))
		if ok, _ := filter.Insert(e); !ok {
			t.Fatalf("in-%d should get added in the filter at this load", i)
		}
	}
	positives := 0
	queries := 1000000
	for i := 0; i < queries; i++ {
		if ok, _ := filter.Lookup([]byte(fmt.Sprintf("out-%d", i))); ok {
			positives++
		}
	}
	if positives >= queries/1000 {
		t.Errorf("false positives should stay below 0.1%%, got %v out of %v", positives, queries)
	}
}

func TestCuckooFilterWithCapacity(t *testing.T) {
	filter, err := NewCuckooFilterWithCapacity(100, 4, 16, 0.95)
	if err != nil {
		t.Fatalf("error should be nil, got %v", err)
	}
	if filter.BucketCount() != 32 {
		t.Errorf("bucket count should be 32, instead found %v", filter.BucketCount())
	}
	if filter.Capacity() != 128 {
		t.Errorf("capacity should be 128, instead found %v", filter.Capacity())
	}
	if _, err := NewCuckooFilterWithCapacity(100, 0, 16, 0.95); err == nil {
		t.Error("bucket size 0 should be rejected")
	}
	if _, err := NewCuckooFilterWithCapacity(100, 4, 16, 0); err == nil {
		t.Error("load factor 0 should be rejected")
	}
	if _, err := NewCuckooFilterWithCapacity(100, 4, 16, 1.5); err == nil {
		t.Error("load factor 1.5 should be rejected")
	}
}

func TestCuckooFilterWithErrorRate(t *testing.T) {
	filter, err := NewCuckooFilterWithErrorRate(100, 4, 500, 0.001)
	if err != nil {
		t.Fatalf("error should be nil, got %v", err)
	}
	if filter.FingerprintBits() != 13 {
		t.Errorf("fingerprint bits should be 13, instead found %v", filter.FingerprintBits())
	}
	if filter.BucketCount() != 32 {
		t.Errorf("bucket count should be 32, instead found %v", filter.BucketCount())
	}
	if filter.PositiveRate() > 0.001 {
		t.Errorf("positive rate should stay below 0.001, got %v", filter.PositiveRate())
	}
	if _, err := NewCuckooFilterWithErrorRate(100, 4, 500, 0); err == nil {
		t.Error("error rate 0 should be rejected")
	}
	if _, err := NewCuckooFilterWithErrorRate(100, 4, 500, 1); err == nil {
		t.Error("error rate 1 should be rejected")
	}
	if _, err := NewCuckooFilterWithErrorRate(100, 0, 500, 0.001); err == nil {
		t.Error("bucket size 0 should be rejected")
	}
}

func TestCuckooFilterWithWordArray(t *testing.T) {
	words, _ := NewWordArrayMem(8, 12)
	words.Set(0, 0xFF)
	words.Set(5, 0xAB)
	filter, err := NewCuckooFilterWithWordArray(words, 2, 500, nil)
	if err != nil {
		t.Fatalf("error should be nil, got %v", err)
	}
	if filter.BucketCount() != 4 {
		t.Errorf("bucket count should be 4, instead found %v", filter.BucketCount())
	}
	if filter.Length() != 2 {
		t.Errorf("filter length should be 2, instead found %v", filter.Length())
	}
	if ok, _ := filter.bucketAt(0).contains(0xFF); !ok {
		t.Error("bucket 0 should hold the fingerprint ff")
	}
	if ok, _ := filter.bucketAt(2).contains(0xAB); !ok {
		t.Error("bucket 2 should hold the fingerprint ab")
	}

	odd, _ := NewWordArrayMem(9, 12)
	if _, err := NewCuckooFilterWithWordArray(odd, 2, 500, nil); err == nil {
		t.Error("9 words don't divide into buckets of 2 and should be rejected")
	}
	six, _ := NewWordArrayMem(12, 8)
	if _, err := NewCuckooFilterWithWordArray(six, 2, 500, nil); err == nil {
		t.Error("a bucket count of 6 isn't a power of two and should be rejected")
	}

	initMockRedis()
	wordsRedis, _ := NewWordArrayRedis(8, 12)
	if _, err := NewCuckooFilterWithWordArray(wordsRedis, 2, 500, nil); err == nil {
		t.Error("redis backed word arrays should be rejected")
	}
}

func TestCuckooConstructorValidation(t *testing.T) {
	if _, err := NewCuckooFilter(0, 4, 8); err == nil {
		t.Error("bucket count 0 should be rejected")
	}
	if _, err := NewCuckooFilter(3, 4, 8); err == nil {
		t.Error("bucket count 3 isn't a power of two and should be rejected")
	}
	if _, err := NewCuckooFilter(8, 0, 8); err == nil {
		t.Error("bucket size 0 should be rejected")
	}
	if _, err := NewCuckooFilter(8, 4, 0); err == nil {
		t.Error("fingerprint width 0 should be rejected")
	}
	if _, err := NewCuckooFilter(8, 4, 33); err == nil {
		t.Error("fingerprint width 33 should be rejected")
	}
	if _, err := NewCuckooFilterWithKicks(8, 4, 8, 0); err == nil {
		t.Error("max kicks 0 should be rejected")
	}
}

func TestCuckooToBytesFromBytes(t *testing.T) {
	filter1, _ := NewCuckooFilter(16, 4, 16)
	filter1.Insert([]byte("alpha"))
	filter1.Insert([]byte("beta"))
	filter1.Insert([]byte("gamma"))
	data, err := filter1.ToBytes()
	if err != nil {
		t.Fatalf("error should be nil, got %v", err)
	}
	filter2, err := NewCuckooFilterFromBytes(data, 4, 16)
	if err != nil {
		t.Fatalf("error should be nil, got %v", err)
	}
	if ok, _ := filter1.Equals(filter2); !ok {
		t.Error("filter1 and filter2 should be same")
	}
	if filter2.Length() != filter1.Length() {
		t.Errorf("recovered length should be %v, instead found %v", filter1.Length(), filter2.Length())
	}
	for _, e := range []string{"alpha", "beta", "gamma"} {
		if ok, _ := filter2.Lookup([]byte(e)); !ok {
			t.Errorf("%v should be present in filter2", e)
		}
	}
	if _, err := NewCuckooFilterFromBytes(data, 3, 16); err == nil {
		t.Error("64 words don't divide into buckets of 3 and should be rejected")
	}
}

func TestCuckooToBytesGolden(t *testing.T) {
	hasher := &fixedHasher{
		digests:     map[string]uint32{"a": 0x0A000000, "b": 0x0B000001},
		wordDigests: map[uint32]uint32{0x0A: 1, 0x0B: 3},
	}
	filter, _ := NewCuckooFilterWithHasher(4, 1, 8, 500, hasher)
	filter.Insert([]byte("a"))
	filter.Insert([]byte("b"))
	data, _ := filter.ToBytes()
	if !bytes.Equal(data, []byte{0x0A, 0x0B, 0x00, 0x00}) {
		t.Fatalf("storage should be 0a0b0000, got %x", data)
	}
	filter2, _ := NewCuckooFilterFromBytesWithHasher(data, 1, 8, 500, hasher)
	if filter2.Length() != 2 {
		t.Errorf("recovered length should be 2, instead found %v", filter2.Length())
	}
	if ok, _ := filter2.Lookup([]byte("a")); !ok {
		t.Error("a should be present in filter2")
	}
	if ok, _ := filter2.Lookup([]byte("b")); !ok {
		t.Error("b should be present in filter2")
	}
}

func TestCuckooImportInvalidJSON(t *testing.T) {
	data := []byte("{invalid}")

	var g CuckooFilter
	err := g.Import(data)
	if err == nil {
		t.Error("expected error while unmarshalling invalid data")
	}
}

func TestCuckooEquals(t *testing.T) {
	filter1, _ := NewCuckooFilter(16, 4, 16)
	filter1.Insert([]byte("one"))
	filter1.Insert([]byte("two"))
	filter1.Insert([]byte("three"))
	filter2, _ := NewCuckooFilter(16, 4, 16)
	filter2.Insert([]byte("one"))
	filter2.Insert([]byte("two"))
	filter2.Insert([]byte("three"))
	if ok, _ := filter1.Equals(filter2); !ok {
		t.Error("filter1 and filter2 should be same")
	}
	filter2.Insert([]byte("four"))
	if ok, _ := filter1.Equals(filter2); ok {
		t.Error("filter1 and filter2 shouldn't be same after another insert")
	}
	// the eviction budget doesn't take part in equality
	filter3, _ := NewCuckooFilterWithKicks(16, 4, 16, 100)
	filter3.Insert([]byte("one"))
	filter3.Insert([]byte("two"))
	filter3.Insert([]byte("three"))
	if ok, _ := filter1.Equals(filter3); !ok {
		t.Error("filter1 and filter3 should be same")
	}
	filter4, _ := NewCuckooFilter(32, 4, 16)
	if ok, _ := filter1.Equals(filter4); ok {
		t.Error("filters of different geometry shouldn't be same")
	}
}

func TestCuckooMarshalUnmarshal(t *testing.T) {
	filter1, _ := NewCuckooFilter(16, 4, 16)
	filter1.Insert([]byte("one"))
	filter1.Insert([]byte("two"))
	filter1.Insert([]byte("three"))
	filter1.Insert([]byte("four"))
	snapshot, err := filter1.Export()
	if err != nil {
		t.Fatalf("error should be nil, got %v", err)
	}
	var filter2 CuckooFilter
	if err := filter2.Import(snapshot); err != nil {
		t.Fatalf("error should be nil, got %v", err)
	}
	ok, _ := filter2.Lookup([]byte("one"))
	if !ok {
		t.Error("one should be in filter2")
	}
	ok, _ = filter2.Lookup([]byte("five"))
	if ok {
		t.Error("five should not be in filter2")
	}
	if filter2.Length() != filter1.Length() {
		t.Errorf("imported length should be %v, instead found %v", filter1.Length(), filter2.Length())
	}
	ok, _ = filter1.Equals(&filter2)
	if !ok {
		t.Errorf("filter1 and filter2 should be same")
	}
}

func TestCuckooBinaryReadWrite(t *testing.T) {
	filter1, _ := NewCuckooFilter(16, 4, 16)
	filter1.Insert([]byte("one"))
	filter1.Insert([]byte("two"))
	filter1.Insert([]byte("three"))

	var buff bytes.Buffer
	written, err := filter1.WriteTo(&buff)
	if err != nil {
		t.Error("error should be nil during binary write")
	}
	if written != int64(buff.Len()) {
		t.Fatalf("written bytes should be %v, got %v", buff.Len(), written)
	}

	filter2 := &CuckooFilter{}
	read, err := filter2.ReadFrom(&buff)
	if err != nil {
		t.Error("error should be nil during binary read")
	}
	if read != written {
		t.Fatalf("read bytes should be %v, got %v", written, read)
	}

	if ok, _ := filter1.Equals(filter2); !ok {
		t.Error("filter1 and filter2 should be same")
	}
	if filter2.Length() != filter1.Length() {
		t.Errorf("length should be %v, instead found %v", filter1.Length(), filter2.Length())
	}
	if filter2.MaxKicks() != filter1.MaxKicks() {
		t.Errorf("max kicks should be %v, instead found %v", filter1.MaxKicks(), filter2.MaxKicks())
	}
	for _, e := range []string{"one", "two", "three"} {
		if ok, _ := filter2.Lookup([]byte(e)); !ok {
			t.Errorf("%v should be present in filter2", e)
		}
	}
}

func BenchmarkCuckooInsert1MX4X500X16(b *testing.B) {
	b.StopTimer()
	filter, _ := NewCuckooFilter(262144, 4, 16)
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		filter.Insert([]byte(strconv.FormatUint(rand.Uint64(), 10)))
	}
}

func BenchmarkCuckooLookup1MX4X500X16X10k(b *testing.B) {
	b.StopTimer()
	filter, _ := NewCuckooFilter(262144, 4, 16)
	for i := 0; i < 10000; i++ {
		filter.Insert([]byte(strconv.FormatUint(rand.Uint64(), 10)))
	}
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		filter.Lookup([]byte(strconv.FormatUint(rand.Uint64(), 10)))
	}
}
