package cuckoopack

import (
	"bytes"
	"testing"
)

func TestTypedCuckooFilterString(t *testing.T) {
	base, _ := NewCuckooFilter(16, 4, 16)
	filter, err := NewTypedCuckooFilter[string](base, StringFunnel)
	if err != nil {
		t.Fatalf("error should be nil, got %v", err)
	}
	if ok, _ := filter.Insert("alice"); !ok {
		t.Error("alice should get added in the filter")
	}
	if ok, _ := filter.Insert("bob"); !ok {
		t.Error("bob should get added in the filter")
	}
	if base.Length() != 2 {
		t.Errorf("filter length should be 2, instead found %v", base.Length())
	}
	if ok, _ := filter.Lookup("alice"); !ok {
		t.Error("alice should be present in filter")
	}
	if ok, _ := filter.Lookup("carol"); ok {
		t.Error("carol shouldn't be present in filter")
	}
	// the wrapper digests the same bytes the base filter would
	if ok, _ := base.Lookup([]byte("alice")); !ok {
		t.Error("alice should be visible through the base filter")
	}
	if ok, _ := filter.Remove("alice"); !ok {
		t.Error("should be able to remove as alice is in the filter")
	}
	if ok, _ := filter.Remove("carol"); ok {
		t.Error("shouldn't be able to remove as carol isn't in the filter")
	}
	if base.Length() != 1 {
		t.Errorf("filter length should be 1, instead found %v", base.Length())
	}
}

func TestTypedCuckooFilterUint64(t *testing.T) {
	base, _ := NewCuckooFilter(64, 4, 32)
	filter, _ := NewTypedCuckooFilter[uint64](base, Uint64Funnel)
	for i := uint64(1); i <= 20; i++ {
		if ok, _ := filter.Insert(i); !ok {
			t.Fatalf("%v should get added in the filter", i)
		}
	}
	for i := uint64(1); i <= 10; i++ {
		if ok, _ := filter.Remove(i); !ok {
			t.Fatalf("should be able to remove as %v is in the filter", i)
		}
	}
	for i := uint64(11); i <= 20; i++ {
		if ok, _ := filter.Lookup(i); !ok {
			t.Errorf("%v should be present in filter", i)
		}
	}
	for i := uint64(1); i <= 10; i++ {
		if ok, _ := filter.Lookup(i); ok {
			t.Errorf("%v shouldn't be present in filter", i)
		}
	}
	if base.Length() != 10 {
		t.Errorf("filter length should be 10, instead found %v", base.Length())
	}
}

func TestTypedCuckooFilterRedis(t *testing.T) {
	initMockRedis()
	base, err := NewCuckooFilterRedis(16, 4, 16)
	if err != nil {
		t.Fatalf("error should be nil, got %v", err)
	}
	filter, _ := NewTypedCuckooFilter[string](base, StringFunnel)
	filter.Insert("alice")
	filter.Insert("bob")
	if base.Length() != 2 {
		t.Errorf("filter length should be 2, instead found %v", base.Length())
	}
	if ok, _ := filter.Lookup("bob"); !ok {
		t.Error("bob should be present in filter")
	}
	if ok, _ := filter.Remove("bob"); !ok {
		t.Error("should be able to remove as bob is in the filter")
	}
	if base.Length() != 1 {
		t.Errorf("filter length should be 1, instead found %v", base.Length())
	}
}

func TestTypedCuckooFilterNilArgs(t *testing.T) {
	base, _ := NewCuckooFilter(16, 4, 16)
	if _, err := NewTypedCuckooFilter[string](nil, StringFunnel); err == nil {
		t.Error("filter shouldn't get created without a base filter")
	}
	if _, err := NewTypedCuckooFilter[string](base, nil); err == nil {
		t.Error("filter shouldn't get created without a funnel")
	}
}

func TestFunnelEncodings(t *testing.T) {
	raw := []byte{0xDE, 0xAD}
	if !bytes.Equal(BytesFunnel(raw), raw) {
		t.Errorf("bytes funnel should pass %v through unchanged", raw)
	}
	if !bytes.Equal(StringFunnel("abc"), []byte{0x61, 0x62, 0x63}) {
		t.Errorf("string funnel should yield raw bytes, got %v", StringFunnel("abc"))
	}
	if !bytes.Equal(Uint32Funnel(0x01020304), []byte{1, 2, 3, 4}) {
		t.Errorf("uint32 funnel should encode big-endian, got %v", Uint32Funnel(0x01020304))
	}
	if !bytes.Equal(Uint64Funnel(0x0102030405060708), []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("uint64 funnel should encode big-endian, got %v", Uint64Funnel(0x0102030405060708))
	}
}
