package rlp

import (
	"bytes"
	"math/big"
	"testing"

	gethrlp "github.com/ethereum/go-ethereum/rlp"
)

func TestEncodeBytes(t *testing.T) {
	long := bytes.Repeat([]byte{0xaa}, 56)
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"empty", nil, []byte{0x80}},
		{"single low byte", []byte{0x00}, []byte{0x00}},
		{"single 0x7f", []byte{0x7f}, []byte{0x7f}},
		{"single 0x80", []byte{0x80}, []byte{0x81, 0x80}},
		{"dog", []byte("dog"), []byte{0x83, 'd', 'o', 'g'}},
		{"56 bytes", long, append([]byte{0xb8, 56}, long...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeBytes(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("got %x, want %x", got, tt.want)
			}
		})
	}
}

func TestEncodeUint64(t *testing.T) {
	tests := []struct {
		input uint64
		want  []byte
	}{
		{0, []byte{0x80}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x80}},
		{1024, []byte{0x82, 0x04, 0x00}},
		{0xffffffffffffffff, []byte{0x88, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		got := EncodeUint64(tt.input)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeUint64(%d) = %x, want %x", tt.input, got, tt.want)
		}
	}
}

func TestEncodeBigInt(t *testing.T) {
	if got := EncodeBigInt(nil); !bytes.Equal(got, []byte{0x80}) {
		t.Fatalf("nil: got %x", got)
	}
	v, _ := new(big.Int).SetString("102030405060708090a0b0c0d0e0f2", 16)
	want := append([]byte{0x8f}, v.Bytes()...)
	if got := EncodeBigInt(v); !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestEncodeList(t *testing.T) {
	// [ [], [[]], [ [], [[]] ] ]
	empty := EncodeList()
	one := EncodeList(empty)
	got := EncodeList(empty, one, EncodeList(empty, one))
	want := []byte{0xc7, 0xc0, 0xc1, 0xc0, 0xc3, 0xc0, 0xc1, 0xc0}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}

	cat := EncodeBytesList([][]byte{[]byte("cat"), []byte("dog")})
	wantCat := []byte{0xc8, 0x83, 'c', 'a', 't', 0x83, 'd', 'o', 'g'}
	if !bytes.Equal(cat, wantCat) {
		t.Fatalf("got %x, want %x", cat, wantCat)
	}
}

func TestEncodeLongListMatchesGeth(t *testing.T) {
	items := make([][]byte, 40)
	for i := range items {
		items[i] = bytes.Repeat([]byte{byte(i)}, i)
	}
	got := EncodeBytesList(items)
	want, err := gethrlp.EncodeToBytes(items)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("encoding differs from go-ethereum:\n got %x\nwant %x", got, want)
	}
}
