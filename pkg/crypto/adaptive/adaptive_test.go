package adaptive

import (
	"bytes"
	"errors"
	"testing"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i * 7)
	}
	return key
}

var cipherTypes = []CipherType{CipherAESGCM, CipherChaCha20}

func TestCipherType_Valid(t *testing.T) {
	for _, ct := range []CipherType{"", CipherAESGCM, CipherChaCha20} {
		if !ct.Valid() {
			t.Errorf("%q should be valid", ct)
		}
	}
	if CipherType("des").Valid() {
		t.Error("des should not be valid")
	}
	if d := DefaultCipher(); d != CipherAESGCM && d != CipherChaCha20 {
		t.Errorf("DefaultCipher() = %q", d)
	}
}

func TestNew(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Type() != DefaultCipher() {
		t.Errorf("Type() = %s, want %s", c.Type(), DefaultCipher())
	}

	c, err = NewWithType(testKey(), "")
	if err != nil || c.Type() != DefaultCipher() {
		t.Errorf("NewWithType(\"\") = %v, %v", c, err)
	}
}

func TestNewWithType_Errors(t *testing.T) {
	if _, err := NewWithType(testKey(), "rot13"); !errors.Is(err, ErrUnknownCipher) {
		t.Errorf("unknown type error = %v", err)
	}
	for _, ct := range cipherTypes {
		for _, n := range []int{0, 16, 24, 31, 33} {
			if _, err := NewWithType(make([]byte, n), ct); !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("%s with %d-byte key: error = %v", ct, n, err)
			}
		}
	}
}

func TestCipher_SealOpen(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
		ad        []byte
	}{
		{"empty", []byte{}, nil},
		{"session json", []byte(`{"cookie":{"path":"/"},"user":42}`), nil},
		{"bound to salt", []byte("payload"), []byte("0123456789abcdef")},
		{"large", bytes.Repeat([]byte("s"), 8192), nil},
	}

	for _, ct := range cipherTypes {
		c, err := NewWithType(testKey(), ct)
		if err != nil {
			t.Fatalf("NewWithType(%s) error = %v", ct, err)
		}
		if c.NonceSize() != 12 || c.Overhead() != 16 {
			t.Errorf("%s nonce/overhead = %d/%d", ct, c.NonceSize(), c.Overhead())
		}
		for _, tt := range tests {
			t.Run(string(ct)+"/"+tt.name, func(t *testing.T) {
				sealed, err := c.Seal(tt.plaintext, tt.ad)
				if err != nil {
					t.Fatalf("Seal() error = %v", err)
				}
				if want := len(tt.plaintext) + c.NonceSize() + c.Overhead(); len(sealed) != want {
					t.Errorf("sealed length = %d, want %d", len(sealed), want)
				}
				got, err := c.Open(sealed, tt.ad)
				if err != nil {
					t.Fatalf("Open() error = %v", err)
				}
				if !bytes.Equal(got, tt.plaintext) {
					t.Errorf("Open() = %q, want %q", got, tt.plaintext)
				}
			})
		}
	}
}

func TestCipher_OpenRejects(t *testing.T) {
	for _, ct := range cipherTypes {
		c, _ := NewWithType(testKey(), ct)
		ad := []byte("salt")
		sealed, err := c.Seal([]byte("secret"), ad)
		if err != nil {
			t.Fatalf("Seal() error = %v", err)
		}

		flipped := bytes.Clone(sealed)
		flipped[len(flipped)-1] ^= 0x01

		other := testKey()
		other[0] ^= 0xFF
		wrongKey, _ := NewWithType(other, ct)

		cases := []struct {
			name string
			c    *Cipher
			in   []byte
			ad   []byte
			want error
		}{
			{"tampered", c, flipped, ad, ErrDecryptionFailed},
			{"wrong ad", c, sealed, []byte("other"), ErrDecryptionFailed},
			{"wrong key", wrongKey, sealed, ad, ErrDecryptionFailed},
			{"short", c, sealed[:c.NonceSize()+c.Overhead()-1], ad, ErrCiphertextShort},
		}
		for _, tc := range cases {
			if _, err := tc.c.Open(tc.in, tc.ad); !errors.Is(err, tc.want) {
				t.Errorf("%s/%s: error = %v, want %v", ct, tc.name, err, tc.want)
			}
		}
	}
}

func TestCipher_FreshNonce(t *testing.T) {
	c, _ := NewWithType(testKey(), CipherChaCha20)
	a, _ := c.Seal([]byte("same"), nil)
	b, _ := c.Seal([]byte("same"), nil)
	if bytes.Equal(a[:c.NonceSize()], b[:c.NonceSize()]) {
		t.Error("two seals reused a nonce")
	}
}
