package cypher

import (
	"errors"
	"testing"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
)

func newTestCypher(t *testing.T, password string) *Cypher {
	t.Helper()
	c, err := New(password, "test-salt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newTestCypher(t, "secret")
	inputs := []string{"", "hello", "1234567890", "ünïcødé ✓", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}
	for _, in := range inputs {
		enc, err := c.Encrypt(in)
		if err != nil {
			t.Fatalf("Encrypt(%q) error = %v", in, err)
		}
		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if dec != in {
			t.Errorf("Decrypt(Encrypt(%q)) = %q", in, dec)
		}
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	c := newTestCypher(t, "secret")
	a, _ := c.Encrypt("same input")
	b, _ := c.Encrypt("same input")
	if a == b {
		t.Error("two encryptions of the same input are identical")
	}
}

func TestNullable(t *testing.T) {
	c := newTestCypher(t, "secret")
	enc, err := c.EncryptNullable(nil)
	if err != nil || enc != nil {
		t.Errorf("EncryptNullable(nil) = %v, %v", enc, err)
	}
	dec, err := c.DecryptNullable(nil)
	if err != nil || dec != nil {
		t.Errorf("DecryptNullable(nil) = %v, %v", dec, err)
	}

	value := "42"
	enc, err = c.EncryptNullable(&value)
	if err != nil || enc == nil {
		t.Fatalf("EncryptNullable() = %v, %v", enc, err)
	}
	dec, err = c.DecryptNullable(enc)
	if err != nil || dec == nil || *dec != value {
		t.Errorf("DecryptNullable() = %v, %v", dec, err)
	}
}

func TestDecryptFailures(t *testing.T) {
	c := newTestCypher(t, "secret")
	other := newTestCypher(t, "rotated")

	enc, _ := c.Encrypt("payload")
	tests := map[string]string{
		"wrong secret":  enc,
		"not base64":    "%%%",
		"too short":     "AAAA",
		"tampered body": enc[:len(enc)-4] + "AAA=",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			decoder := c
			if name == "wrong secret" {
				decoder = other
			}
			_, err := decoder.Decrypt(input)
			var decErr *apperror.DecryptionError
			if !errors.As(err, &decErr) {
				t.Errorf("Decrypt() error = %v, want DecryptionError", err)
			}
		})
	}
}

func TestHash(t *testing.T) {
	got, err := Hash("abc")
	if err != nil {
		t.Fatal(err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Hash(abc) = %s", got)
	}
	if GenerateHash("abc") != want {
		t.Error("GenerateHash differs from Hash")
	}
	if md5sum, _ := Hash("abc", "md5"); md5sum != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("Hash(abc, md5) = %s", md5sum)
	}
	if _, err := Hash("abc", "crc32"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New("", "salt"); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestSignIsDeterministic(t *testing.T) {
	c := newTestCypher(t, "secret")
	if c.Sign("data") != c.Sign("data") {
		t.Error("Sign is not deterministic")
	}
	if c.Sign("data") == newTestCypher(t, "other").Sign("data") {
		t.Error("Sign ignores the key")
	}
}
