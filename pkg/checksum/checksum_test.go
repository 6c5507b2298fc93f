package checksum

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// sha256("hello"), via echo -n hello | sha256sum
const helloSum = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

// sha256 of the empty input
const emptySum = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestCalculateSHA256(t *testing.T) {
	t.Run("known values", func(t *testing.T) {
		for input, want := range map[string]string{"hello": helloSum, "": emptySum} {
			got, err := CalculateSHA256(strings.NewReader(input))
			if err != nil {
				t.Fatalf("CalculateSHA256(%q): %v", input, err)
			}
			if got != want {
				t.Errorf("CalculateSHA256(%q) = %q, want %q", input, got, want)
			}
		}
	})

	t.Run("deterministic and collision-free on distinct inputs", func(t *testing.T) {
		a1, _ := CalculateSHA256(strings.NewReader("passport.pdf contents"))
		a2, _ := CalculateSHA256(strings.NewReader("passport.pdf contents"))
		b, _ := CalculateSHA256(strings.NewReader("deed.pdf contents"))
		if a1 != a2 {
			t.Error("same input hashed to different values")
		}
		if a1 == b {
			t.Error("different inputs hashed to the same value")
		}
	})

	t.Run("binary input yields 64-char lowercase hex", func(t *testing.T) {
		got, err := CalculateSHA256(bytes.NewReader([]byte{0x00, 0x7f, 0x80, 0xff}))
		if err != nil {
			t.Fatalf("CalculateSHA256: %v", err)
		}
		if len(got) != 64 {
			t.Fatalf("hash length = %d, want 64", len(got))
		}
		if got != strings.ToLower(got) {
			t.Errorf("hash %q is not lowercase", got)
		}
	})

	t.Run("propagates reader errors", func(t *testing.T) {
		if _, err := CalculateSHA256(failingReader{}); err == nil {
			t.Error("want error from failing reader, got nil")
		}
	})
}

func TestVerifySHA256(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		ok, err := VerifySHA256(strings.NewReader("hello"), helloSum)
		if err != nil {
			t.Fatalf("VerifySHA256: %v", err)
		}
		if !ok {
			t.Error("VerifySHA256 = false for a matching checksum")
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		ok, err := VerifySHA256(strings.NewReader("hello"), strings.Repeat("0", 64))
		if err != nil {
			t.Fatalf("VerifySHA256: %v", err)
		}
		if ok {
			t.Error("VerifySHA256 = true for a wrong checksum")
		}
	})

	t.Run("propagates reader errors", func(t *testing.T) {
		if _, err := VerifySHA256(failingReader{}, helloSum); err == nil {
			t.Error("want error from failing reader, got nil")
		}
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
