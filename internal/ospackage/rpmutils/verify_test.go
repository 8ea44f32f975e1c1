package rpmutils

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"github.com/open-edge-platform/rpm-fetch/internal/ospackage"
)

var testSpec = ospackage.PackageSpec{
	Name:        "hello-2.12.1-2",
	ReleaseTag:  "39",
	Arch:        "x86_64",
	PackageArch: "x86_64",
}

func stream(t *testing.T, s *Session, data []byte) {
	t.Helper()
	for len(data) > 0 {
		n := min(7, len(data))
		if _, err := s.Write(data[:n]); err != nil {
			t.Fatalf("Write: %v", err)
		}
		data = data[n:]
	}
}

func TestChecksumVerification(t *testing.T) {
	payload := []byte("not really an rpm, but the bytes we expect")
	sum256 := sha256.Sum256(payload)
	sum512 := sha512.Sum512(payload)

	tests := []struct {
		name     string
		checksum string
		wantErr  bool
	}{
		{"bare sha256", hex.EncodeToString(sum256[:]), false},
		{"prefixed sha256", "sha256:" + hex.EncodeToString(sum256[:]), false},
		{"upper-case algo", "SHA512:" + hex.EncodeToString(sum512[:]), false},
		{"mismatch", "sha256:" + strings.Repeat("00", sha256.Size), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := NewVerifier(tc.checksum, "", false)
			if err != nil {
				t.Fatalf("NewVerifier: %v", err)
			}
			if !v.Enabled() {
				t.Fatal("checksum verifier should be enabled")
			}
			s := v.Begin(testSpec)
			stream(t, s, payload)
			err = s.Close()
			if tc.wantErr != (err != nil) {
				t.Fatalf("Close() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrVerification) {
				t.Errorf("expected ErrVerification, got %v", err)
			}
		})
	}
}

func TestInvalidChecksums(t *testing.T) {
	for _, c := range []string{"md5:abcd", "sha256:zz", "sha256:abcd", "sha512:" + strings.Repeat("ab", 32)} {
		if _, err := NewVerifier(c, "", false); err == nil {
			t.Errorf("expected error for checksum %q", c)
		}
	}
}

func TestZeroVerifierAcceptsAnything(t *testing.T) {
	var v *Verifier
	if v.Enabled() {
		t.Fatal("nil verifier must be disabled")
	}
	s := v.Begin(testSpec)
	stream(t, s, []byte("whatever"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestHeaderCheckRejectsNonRPM(t *testing.T) {
	v, err := NewVerifier("", "", true)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	s := v.Begin(testSpec)
	stream(t, s, bytes.Repeat([]byte("<html>mirror error page</html>\n"), 2000))

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		if !errors.Is(err, ErrVerification) {
			t.Fatalf("expected ErrVerification, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Close hung")
	}
}

func TestAbortDoesNotHang(t *testing.T) {
	v := &Verifier{CheckHeader: true}
	s := v.Begin(testSpec)
	stream(t, s, []byte{0xed, 0xab, 0xee, 0xdb})

	done := make(chan struct{})
	go func() {
		s.Abort()
		s.Abort()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Abort hung")
	}
}

func TestLoadKeyring(t *testing.T) {
	dir := t.TempDir()

	entity, err := openpgp.NewEntity("Fedora Test", "test", "test@example.org", nil)
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor.Encode: %v", err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("armor close: %v", err)
	}

	good := filepath.Join(dir, "RPM-GPG-KEY-test")
	if err := os.WriteFile(good, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	keyring, err := LoadKeyring(good)
	if err != nil {
		t.Fatalf("LoadKeyring: %v", err)
	}
	if len(keyring) != 1 {
		t.Fatalf("expected one key, got %d", len(keyring))
	}

	v, err := NewVerifier("", good, false)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	if !v.Enabled() {
		t.Error("keyring verifier should be enabled")
	}

	garbage := filepath.Join(dir, "garbage")
	if err := os.WriteFile(garbage, []byte("not a key"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadKeyring(garbage); err == nil {
		t.Error("expected error for garbage keyring")
	}
	if _, err := LoadKeyring(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing keyring")
	}
}
