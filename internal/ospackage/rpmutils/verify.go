package rpmutils

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	rpm "github.com/sassoftware/go-rpmutils"

	"github.com/open-edge-platform/rpm-fetch/internal/ospackage"
)

// ErrVerification is matched by every verification failure.
var ErrVerification = errors.New("package verification failed")

// Verifier checks a downloaded package while it streams. The zero value
// checks nothing.
type Verifier struct {
	algo     string
	checksum []byte

	// CheckHeader parses the RPM header and requires its NEVRA to match
	// the requested package.
	CheckHeader bool

	// Keyring, when non-empty, requires a signature by one of its keys.
	Keyring openpgp.EntityList
}

// NewVerifier builds a Verifier. checksum is "sha256:<hex>", "sha512:<hex>"
// or a bare sha256 hex digest; keyFile is an OpenPGP public keyring,
// armored or binary. Empty values disable the corresponding check.
func NewVerifier(checksum, keyFile string, checkHeader bool) (*Verifier, error) {
	v := &Verifier{CheckHeader: checkHeader}
	if checksum != "" {
		algo, sum, err := parseChecksum(checksum)
		if err != nil {
			return nil, err
		}
		v.algo, v.checksum = algo, sum
	}
	if keyFile != "" {
		keyring, err := LoadKeyring(keyFile)
		if err != nil {
			return nil, err
		}
		v.Keyring = keyring
	}
	return v, nil
}

// Enabled reports whether any check is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && (v.checksum != nil || v.CheckHeader || len(v.Keyring) > 0)
}

func parseChecksum(s string) (string, []byte, error) {
	algo, digest := "sha256", s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		algo, digest = strings.ToLower(s[:i]), s[i+1:]
	}
	sum, err := hex.DecodeString(strings.TrimSpace(digest))
	if err != nil {
		return "", nil, fmt.Errorf("invalid checksum %q: %w", s, err)
	}
	want := map[string]int{"sha256": sha256.Size, "sha512": sha512.Size}
	size, ok := want[algo]
	if !ok {
		return "", nil, fmt.Errorf("unsupported checksum algorithm %q (expected sha256|sha512)", algo)
	}
	if len(sum) != size {
		return "", nil, fmt.Errorf("invalid %s checksum length %d", algo, len(sum))
	}
	return algo, sum, nil
}

// LoadKeyring reads an armored or binary OpenPGP keyring from path.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyring %s: %w", path, err)
	}
	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing keyring %s: %w", path, err)
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring %s holds no keys", path)
	}
	return keyring, nil
}

// Session verifies one download. Write the package bytes to it in order,
// then call Close for the verdict, or Abort to give up.
type Session struct {
	spec ospackage.PackageSpec
	want []byte
	hash hash.Hash

	pw     *io.PipeWriter
	result chan error
}

// Begin starts verifying a download of spec.
func (v *Verifier) Begin(spec ospackage.PackageSpec) *Session {
	s := &Session{spec: spec}
	if v == nil {
		return s
	}
	if v.checksum != nil {
		s.want = v.checksum
		if v.algo == "sha512" {
			s.hash = sha512.New()
		} else {
			s.hash = sha256.New()
		}
	}
	if v.CheckHeader || len(v.Keyring) > 0 {
		pr, pw := io.Pipe()
		s.pw = pw
		s.result = make(chan error, 1)
		go func() {
			err := checkPackage(pr, spec, v.Keyring)
			// Keep draining so writers never block on an early verdict.
			_, _ = io.Copy(io.Discard, pr)
			s.result <- err
		}()
	}
	return s
}

func (s *Session) Write(p []byte) (int, error) {
	if s.hash != nil {
		s.hash.Write(p)
	}
	if s.pw != nil {
		if _, err := s.pw.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close ends the stream and returns nil if every check passed.
func (s *Session) Close() error {
	var errs []error
	if s.pw != nil {
		_ = s.pw.Close()
		if err := <-s.result; err != nil {
			errs = append(errs, err)
		}
		s.pw = nil
	}
	if s.hash != nil {
		if got := s.hash.Sum(nil); !bytes.Equal(got, s.want) {
			errs = append(errs, fmt.Errorf("checksum mismatch: got %x, want %x", got, s.want))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %w", ErrVerification, s.spec.FileName(), errors.Join(errs...))
	}
	return nil
}

// Abort stops any background check.
func (s *Session) Abort() {
	if s.pw != nil {
		_ = s.pw.CloseWithError(io.ErrClosedPipe)
		<-s.result
		s.pw = nil
	}
}

func checkPackage(r io.Reader, spec ospackage.PackageSpec, keyring openpgp.EntityList) error {
	var known openpgp.EntityList
	if len(keyring) > 0 {
		known = keyring
	}
	hdr, sigs, err := rpm.Verify(r, known)
	if err != nil {
		return fmt.Errorf("reading rpm: %w", err)
	}

	nevra, err := hdr.GetNEVRA()
	if err != nil {
		return fmt.Errorf("reading rpm header: %w", err)
	}
	wantNVR := spec.Name + ".fc" + spec.ReleaseTag
	if gotNVR := nevra.Name + "-" + nevra.Version + "-" + nevra.Release; gotNVR != wantNVR {
		return fmt.Errorf("rpm header names %s, expected %s", gotNVR, wantNVR)
	}
	if nevra.Arch != spec.PackageArch {
		return fmt.Errorf("rpm header arch %s, expected %s", nevra.Arch, spec.PackageArch)
	}

	if len(keyring) > 0 {
		for _, sig := range sigs {
			if sig.Signer != nil {
				return nil
			}
		}
		return errors.New("no signature by a trusted key")
	}
	return nil
}
