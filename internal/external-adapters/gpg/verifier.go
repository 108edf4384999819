// Package gpg provides OpenPGP detached signature verification against a pinned key.
package gpg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// DefaultKeyserver is queried with the HKP lookup endpoint
const DefaultKeyserver = "https://keyserver.ubuntu.com"

const armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE---"

// Verifier checks detached signatures with ProtonMail's go-crypto.
// Only the key imported through ImportKey is trusted.
type Verifier struct {
	keyring    openpgp.EntityList
	keyserver  string
	httpClient *http.Client
}

// NewVerifier creates a verifier that fetches keys from keyserver
func NewVerifier(keyserver string) *Verifier {
	if keyserver == "" {
		keyserver = DefaultKeyserver
	}
	return &Verifier{
		keyring:   make(openpgp.EntityList, 0),
		keyserver: strings.TrimRight(keyserver, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// LookupURL returns the keyserver URL for a fingerprint or key id.
// The search uses the 64-bit key id, i.e. the last 16 hex digits.
func (v *Verifier) LookupURL(fingerprint string) string {
	q := url.Values{}
	q.Set("op", "get")
	q.Set("search", "0x"+KeyID(fingerprint))
	return v.keyserver + "/pks/lookup?" + q.Encode()
}

// KeyID normalizes a fingerprint to its upper-case 16 digit key id
func KeyID(fingerprint string) string {
	id := strings.ToUpper(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(fingerprint), "0x"), " ", ""))
	if len(id) > 16 {
		id = id[len(id)-16:]
	}
	return id
}

// ImportKey downloads the key for fingerprint and makes it the only trusted key
func (v *Verifier) ImportKey(ctx context.Context, fingerprint string) error {
	keyID := KeyID(fingerprint)
	id, err := strconv.ParseUint(keyID, 16, 64)
	if err != nil {
		return fmt.Errorf("invalid key id %q: %w", fingerprint, err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", v.LookupURL(fingerprint), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to query keyserver: %w", err)
	}
	//nolint:errcheck // Defer close
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: 0x%s not found on %s", entities.ErrKeyNotFound, keyID, v.keyserver)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("keyserver returned status %d", resp.StatusCode)
	}

	// Key blocks are small; 1MB leaves room for keys with many signatures
	ring, err := openpgp.ReadArmoredKeyRing(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to parse key from keyserver: %w", err)
	}

	return v.pin(ring, id, fingerprint)
}

// ImportKeyFromFile loads an armored or binary key ring and pins fingerprint from it
func (v *Verifier) ImportKeyFromFile(keyPath, fingerprint string) error {
	id, err := strconv.ParseUint(KeyID(fingerprint), 16, 64)
	if err != nil {
		return fmt.Errorf("invalid key id %q: %w", fingerprint, err)
	}

	//nolint:gosec // G304: keyPath is user-provided for key import
	f, err := os.Open(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	ring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("failed to reset file: %w", seekErr)
		}
		ring, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}

	return v.pin(ring, id, fingerprint)
}

// pin keeps only the entity owning key id; a full fingerprint must also match
func (v *Verifier) pin(ring openpgp.EntityList, id uint64, fingerprint string) error {
	keys := ring.KeysById(id)
	if len(keys) == 0 {
		return fmt.Errorf("%w: 0x%016X", entities.ErrKeyNotFound, id)
	}

	want := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(fingerprint), " ", ""))
	if len(want) == 40 {
		got := fmt.Sprintf("%X", keys[0].PublicKey.Fingerprint)
		if got != want {
			return fmt.Errorf("%w: fingerprint %s does not match %s", entities.ErrKeyNotFound, got, want)
		}
	}

	v.keyring = openpgp.EntityList{keys[0].Entity}
	return nil
}

// VerifyFile checks a detached signature file, armored or binary, against filePath
func (v *Verifier) VerifyFile(filePath, sigPath string) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no key imported, call ImportKey first")
	}

	//nolint:gosec // G304: sigPath is the downloaded signature
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer sigFile.Close()

	//nolint:gosec // G304: filePath is the downloaded artifact
	dataFile, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer dataFile.Close()

	peek := make([]byte, len(armoredSignaturePrefix))
	n, _ := io.ReadFull(sigFile, peek)
	isArmored := n == len(peek) && string(peek) == armoredSignaturePrefix

	if _, err := sigFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to reset signature file: %w", err)
	}

	var verifyErr error
	if isArmored {
		_, verifyErr = openpgp.CheckArmoredDetachedSignature(v.keyring, dataFile, sigFile, nil)
	} else {
		_, verifyErr = openpgp.CheckDetachedSignature(v.keyring, dataFile, sigFile, nil)
	}
	if verifyErr != nil {
		return fmt.Errorf("%w: %s: %v", entities.ErrSignatureInvalid, filePath, verifyErr)
	}

	return nil
}

// KeyringSize returns the number of trusted entities
func (v *Verifier) KeyringSize() int {
	return len(v.keyring)
}
