// Package digest computes the content fingerprint stored with every
// document: a lowercase hex SHA-256 over the file bytes, read in fixed-size
// chunks so memory use stays flat regardless of file size.
package digest

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/docanchor/internal/common"
)

// ChunkSize is the read size used while hashing.
const ChunkSize = 32 * 1024

// HexLen is the length of a digest string.
const HexLen = sha256.Size * 2

// Reader hashes r until EOF. Read failures wrap common.ErrStorageRead.
// Cancelling ctx aborts between chunks.
func Reader(ctx context.Context, r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrStorageRead, err)
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrStorageRead, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// File hashes the file at path.
func File(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorageRead, err)
	}
	defer f.Close()

	return Reader(ctx, f)
}

// Normalize lowercases and trims a digest, dropping an optional 0x prefix.
func Normalize(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	return strings.TrimPrefix(d, "0x")
}

// Valid reports whether d is a well-formed digest after normalisation.
func Valid(d string) bool {
	d = Normalize(d)
	if len(d) != HexLen {
		return false
	}
	_, err := hex.DecodeString(d)
	return err == nil
}

// Equal compares two digests case-insensitively in constant time.
func Equal(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Bytes32 decodes a digest into the fixed-size form used on the ledger.
func Bytes32(d string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(Normalize(d))
	if err != nil {
		return out, fmt.Errorf("decode digest: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("digest has %d bytes, want %d", len(raw), len(out))
	}
	copy(out[:], raw)
	return out, nil
}
