package ledger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/sha3"
)

// ErrOffline is returned by a Memory ledger switched offline.
var ErrOffline = errors.New("ledger offline")

type memoryEntry struct {
	digest    [32]byte
	contentID string
	submitter string
	block     uint64
}

// Memory is an in-process ledger for development and tests. Transaction ids
// are keccak-256 hashes of the anchored data and a nonce, formatted like
// Ethereum transaction hashes.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nonce   uint64
	offline atomic.Bool
}

// NewMemory returns an empty, online Memory ledger.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// SetOffline makes every subsequent call fail with ErrOffline (or succeed
// again when offline is false).
func (m *Memory) SetOffline(offline bool) {
	m.offline.Store(offline)
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Anchor(ctx context.Context, d [32]byte, contentID, submitter string) (string, error) {
	if err := m.check(ctx); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nonce++
	h := sha3.NewLegacyKeccak256()
	h.Write(d[:])
	h.Write([]byte(contentID))
	h.Write([]byte(submitter))
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], m.nonce)
	h.Write(n[:])

	txID := "0x" + hex.EncodeToString(h.Sum(nil))
	m.entries[txID] = memoryEntry{digest: d, contentID: contentID, submitter: submitter, block: m.nonce}
	return txID, nil
}

func (m *Memory) Verify(ctx context.Context, d [32]byte, txID string) (bool, error) {
	if err := m.check(ctx); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[strings.ToLower(txID)]
	if !ok {
		return false, nil
	}
	return e.digest == d, nil
}

func (m *Memory) Network(ctx context.Context) (NetworkInfo, error) {
	if err := m.check(ctx); err != nil {
		return NetworkInfo{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return NetworkInfo{ChainID: "memory", LatestBlock: m.nonce}, nil
}

func (m *Memory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.offline.Load() {
		return ErrOffline
	}
	return nil
}
