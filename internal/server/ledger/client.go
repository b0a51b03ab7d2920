// Package ledger anchors document digests on a distributed ledger and
// checks them later. Unreachable ledgers are reported as
// common.ErrUnavailable, never as a definitive answer.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/digest"
	"github.com/dmitrijs2005/docanchor/internal/logging"
	"github.com/dmitrijs2005/docanchor/internal/netx"
)

// DefaultTimeout bounds one ledger call, including waiting for inclusion.
const DefaultTimeout = 2 * time.Minute

// NetworkInfo is a diagnostic snapshot of the ledger.
type NetworkInfo struct {
	Backend     string
	Connected   bool
	ChainID     string
	LatestBlock uint64
	Contract    string
	Account     string
	Error       string
}

// Backend is one concrete ledger.
//
// Anchor returns only once the transaction is included. Verify returns
// (false, nil) when the ledger answered and the digest does not match, and
// a non-nil error when no answer could be obtained.
type Backend interface {
	Name() string
	Anchor(ctx context.Context, digest [32]byte, contentID, submitter string) (string, error)
	Verify(ctx context.Context, digest [32]byte, txID string) (bool, error)
	Network(ctx context.Context) (NetworkInfo, error)
}

// Client bounds backend calls by a timeout and maps failures to
// common.ErrUnavailable.
type Client struct {
	backend Backend
	timeout time.Duration
	log     logging.Logger
}

// New returns a Client. A zero timeout falls back to DefaultTimeout.
func New(backend Backend, timeout time.Duration, log logging.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Client{backend: backend, timeout: timeout, log: log.With("module", "ledger", "backend", backend.Name())}
}

// Anchor records digestHex on the ledger and returns the transaction id.
func (c *Client) Anchor(ctx context.Context, digestHex, contentID, submitter string) (string, error) {
	d, err := digest.Bytes32(digestHex)
	if err != nil {
		return "", c.unavailable(ctx, "anchor", err)
	}

	var txID string
	err = netx.Call(ctx, c.timeout, func(ctx context.Context) error {
		var err error
		txID, err = c.backend.Anchor(ctx, d, contentID, submitter)
		return err
	})
	if err == nil && txID == "" {
		err = errors.New("empty transaction id")
	}
	if err != nil {
		return "", c.unavailable(ctx, "anchor", err)
	}

	c.log.Info(ctx, "digest anchored", "tx", txID)
	return txID, nil
}

// Verify asks the ledger whether digestHex is what txID recorded.
func (c *Client) Verify(ctx context.Context, digestHex, txID string) (bool, error) {
	d, err := digest.Bytes32(digestHex)
	if err != nil {
		// a malformed stored digest cannot match anything on the ledger
		c.log.Warn(ctx, "stored digest is malformed", "error", err)
		return false, nil
	}
	if txID == "" {
		return false, nil
	}

	var ok bool
	err = netx.Call(ctx, c.timeout, func(ctx context.Context) error {
		var err error
		ok, err = c.backend.Verify(ctx, d, txID)
		return err
	})
	if err != nil {
		return false, c.unavailable(ctx, "verify", err)
	}
	return ok, nil
}

// NetworkInfo reports ledger connectivity. It never fails.
func (c *Client) NetworkInfo(ctx context.Context) NetworkInfo {
	var info NetworkInfo
	err := netx.Call(ctx, c.timeout, func(ctx context.Context) error {
		var err error
		info, err = c.backend.Network(ctx)
		return err
	})
	if err != nil {
		c.log.Warn(ctx, "ledger network info unavailable", "error", err)
		return NetworkInfo{Backend: c.backend.Name(), Error: err.Error()}
	}
	info.Backend = c.backend.Name()
	info.Connected = true
	return info
}

func (c *Client) unavailable(ctx context.Context, op string, err error) error {
	c.log.Warn(ctx, "ledger unavailable", "op", op, "error", err)
	return fmt.Errorf("%w: ledger %s: %w", common.ErrUnavailable, op, err)
}
