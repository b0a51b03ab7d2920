// Package contentstore uploads documents to a content-addressable store and
// queries it. Every failure, including a timeout, is reported as
// common.ErrUnavailable: the store is never allowed to fail a pipeline run.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/logging"
	"github.com/dmitrijs2005/docanchor/internal/netx"
)

// Info describes stored content.
type Info struct {
	ContentID string
	Size      int64
	Type      string
}

// NodeStatus is a diagnostic snapshot of the store.
type NodeStatus struct {
	Backend   string
	Connected bool
	NodeID    string
	Version   string
	Addresses []string
	Error     string
}

// Backend is one concrete content-addressable store.
type Backend interface {
	Name() string
	Add(ctx context.Context, r io.ReadSeeker) (string, error)
	Stat(ctx context.Context, contentID string) (Info, error)
	Node(ctx context.Context) (NodeStatus, error)
	Pin(ctx context.Context, contentID string) error
	Unpin(ctx context.Context, contentID string) error
}

// Client bounds every backend call by a timeout and converts failures to
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
	return &Client{backend: backend, timeout: timeout, log: log.With("module", "contentstore", "backend", backend.Name())}
}

// DefaultTimeout bounds a single content-store call.
const DefaultTimeout = 30 * time.Second

// Upload stores the file at path and returns its content id.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", c.unavailable(ctx, "upload", fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	var cid string
	err = c.call(ctx, func(ctx context.Context) error {
		var err error
		cid, err = c.backend.Add(ctx, f)
		return err
	})
	if err == nil && cid == "" {
		err = errors.New("empty content id")
	}
	if err != nil {
		return "", c.unavailable(ctx, "upload", err)
	}
	return cid, nil
}

// FetchInfo returns size and type of stored content.
func (c *Client) FetchInfo(ctx context.Context, contentID string) (Info, error) {
	if contentID == "" {
		return Info{}, c.unavailable(ctx, "stat", errors.New("no content id"))
	}
	var info Info
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		info, err = c.backend.Stat(ctx, contentID)
		return err
	})
	if err != nil {
		return Info{}, c.unavailable(ctx, "stat", err)
	}
	if info.ContentID == "" {
		info.ContentID = contentID
	}
	return info, nil
}

// NodeStatus reports store connectivity. It never fails; an unreachable
// store is reported with Connected == false.
func (c *Client) NodeStatus(ctx context.Context) NodeStatus {
	var st NodeStatus
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		st, err = c.backend.Node(ctx)
		return err
	})
	if err != nil {
		c.log.Warn(ctx, "content store node status unavailable", "error", err)
		return NodeStatus{Backend: c.backend.Name(), Error: err.Error()}
	}
	st.Backend = c.backend.Name()
	st.Connected = true
	return st
}

// Pin asks the store to retain contentID.
func (c *Client) Pin(ctx context.Context, contentID string) error {
	if err := c.call(ctx, func(ctx context.Context) error { return c.backend.Pin(ctx, contentID) }); err != nil {
		return c.unavailable(ctx, "pin", err)
	}
	return nil
}

// Unpin releases contentID.
func (c *Client) Unpin(ctx context.Context, contentID string) error {
	if err := c.call(ctx, func(ctx context.Context) error { return c.backend.Unpin(ctx, contentID) }); err != nil {
		return c.unavailable(ctx, "unpin", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	return netx.Call(ctx, c.timeout, fn)
}

func (c *Client) unavailable(ctx context.Context, op string, err error) error {
	c.log.Warn(ctx, "content store unavailable", "op", op, "error", err)
	return fmt.Errorf("%w: content store %s: %w", common.ErrUnavailable, op, err)
}
