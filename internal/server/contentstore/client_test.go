package contentstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	cid      string
	addErr   error
	added    []byte
	info     Info
	statErr  error
	node     NodeStatus
	nodeErr  error
	pinErr   error
	pinned   []string
	unpinned []string
	block    bool
	panicMsg string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Add(ctx context.Context, r io.ReadSeeker) (string, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		select {}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.added = b
	return f.cid, f.addErr
}

func (f *fakeBackend) Stat(context.Context, string) (Info, error) { return f.info, f.statErr }

func (f *fakeBackend) Node(context.Context) (NodeStatus, error) {
	if f.block {
		select {}
	}
	return f.node, f.nodeErr
}

func (f *fakeBackend) Pin(_ context.Context, cid string) error {
	f.pinned = append(f.pinned, cid)
	return f.pinErr
}

func (f *fakeBackend) Unpin(_ context.Context, cid string) error {
	f.unpinned = append(f.unpinned, cid)
	return f.pinErr
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestUpload_Success(t *testing.T) {
	fb := &fakeBackend{cid: "bafy123"}
	c := New(fb, time.Second, nil)

	cid, err := c.Upload(context.Background(), writeTemp(t, "0123456789"))
	require.NoError(t, err)
	assert.Equal(t, "bafy123", cid)
	assert.Equal(t, "0123456789", string(fb.added))
}

func TestUpload_FailuresAreUnavailable(t *testing.T) {
	tests := []struct {
		name string
		fb   *fakeBackend
		path func(t *testing.T) string
	}{
		{
			name: "backend error",
			fb:   &fakeBackend{addErr: errors.New("connection refused")},
			path: func(t *testing.T) string { return writeTemp(t, "x") },
		},
		{
			name: "empty cid",
			fb:   &fakeBackend{},
			path: func(t *testing.T) string { return writeTemp(t, "x") },
		},
		{
			name: "missing file",
			fb:   &fakeBackend{cid: "bafy"},
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") },
		},
		{
			name: "backend panic",
			fb:   &fakeBackend{panicMsg: "nil map"},
			path: func(t *testing.T) string { return writeTemp(t, "x") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.fb, time.Second, nil)
			cid, err := c.Upload(context.Background(), tt.path(t))
			require.ErrorIs(t, err, common.ErrUnavailable)
			assert.Empty(t, cid)
		})
	}
}

func TestUpload_TimeoutDoesNotHang(t *testing.T) {
	c := New(&fakeBackend{block: true}, 50*time.Millisecond, nil)

	start := time.Now()
	_, err := c.Upload(context.Background(), writeTemp(t, "x"))
	require.ErrorIs(t, err, common.ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchInfo(t *testing.T) {
	c := New(&fakeBackend{info: Info{Size: 10, Type: "file"}}, time.Second, nil)

	info, err := c.FetchInfo(context.Background(), "bafy")
	require.NoError(t, err)
	assert.Equal(t, Info{ContentID: "bafy", Size: 10, Type: "file"}, info)

	_, err = c.FetchInfo(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrUnavailable)

	c = New(&fakeBackend{statErr: errors.New("not found")}, time.Second, nil)
	_, err = c.FetchInfo(context.Background(), "bafy")
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestNodeStatus_NeverFails(t *testing.T) {
	c := New(&fakeBackend{node: NodeStatus{NodeID: "peer", Version: "kubo/0.29"}}, time.Second, nil)
	st := c.NodeStatus(context.Background())
	assert.True(t, st.Connected)
	assert.Equal(t, "fake", st.Backend)
	assert.Equal(t, "peer", st.NodeID)

	c = New(&fakeBackend{block: true}, 20*time.Millisecond, nil)
	st = c.NodeStatus(context.Background())
	assert.False(t, st.Connected)
	assert.NotEmpty(t, st.Error)
}

func TestPinUnpin(t *testing.T) {
	fb := &fakeBackend{}
	c := New(fb, time.Second, nil)

	require.NoError(t, c.Pin(context.Background(), "bafy"))
	require.NoError(t, c.Unpin(context.Background(), "bafy"))
	assert.Equal(t, []string{"bafy"}, fb.pinned)
	assert.Equal(t, []string{"bafy"}, fb.unpinned)

	fb.pinErr = errors.New("boom")
	assert.ErrorIs(t, c.Pin(context.Background(), "bafy"), common.ErrUnavailable)
	assert.ErrorIs(t, c.Unpin(context.Background(), "bafy"), common.ErrUnavailable)
}

func TestNone_AlwaysUnavailable(t *testing.T) {
	c := New(None{}, time.Second, nil)

	_, err := c.Upload(context.Background(), writeTemp(t, "x"))
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.False(t, c.NodeStatus(context.Background()).Connected)
	assert.Equal(t, "none", c.NodeStatus(context.Background()).Backend)
}
