package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/client/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	calls []string
	meta  client.UploadMeta
	data  []byte
	id    string
	limit int
	off   int
	err   error
}

func (f *fakeAPI) rec(name string) { f.calls = append(f.calls, name) }

func (f *fakeAPI) Ping(context.Context) error { f.rec("ping"); return f.err }
func (f *fakeAPI) Status(context.Context) (map[string]any, error) {
	f.rec("status")
	return map[string]any{"ledger": map[string]any{"connected": true}}, f.err
}
func (f *fakeAPI) Upload(_ context.Context, data []byte, meta client.UploadMeta) (map[string]any, error) {
	f.rec("upload")
	f.data, f.meta = data, meta
	return map[string]any{"status": "success"}, f.err
}
func (f *fakeAPI) ListDocuments(_ context.Context, limit, offset int) (map[string]any, error) {
	f.rec("list")
	f.limit, f.off = limit, offset
	return map[string]any{"documents": []any{}}, f.err
}
func (f *fakeAPI) GetDocument(_ context.Context, id string) (map[string]any, error) {
	f.rec("get")
	f.id = id
	return map[string]any{"id": id}, f.err
}
func (f *fakeAPI) DeleteDocument(_ context.Context, id string) error {
	f.rec("delete")
	f.id = id
	return f.err
}
func (f *fakeAPI) ContentInfo(_ context.Context, id string) (map[string]any, error) {
	f.rec("content")
	f.id = id
	return map[string]any{"available": false}, f.err
}
func (f *fakeAPI) ReverifyLocal(_ context.Context, id string) (map[string]any, error) {
	f.rec("verify-local")
	f.id = id
	return map[string]any{"status": "success"}, f.err
}
func (f *fakeAPI) ReverifyLedger(_ context.Context, id string) (map[string]any, error) {
	f.rec("verify-ledger")
	f.id = id
	return map[string]any{"status": "failed", "reason": "inconclusive"}, f.err
}
func (f *fakeAPI) GetHistory(_ context.Context, id string, limit, offset int) (map[string]any, error) {
	f.rec("history")
	f.id, f.limit, f.off = id, limit, offset
	return map[string]any{"total": 0}, f.err
}
func (f *fakeAPI) GetStats(context.Context) (map[string]any, error) {
	f.rec("stats")
	return map[string]any{"success_rate": 66.7}, f.err
}

func newTestApp(f *fakeAPI) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	a := NewApp(f, &out, time.Second)
	a.readFile = func(path string) ([]byte, error) {
		if path == "missing.pdf" {
			return nil, os.ErrNotExist
		}
		return []byte("file:" + path), nil
	}
	return a, &out
}

func TestRun_Dispatch(t *testing.T) {
	tests := []struct {
		args []string
		call string
		id   string
	}{
		{args: []string{"ping"}, call: "ping"},
		{args: []string{"status"}, call: "status"},
		{args: []string{"get", "d1"}, call: "get", id: "d1"},
		{args: []string{"delete", "d2"}, call: "delete", id: "d2"},
		{args: []string{"content", "d3"}, call: "content", id: "d3"},
		{args: []string{"verify-local", "d4"}, call: "verify-local", id: "d4"},
		{args: []string{"verify-ledger", "d5"}, call: "verify-ledger", id: "d5"},
		{args: []string{"stats"}, call: "stats"},
	}
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			f := &fakeAPI{}
			a, out := newTestApp(f)

			require.NoError(t, a.Run(context.Background(), tt.args))
			assert.Equal(t, []string{tt.call}, f.calls)
			assert.Equal(t, tt.id, f.id)
			assert.True(t, json.Valid(out.Bytes()), out.String())
		})
	}
}

func TestRun_Upload(t *testing.T) {
	f := &fakeAPI{}
	a, out := newTestApp(f)

	require.NoError(t, a.Run(context.Background(), []string{"upload", "-desc", "signed", "dir/lease.pdf"}))
	assert.Equal(t, []byte("file:dir/lease.pdf"), f.data)
	assert.Equal(t, client.UploadMeta{
		Title:       "lease",
		Description: "signed",
		FileName:    "lease.pdf",
		MediaType:   "application/pdf",
	}, f.meta)
	assert.Contains(t, out.String(), `"status": "success"`)

	err := a.Run(context.Background(), []string{"upload", "missing.pdf"})
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = a.Run(context.Background(), []string{"upload"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestRun_ListAndHistoryPaging(t *testing.T) {
	f := &fakeAPI{}
	a, _ := newTestApp(f)

	require.NoError(t, a.Run(context.Background(), []string{"list", "-limit", "5", "-offset", "10"}))
	assert.Equal(t, 5, f.limit)
	assert.Equal(t, 10, f.off)

	require.NoError(t, a.Run(context.Background(), []string{"history", "-limit", "2", "d9"}))
	assert.Equal(t, "d9", f.id)
	assert.Equal(t, 2, f.limit)

	require.NoError(t, a.Run(context.Background(), []string{"history"}))
	assert.Empty(t, f.id)
}

func TestRun_Errors(t *testing.T) {
	f := &fakeAPI{}
	a, out := newTestApp(f)

	assert.ErrorIs(t, a.Run(context.Background(), nil), ErrUsage)
	assert.Contains(t, out.String(), "usage:")
	assert.ErrorIs(t, a.Run(context.Background(), []string{"frobnicate"}), ErrUsage)
	assert.ErrorIs(t, a.Run(context.Background(), []string{"get"}), ErrUsage)
	assert.ErrorIs(t, a.Run(context.Background(), []string{"list", "-limit", "x"}), ErrUsage)
	assert.Empty(t, f.calls)

	f.err = client.ErrNotFound
	err := a.Run(context.Background(), []string{"get", "d1"})
	assert.True(t, errors.Is(err, client.ErrNotFound))
}
