package contentstore

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

// IPFS stores content on an IPFS (kubo) node through its HTTP RPC API.
type IPFS struct {
	sh *shell.Shell
}

// NewIPFS connects to the node API at url, e.g. "http://127.0.0.1:5001".
// Requests are bounded by timeout at the HTTP level as well.
func NewIPFS(url string, timeout time.Duration) *IPFS {
	sh := shell.NewShellWithClient(url, &http.Client{Timeout: timeout})
	return &IPFS{sh: sh}
}

func (b *IPFS) Name() string { return "ipfs" }

// Add uploads r and returns its CID. Reads stop once ctx is done.
func (b *IPFS) Add(ctx context.Context, r io.ReadSeeker) (string, error) {
	return b.sh.Add(&ctxReader{ctx: ctx, r: r})
}

func (b *IPFS) Stat(ctx context.Context, contentID string) (Info, error) {
	st, err := b.sh.FilesStat(ctx, ipfsPath(contentID))
	if err != nil {
		return Info{}, err
	}
	return Info{ContentID: st.Hash, Size: int64(st.Size), Type: st.Type}, nil
}

func (b *IPFS) Node(context.Context) (NodeStatus, error) {
	id, err := b.sh.ID()
	if err != nil {
		return NodeStatus{}, err
	}
	return NodeStatus{NodeID: id.ID, Version: id.AgentVersion, Addresses: id.Addresses}, nil
}

func (b *IPFS) Pin(_ context.Context, contentID string) error {
	return b.sh.Pin(ipfsPath(contentID))
}

func (b *IPFS) Unpin(_ context.Context, contentID string) error {
	return b.sh.Unpin(ipfsPath(contentID))
}

func ipfsPath(cid string) string {
	if strings.HasPrefix(cid, "/ipfs/") {
		return cid
	}
	return "/ipfs/" + cid
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
