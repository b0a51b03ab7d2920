package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/dbx"
	"github.com/dmitrijs2005/docanchor/internal/server/config"
	"github.com/dmitrijs2005/docanchor/internal/server/contentstore"
	"github.com/dmitrijs2005/docanchor/internal/server/ledger"
	"github.com/dmitrijs2005/docanchor/internal/server/models"
	"github.com/dmitrijs2005/docanchor/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docanchor/internal/server/repositories/verifications"
	"github.com/dmitrijs2005/docanchor/internal/server/storage"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- in-memory repositories ---

// memStore backs both fake repositories; it ignores the DBTX it is bound to.
type memStore struct {
	mu   sync.Mutex
	docs map[string]*models.Document
	recs []*models.VerificationRecord
	seq  int64
	now  time.Time

	appendErr error
}

func newMemStore() *memStore {
	return &memStore{
		docs: map[string]*models.Document{},
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func (m *memStore) records(docID string) []*models.VerificationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.VerificationRecord
	for _, r := range m.recs {
		if r.DocumentID == docID {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) doc(id string) *models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil
	}
	cp := *d
	return &cp
}

type memDocs struct{ s *memStore }

func (r memDocs) Create(_ context.Context, doc *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.docs[doc.ID]; ok {
		return fmt.Errorf("db error: duplicate id %s", doc.ID)
	}
	doc.ContentID, doc.TxID, doc.Anchored = "", "", false
	doc.CreatedAt = r.s.tick()
	doc.UpdatedAt = doc.CreatedAt
	cp := *doc
	r.s.docs[doc.ID] = &cp
	return nil
}

func (r memDocs) GetByID(_ context.Context, ownerID, id string) (*models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[id]
	if !ok || d.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r memDocs) List(_ context.Context, ownerID string, limit, offset int) ([]*models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Document
	for _, d := range r.s.docs {
		if d.OwnerID == ownerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memDocs) UpdateAnchoring(_ context.Context, ownerID, id, contentID, txID string, anchored bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[id]
	if !ok || d.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	d.ContentID, d.TxID, d.Anchored = contentID, txID, anchored
	return nil
}

func (r memDocs) Delete(_ context.Context, ownerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[id]
	if !ok || d.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(r.s.docs, id)
	kept := r.s.recs[:0]
	for _, rec := range r.s.recs {
		if rec.DocumentID != id {
			kept = append(kept, rec)
		}
	}
	r.s.recs = kept
	return nil
}

func (r memDocs) CountByOwner(_ context.Context, ownerID string) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total, anchored int64
	for _, d := range r.s.docs {
		if d.OwnerID != ownerID {
			continue
		}
		total++
		if d.Anchored {
			anchored++
		}
	}
	return total, anchored, nil
}

func (r memDocs) CountByContentID(_ context.Context, contentID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, d := range r.s.docs {
		if d.ContentID == contentID {
			n++
		}
	}
	return n, nil
}

type memRecs struct{ s *memStore }

func (r memRecs) Append(_ context.Context, rec *models.VerificationRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.appendErr != nil {
		return r.s.appendErr
	}
	r.s.seq++
	rec.Seq = r.s.seq
	rec.CreatedAt = r.s.tick()
	r.s.recs = append(r.s.recs, rec)
	return nil
}

// newest returns matching records, newest first.
func (r memRecs) newest(match func(*models.VerificationRecord) bool) []*models.VerificationRecord {
	var out []*models.VerificationRecord
	for i := len(r.s.recs) - 1; i >= 0; i-- {
		if match(r.s.recs[i]) {
			out = append(out, r.s.recs[i])
		}
	}
	return out
}

func (r memRecs) ListForDocument(_ context.Context, ownerID, documentID string) ([]*models.VerificationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.newest(func(v *models.VerificationRecord) bool {
		return v.OwnerID == ownerID && v.DocumentID == documentID
	}), nil
}

func (r memRecs) ListForOwner(_ context.Context, ownerID string, limit, offset int) ([]*models.VerificationRecord, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.newest(func(v *models.VerificationRecord) bool { return v.OwnerID == ownerID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r memRecs) Latest(_ context.Context, ownerID, documentID string, kinds ...models.Kind) (*models.VerificationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := r.newest(func(v *models.VerificationRecord) bool {
		if v.OwnerID != ownerID || v.DocumentID != documentID {
			return false
		}
		for _, k := range kinds {
			if v.Kind == k {
				return true
			}
		}
		return false
	})
	if len(found) == 0 {
		return nil, common.ErrorNotFound
	}
	return found[0], nil
}

func (r memRecs) CountByOutcome(_ context.Context, ownerID string) (models.Outcomes, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var o models.Outcomes
	for _, v := range r.s.recs {
		if v.OwnerID != ownerID {
			continue
		}
		if v.Succeeded() {
			o.Success++
		} else {
			o.Failed++
		}
	}
	return o, nil
}

type fakeRepoManager struct{ s *memStore }

func (m fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m fakeRepoManager) Documents(dbx.DBTX) documents.Repository      { return memDocs{m.s} }
func (m fakeRepoManager) Verifications(dbx.DBTX) verifications.Repository {
	return memRecs{m.s}
}

// --- external systems ---

type fakeContent struct {
	mu       sync.Mutex
	down     bool
	uploaded int
	pinned   []string
	unpinned []string

	// onUpload runs before Upload returns.
	onUpload func()
	// addressed derives the id from the file bytes instead of a counter.
	addressed bool
}

var errStoreDown = fmt.Errorf("%w: content store: connection refused", common.ErrUnavailable)

func (f *fakeContent) Upload(_ context.Context, path string) (string, error) {
	if f.onUpload != nil {
		f.onUpload()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return "", errStoreDown
	}
	f.uploaded++
	if f.addressed {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("b3-%x", sha256.Sum256(raw)), nil
	}
	return fmt.Sprintf("bafy-%d", f.uploaded), nil
}

func (f *fakeContent) FetchInfo(_ context.Context, cid string) (contentstore.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return contentstore.Info{}, errStoreDown
	}
	return contentstore.Info{ContentID: cid, Size: 10, Type: "file"}, nil
}

func (f *fakeContent) NodeStatus(context.Context) contentstore.NodeStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return contentstore.NodeStatus{Backend: "fake", Error: errStoreDown.Error()}
	}
	return contentstore.NodeStatus{Backend: "fake", Connected: true, NodeID: "node-1"}
}

func (f *fakeContent) Pin(_ context.Context, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = append(f.pinned, cid)
	return nil
}

func (f *fakeContent) Unpin(_ context.Context, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errStoreDown
	}
	f.unpinned = append(f.unpinned, cid)
	return nil
}

// countingLedger wraps a ledger and counts calls.
type countingLedger struct {
	Ledger
	mu      sync.Mutex
	anchors int
	verifys int
}

func (c *countingLedger) Anchor(ctx context.Context, d, cid, submitter string) (string, error) {
	c.mu.Lock()
	c.anchors++
	c.mu.Unlock()
	return c.Ledger.Anchor(ctx, d, cid, submitter)
}

func (c *countingLedger) Verify(ctx context.Context, d, txID string) (bool, error) {
	c.mu.Lock()
	c.verifys++
	c.mu.Unlock()
	return c.Ledger.Verify(ctx, d, txID)
}

// --- fixture ---

type fixture struct {
	svc     *IntegrityService
	store   *memStore
	files   *storage.Local
	content *fakeContent
	node    *ledger.Memory
	ledger  *countingLedger
}

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	files, err := storage.NewLocal(t.TempDir(), 1<<20)
	require.NoError(t, err)

	node := ledger.NewMemory()
	f := &fixture{
		store:   newMemStore(),
		files:   files,
		content: &fakeContent{},
		node:    node,
		ledger:  &countingLedger{Ledger: ledger.New(node, time.Second, nil)},
	}
	cfg := &config.Config{AllowedExtensions: []string{".txt", ".PDF"}}
	f.svc = NewIntegrityService(newSQLiteDB(t), fakeRepoManager{f.store}, files, f.content, f.ledger, cfg, nil)
	return f
}

func (f *fixture) upload(t *testing.T, owner, body string) *UploadResult {
	t.Helper()
	res, err := f.svc.SubmitUpload(context.Background(), owner, strings.NewReader(body), UploadMetadata{
		Title:    "Contract",
		FileName: "contract.txt",
	})
	require.NoError(t, err)
	return res
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrorNotFound) }
