package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/logging"
	"github.com/dmitrijs2005/docanchor/internal/server/contentstore"
	"github.com/dmitrijs2005/docanchor/internal/server/ledger"
	"github.com/dmitrijs2005/docanchor/internal/server/models"
)

// Trust states derived from the latest upload or ledger-reverify record.
const (
	TrustTrusted   = "trusted"
	TrustUntrusted = "untrusted"
	TrustUnknown   = "unknown"
)

// Paging bounds shared by list operations.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// DocumentView is the caller-facing form of a document. It never carries
// the storage location.
type DocumentView struct {
	ID          string
	Title       string
	Description string
	FileName    string
	MediaType   string
	Size        int64
	Digest      string
	ContentID   string
	TxID        string
	Anchored    bool
	TrustState  string
	// LocalCopyReliable is nil until the local copy was re-verified.
	LocalCopyReliable *bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func newDocumentView(d *models.Document, trust, local *models.VerificationRecord) DocumentView {
	v := DocumentView{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		FileName:    d.FileName,
		MediaType:   d.MediaType,
		Size:        d.Size,
		Digest:      d.Digest,
		ContentID:   d.ContentID,
		TxID:        d.TxID,
		Anchored:    d.Anchored,
		TrustState:  TrustUnknown,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if trust != nil {
		v.TrustState = TrustUntrusted
		if trust.Succeeded() {
			v.TrustState = TrustTrusted
		}
	}
	if local != nil {
		ok := local.Succeeded()
		v.LocalCopyReliable = &ok
	}
	return v
}

// ContentInfoView reports what the content store knows about a document.
type ContentInfoView struct {
	DocumentID string
	ContentID  string
	Available  bool
	Size       int64
	Type       string
	Error      string
}

// ServiceStatus is the diagnostics snapshot of external systems.
type ServiceStatus struct {
	ContentStore contentstore.NodeStatus
	Ledger       ledger.NetworkInfo
}

// GetDocument returns one of the owner's documents.
func (s *IntegrityService) GetDocument(ctx context.Context, ownerID, documentID string) (*DocumentView, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	v, err := s.view(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListDocuments returns a page of the owner's documents, newest first.
func (s *IntegrityService) ListDocuments(ctx context.Context, ownerID string, limit, offset int) ([]DocumentView, error) {
	limit, offset = page(limit, offset)

	docs, err := s.repomanager.Documents(s.db).List(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentView, 0, len(docs))
	for _, d := range docs {
		v, err := s.view(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DeleteDocument deletes the document together with its records, then
// removes the stored file and releases its content id. File and
// content-store cleanup are best-effort; only the row deletion can fail
// the call.
func (s *IntegrityService) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	docs := s.repomanager.Documents(s.db)

	doc, err := docs.GetByID(ctx, ownerID, documentID)
	if err != nil {
		return err
	}
	log := s.log.With("document_id", doc.ID, "owner_id", ownerID)

	if err := docs.Delete(ctx, ownerID, doc.ID); err != nil {
		return err
	}
	if err := s.files.Remove(doc.StoragePath); err != nil {
		log.Warn(ctx, "stored file not removed", "error", err)
	}
	s.release(ctx, log, doc.ContentID)
	log.Info(ctx, "document deleted")
	return nil
}

// release unpins cid once no document references it. Content ids are
// derived from the bytes, so the same id can back documents of several
// owners.
func (s *IntegrityService) release(ctx context.Context, log logging.Logger, cid string) {
	if cid == "" {
		return
	}
	refs, err := s.repomanager.Documents(s.db).CountByContentID(ctx, cid)
	if err != nil {
		log.Warn(ctx, "content references not counted, keeping pin", "content_id", cid, "error", err)
		return
	}
	if refs > 0 {
		log.Debug(ctx, "content still referenced", "content_id", cid, "references", refs)
		return
	}
	if err := s.content.Unpin(ctx, cid); err != nil {
		log.Warn(ctx, "content not unpinned", "content_id", cid, "error", err)
	}
}

// ContentInfo asks the content store about a document's content id. An
// unreachable store yields Available == false, not an error.
func (s *IntegrityService) ContentInfo(ctx context.Context, ownerID, documentID string) (*ContentInfoView, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	v := &ContentInfoView{DocumentID: doc.ID, ContentID: doc.ContentID}
	if doc.ContentID == "" {
		v.Error = "document has no content id"
		return v, nil
	}
	info, err := s.content.FetchInfo(ctx, doc.ContentID)
	if err != nil {
		v.Error = err.Error()
		return v, nil
	}
	v.Available, v.Size, v.Type = true, info.Size, info.Type
	return v, nil
}

// Status reports content store and ledger connectivity.
func (s *IntegrityService) Status(ctx context.Context) ServiceStatus {
	return ServiceStatus{
		ContentStore: s.content.NodeStatus(ctx),
		Ledger:       s.ledger.NetworkInfo(ctx),
	}
}

func (s *IntegrityService) view(ctx context.Context, doc *models.Document) (DocumentView, error) {
	recs := s.repomanager.Verifications(s.db)

	trust, err := recs.Latest(ctx, doc.OwnerID, doc.ID, models.KindUpload, models.KindLedgerReverify)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return DocumentView{}, err
	}
	local, err := recs.Latest(ctx, doc.OwnerID, doc.ID, models.KindLocalReverify)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return DocumentView{}, err
	}
	return newDocumentView(doc, trust, local), nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
