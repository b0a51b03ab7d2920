// Package services contains server-side business logic. IntegrityService
// drives documents through the integrity pipeline (digest, content store,
// ledger) and keeps their verification history.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/dbx"
	"github.com/dmitrijs2005/docanchor/internal/digest"
	"github.com/dmitrijs2005/docanchor/internal/logging"
	"github.com/dmitrijs2005/docanchor/internal/server/config"
	"github.com/dmitrijs2005/docanchor/internal/server/contentstore"
	"github.com/dmitrijs2005/docanchor/internal/server/ledger"
	"github.com/dmitrijs2005/docanchor/internal/server/models"
	"github.com/dmitrijs2005/docanchor/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FileStore keeps document bytes on the server.
type FileStore interface {
	Save(ctx context.Context, ownerID, documentID, ext string, r io.Reader) (string, int64, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

// ContentStore is the content-addressable store client. Errors wrap
// common.ErrUnavailable.
type ContentStore interface {
	Upload(ctx context.Context, path string) (string, error)
	FetchInfo(ctx context.Context, contentID string) (contentstore.Info, error)
	NodeStatus(ctx context.Context) contentstore.NodeStatus
	Pin(ctx context.Context, contentID string) error
	Unpin(ctx context.Context, contentID string) error
}

// Ledger is the ledger anchor client. Errors wrap common.ErrUnavailable;
// Verify returns (false, nil) for a definitive mismatch.
type Ledger interface {
	Anchor(ctx context.Context, digestHex, contentID, submitter string) (string, error)
	Verify(ctx context.Context, digestHex, txID string) (bool, error)
	NetworkInfo(ctx context.Context) ledger.NetworkInfo
}

// Stage is a state of one pipeline run.
type Stage string

const (
	StageDigested        Stage = "DIGESTED"
	StageStoreAttempted  Stage = "STORE_ATTEMPTED"
	StageAnchorAttempted Stage = "ANCHOR_ATTEMPTED"
	StageRecorded        Stage = "RECORDED"
)

// RunStatus is the overall outcome reported for an upload run.
type RunStatus string

const (
	// RunSuccess: anchored and stored in the content store.
	RunSuccess RunStatus = "success"
	// RunPartial: anchored, but the content store was unavailable.
	RunPartial RunStatus = "partial"
	// RunFailed: not anchored.
	RunFailed RunStatus = "failed"
)

// Machine-readable reasons returned with run results.
const (
	ReasonContentStoreUnavailable = "content_store_unavailable"
	ReasonLedgerUnavailable       = "ledger_unavailable"
	ReasonCancelled               = "cancelled"
)

// UploadResult is returned by SubmitUpload.
type UploadResult struct {
	Document DocumentView
	Status   RunStatus
	Reason   string
	Record   RecordView
}

// IntegrityService implements the document integrity pipeline.
type IntegrityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       FileStore
	content     ContentStore
	ledger      Ledger
	log         logging.Logger
	allowedExt  []string
	newID       func() string
}

// NewIntegrityService wires the pipeline. Content store and ledger clients
// are expected to apply their own timeouts.
func NewIntegrityService(db *sql.DB, m repomanager.RepositoryManager, files FileStore,
	content ContentStore, ldg Ledger, cfg *config.Config, log logging.Logger) *IntegrityService {
	if log == nil {
		log = logging.Nop()
	}
	exts := make([]string, 0, len(cfg.AllowedExtensions))
	for _, e := range cfg.AllowedExtensions {
		exts = append(exts, strings.ToLower(e))
	}
	return &IntegrityService{
		db:          db,
		repomanager: m,
		files:       files,
		content:     content,
		ledger:      ldg,
		log:         log.With("module", "integrity"),
		allowedExt:  exts,
		newID:       uuid.NewString,
	}
}

// SubmitUpload stores r for ownerID and runs it through the pipeline.
//
// Storing and digesting the file is the only fatal stage: on failure no
// document exists and the error wraps common.ErrFatalInput. Once the
// document row exists the run always ends with exactly one upload record,
// also when ctx is cancelled half way. If that record cannot be written the
// document, its file and its pin are removed and the error is returned.
func (s *IntegrityService) SubmitUpload(ctx context.Context, ownerID string, r io.Reader, meta UploadMetadata) (*UploadResult, error) {
	meta = meta.normalized()
	if err := meta.Validate(s.allowedExt); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorIncorrectMetadata, err)
	}

	docID := s.newID()
	log := s.log.With("document_id", docID, "owner_id", ownerID)

	path, size, err := s.files.Save(ctx, ownerID, docID, strings.ToLower(filepath.Ext(meta.FileName)), r)
	if err != nil {
		return nil, err
	}
	sum, err := digest.File(ctx, path)
	if err != nil {
		s.discard(ctx, path)
		return nil, fmt.Errorf("%w: %w", common.ErrFatalInput, err)
	}
	log.Info(ctx, "pipeline stage", "stage", StageDigested, "size", size)

	doc := &models.Document{
		ID:          docID,
		OwnerID:     ownerID,
		Title:       meta.Title,
		Description: meta.Description,
		FileName:    meta.FileName,
		MediaType:   meta.MediaType,
		Size:        size,
		Digest:      sum,
		StoragePath: path,
	}
	if err := s.repomanager.Documents(s.db).Create(ctx, doc); err != nil {
		s.discard(ctx, path)
		return nil, fmt.Errorf("create document: %w", err)
	}

	facts := map[string]any{}

	cid, err := s.content.Upload(ctx, path)
	if err != nil {
		facts[models.MetaContentStore] = models.MetaUnavailable
		facts[models.MetaContentStoreError] = err.Error()
	} else {
		facts[models.MetaContentStore] = models.MetaOK
		facts[models.MetaPinned] = s.content.Pin(ctx, cid) == nil
	}
	log.Info(ctx, "pipeline stage", "stage", StageStoreAttempted, "content_id", cid)

	var txID string
	if ctx.Err() != nil {
		facts[models.MetaLedger] = models.MetaSkipped
	} else if txID, err = s.ledger.Anchor(ctx, sum, cid, ownerID); err != nil {
		facts[models.MetaLedger] = models.MetaUnavailable
		facts[models.MetaLedgerError] = err.Error()
	} else {
		facts[models.MetaLedger] = models.MetaAnchored
	}
	anchored := doc.CanAnchor(txID)
	log.Info(ctx, "pipeline stage", "stage", StageAnchorAttempted, "anchored", anchored)

	cancelled := ctx.Err() != nil
	if cancelled {
		facts[models.MetaCancelled] = true
	}
	facts[models.MetaStage] = string(StageRecorded)

	rec := &models.VerificationRecord{
		ID:         s.newID(),
		OwnerID:    ownerID,
		DocumentID: docID,
		Kind:       models.KindUpload,
		Status:     statusOf(anchored),
		TxID:       txID,
		ContentID:  cid,
		Metadata:   facts,
	}

	// the run must be recorded even if the caller went away
	fctx := context.WithoutCancel(ctx)
	err = dbx.WithTx(fctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Documents(tx).UpdateAnchoring(ctx, ownerID, docID, cid, txID, anchored); err != nil {
			return err
		}
		return s.repomanager.Verifications(tx).Append(ctx, rec)
	})
	if err != nil {
		log.Error(fctx, "recording upload run failed", "error", err)
		if err := s.repomanager.Documents(s.db).Delete(fctx, ownerID, docID); err != nil {
			log.Error(fctx, "unrecorded document not removed", "error", err)
		}
		s.discard(fctx, path)
		s.release(fctx, log, cid)
		return nil, fmt.Errorf("record upload: %w", err)
	}
	doc.ContentID, doc.TxID, doc.Anchored = cid, txID, anchored
	log.Info(fctx, "pipeline stage", "stage", StageRecorded, "status", rec.Status, "cancelled", cancelled)

	res := &UploadResult{
		Document: newDocumentView(doc, rec, nil),
		Record:   newRecordView(rec),
	}
	switch {
	case anchored && cid != "":
		res.Status = RunSuccess
	case anchored:
		res.Status, res.Reason = RunPartial, ReasonContentStoreUnavailable
	default:
		res.Status, res.Reason = RunFailed, ReasonLedgerUnavailable
	}
	if cancelled && !anchored {
		res.Reason = ReasonCancelled
	}
	return res, nil
}

// discard removes a stored file after a failed upload.
func (s *IntegrityService) discard(ctx context.Context, path string) {
	if err := s.files.Remove(path); err != nil {
		s.log.Error(ctx, "failed to remove stored file", "path", path, "error", err)
	}
}

func statusOf(ok bool) models.Status {
	if ok {
		return models.StatusSuccess
	}
	return models.StatusFailed
}

// RecordView is the caller-facing form of a verification record.
type RecordView struct {
	ID         string
	DocumentID string
	Kind       models.Kind
	Status     models.Status
	TxID       string
	ContentID  string
	Metadata   map[string]any
	CreatedAt  time.Time
}

func newRecordView(r *models.VerificationRecord) RecordView {
	return RecordView{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		Kind:       r.Kind,
		Status:     r.Status,
		TxID:       r.TxID,
		ContentID:  r.ContentID,
		Metadata:   r.Metadata,
		CreatedAt:  r.CreatedAt,
	}
}
