package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/digest"
	"github.com/dmitrijs2005/docanchor/internal/server/models"
)

// VerificationOutcome is the result of a standalone re-verification.
type VerificationOutcome struct {
	DocumentID string
	Kind       models.Kind
	Status     models.Status
	// Reason is empty on success.
	Reason string
	// HashMatch is nil when the check was inconclusive.
	HashMatch *bool
	TxID      string
	Record    RecordView
	// Err wraps common.ErrIntegrityViolation on a definitive mismatch and
	// is nil otherwise.
	Err error
}

// ReverifyLocal recomputes the digest of the stored copy and compares it
// with the digest taken at upload. The outcome is recorded either way; an
// unreadable copy is a failed outcome, not an error.
func (s *IntegrityService) ReverifyLocal(ctx context.Context, ownerID, documentID string) (*VerificationOutcome, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	log := s.log.With("document_id", doc.ID, "owner_id", ownerID)

	facts := map[string]any{}
	var match *bool

	sum, err := s.hashStored(ctx, doc.StoragePath)
	switch {
	case err != nil && ctx.Err() != nil:
		log.Warn(ctx, "local reverify interrupted", "error", err)
		facts[models.MetaReason] = models.ReasonInconclusive
	case err != nil:
		log.Warn(ctx, "stored copy unreadable", "error", err)
		facts[models.MetaReason] = models.ReasonStorageUnreadable
	default:
		ok := digest.Equal(sum, doc.Digest)
		match = &ok
		facts[models.MetaHashMatch] = ok
		if !ok {
			facts[models.MetaReason] = models.ReasonIntegrity
			facts[models.MetaComputedDigest] = sum
			log.Warn(ctx, "local digest mismatch", "computed", sum)
		}
	}
	if ctx.Err() != nil {
		facts[models.MetaCancelled] = true
	}

	rec := &models.VerificationRecord{
		ID:         s.newID(),
		OwnerID:    ownerID,
		DocumentID: doc.ID,
		Kind:       models.KindLocalReverify,
		Status:     statusOf(match != nil && *match),
		TxID:       doc.TxID,
		ContentID:  doc.ContentID,
		Metadata:   facts,
	}
	return s.recordOutcome(ctx, rec, match)
}

// ReverifyLedger asks the ledger whether the document's anchoring
// transaction still carries its digest. Only anchored documents can be
// checked; others are rejected with common.ErrPrecondition before any
// ledger call and without a record.
func (s *IntegrityService) ReverifyLedger(ctx context.Context, ownerID, documentID string) (*VerificationOutcome, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Anchored || doc.TxID == "" {
		return nil, fmt.Errorf("%w: document %s is not anchored", common.ErrPrecondition, doc.ID)
	}
	log := s.log.With("document_id", doc.ID, "owner_id", ownerID)

	facts := map[string]any{}
	var match *bool

	ok, err := s.ledger.Verify(ctx, doc.Digest, doc.TxID)
	switch {
	case err != nil:
		facts[models.MetaReason] = models.ReasonInconclusive
		facts[models.MetaLedger] = models.MetaUnavailable
		facts[models.MetaLedgerError] = err.Error()
	case !ok:
		match = &ok
		facts[models.MetaReason] = models.ReasonIntegrity
		facts[models.MetaHashMatch] = false
		log.Warn(ctx, "ledger reports digest mismatch", "tx_id", doc.TxID)
	default:
		match = &ok
		facts[models.MetaHashMatch] = true
	}
	if ctx.Err() != nil {
		facts[models.MetaCancelled] = true
	}

	rec := &models.VerificationRecord{
		ID:         s.newID(),
		OwnerID:    ownerID,
		DocumentID: doc.ID,
		Kind:       models.KindLedgerReverify,
		Status:     statusOf(match != nil && *match),
		TxID:       doc.TxID,
		ContentID:  doc.ContentID,
		Metadata:   facts,
	}
	return s.recordOutcome(ctx, rec, match)
}

func (s *IntegrityService) hashStored(ctx context.Context, path string) (string, error) {
	f, err := s.files.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return digest.Reader(ctx, f)
}

func (s *IntegrityService) recordOutcome(ctx context.Context, rec *models.VerificationRecord, match *bool) (*VerificationOutcome, error) {
	fctx := context.WithoutCancel(ctx)
	if err := s.repomanager.Verifications(s.db).Append(fctx, rec); err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.Kind, err)
	}
	reason, _ := rec.Metadata[models.MetaReason].(string)
	s.log.Info(fctx, "verification recorded",
		"document_id", rec.DocumentID, "kind", rec.Kind, "status", rec.Status, "reason", reason)

	var violation error
	if match != nil && !*match {
		violation = fmt.Errorf("%w: %s of document %s", common.ErrIntegrityViolation, rec.Kind, rec.DocumentID)
	}
	return &VerificationOutcome{
		DocumentID: rec.DocumentID,
		Kind:       rec.Kind,
		Status:     rec.Status,
		Reason:     reason,
		HashMatch:  match,
		TxID:       rec.TxID,
		Record:     newRecordView(rec),
		Err:        violation,
	}, nil
}
