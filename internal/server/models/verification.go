package models

import "time"

// Kind tells which run produced a VerificationRecord.
type Kind string

const (
	KindUpload         Kind = "upload"
	KindLocalReverify  Kind = "local-reverify"
	KindLedgerReverify Kind = "ledger-reverify"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindUpload, KindLocalReverify, KindLedgerReverify:
		return true
	}
	return false
}

// Status is the outcome of a verification run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Metadata keys written by the orchestrator.
const (
	MetaStage             = "stage"
	MetaContentStore      = "content_store"
	MetaContentStoreError = "content_store_error"
	MetaPinned            = "pinned"
	MetaLedger            = "ledger"
	MetaLedgerError       = "ledger_error"
	MetaCancelled         = "cancelled"
	MetaHashMatch         = "hash_match"
	MetaReason            = "reason"
	MetaComputedDigest    = "computed_digest"
)

// Metadata values.
const (
	MetaOK                  = "ok"
	MetaUnavailable         = "unavailable"
	MetaAnchored            = "anchored"
	MetaSkipped             = "skipped"
	ReasonIntegrity         = "integrity_violation"
	ReasonInconclusive      = "inconclusive"
	ReasonStorageUnreadable = "storage_unreadable"
)

// VerificationRecord is one immutable entry in a document's history.
type VerificationRecord struct {
	Seq        int64
	ID         string
	OwnerID    string
	DocumentID string
	Kind       Kind
	Status     Status
	TxID       string
	ContentID  string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Succeeded reports whether the record is a success.
func (r *VerificationRecord) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Outcomes holds per-status record counts for an owner.
type Outcomes struct {
	Success int64
	Failed  int64
}

// Total returns the number of counted records.
func (o Outcomes) Total() int64 {
	return o.Success + o.Failed
}
