// Package verifications provides the PostgreSQL-backed, append-only log of
// verification records.
package verifications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/dbx"
	"github.com/dmitrijs2005/docanchor/internal/server/models"
)

// PostgresRepository implements the log over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `seq, id, owner_id, document_id, kind, status, tx_id, content_id, metadata, created_at`

// newestFirst orders records by creation time; seq breaks ties between
// records written in the same instant.
const newestFirst = `ORDER BY created_at DESC, seq DESC`

// Append writes rec and fills in its sequence number and creation time.
func (r *PostgresRepository) Append(ctx context.Context, rec *models.VerificationRecord) error {
	if !rec.Kind.Valid() {
		return fmt.Errorf("unknown verification kind %q", rec.Kind)
	}
	if rec.Status != models.StatusSuccess && rec.Status != models.StatusFailed {
		return fmt.Errorf("unknown verification status %q", rec.Status)
	}

	meta := rec.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO verifications (id, owner_id, document_id, kind, status, tx_id, content_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq, created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		rec.ID, rec.OwnerID, rec.DocumentID, string(rec.Kind), string(rec.Status),
		rec.TxID, rec.ContentID, string(payload),
	).Scan(&rec.Seq, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListForDocument returns the document's records, newest first.
func (r *PostgresRepository) ListForDocument(ctx context.Context, ownerID, documentID string) ([]*models.VerificationRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM verifications
		WHERE owner_id=$1 AND document_id=$2
		` + newestFirst

	rows, err := r.db.QueryContext(ctx, query, ownerID, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select verifications: %w", err)
	}
	return collect(rows)
}

// ListForOwner returns one page of the owner's records, newest first,
// together with the owner's total record count.
func (r *PostgresRepository) ListForOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.VerificationRecord, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM verifications WHERE owner_id=$1`, ownerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count verifications: %w", err)
	}

	query := `SELECT ` + selectColumns + ` FROM verifications
		WHERE owner_id=$1
		` + newestFirst + `
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select verifications: %w", err)
	}
	recs, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// Latest returns the newest record of the document whose kind is one of
// kinds, or common.ErrorNotFound.
func (r *PostgresRepository) Latest(ctx context.Context, ownerID, documentID string, kinds ...models.Kind) (*models.VerificationRecord, error) {
	if len(kinds) == 0 {
		return nil, errors.New("no kinds given")
	}

	args := []any{ownerID, documentID}
	marks := make([]string, len(kinds))
	for i, k := range kinds {
		args = append(args, string(k))
		marks[i] = fmt.Sprintf("$%d", i+3)
	}

	query := `SELECT ` + selectColumns + ` FROM verifications
		WHERE owner_id=$1 AND document_id=$2 AND kind IN (` + strings.Join(marks, ", ") + `)
		` + newestFirst + `
		LIMIT 1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select verification: %w", err)
	}
	return rec, nil
}

// CountByOutcome counts the owner's records per status.
func (r *PostgresRepository) CountByOutcome(ctx context.Context, ownerID string) (models.Outcomes, error) {
	query := `
		SELECT count(*) FILTER (WHERE status='success'), count(*) FILTER (WHERE status='failed')
		FROM verifications WHERE owner_id=$1
	`
	var o models.Outcomes
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&o.Success, &o.Failed); err != nil {
		return models.Outcomes{}, fmt.Errorf("failed to count verifications: %w", err)
	}
	return o, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.VerificationRecord, error) {
	var (
		rec          models.VerificationRecord
		kind, status string
		meta         []byte
	)
	if err := s.Scan(
		&rec.Seq, &rec.ID, &rec.OwnerID, &rec.DocumentID, &kind, &status,
		&rec.TxID, &rec.ContentID, &meta, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Kind = models.Kind(kind)
	rec.Status = models.Status(status)
	rec.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &rec, nil
}

func collect(rows *sql.Rows) ([]*models.VerificationRecord, error) {
	defer rows.Close()

	var result []*models.VerificationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
