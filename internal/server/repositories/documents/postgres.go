// Package documents provides the PostgreSQL-backed repository for
// documents held by the server.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/dbx"
	"github.com/dmitrijs2005/docanchor/internal/server/models"
)

// PostgresRepository implements document storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, owner_id, title, description, file_name, media_type, size,
	digest, storage_path, content_id, tx_id, anchored, created_at, updated_at`

// Create inserts a new document. Anchoring fields are written empty; the
// row timestamps are filled from the database.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, owner_id, title, description, file_name, media_type, size, digest, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		doc.ID, doc.OwnerID, doc.Title, doc.Description, doc.FileName, doc.MediaType,
		doc.Size, doc.Digest, doc.StoragePath,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	doc.ContentID, doc.TxID, doc.Anchored = "", "", false
	return nil
}

// GetByID returns the owner's document or common.ErrorNotFound. Documents of
// other owners are reported as not found.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM documents WHERE id=$1 AND owner_id=$2`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select document: %w", err)
	}
	return doc, nil
}

// List returns a page of the owner's documents, newest first.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]*models.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM documents
		WHERE owner_id=$1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateAnchoring writes the content id, transaction id and anchored flag of
// an existing document.
func (r *PostgresRepository) UpdateAnchoring(ctx context.Context, ownerID, id, contentID, txID string, anchored bool) error {
	if anchored && txID == "" {
		return fmt.Errorf("anchored document %s without transaction id", id)
	}
	query := `
		UPDATE documents
		SET content_id=$3, tx_id=$4, anchored=$5, updated_at=now()
		WHERE id=$1 AND owner_id=$2
	`
	res, err := r.db.ExecContext(ctx, query, id, ownerID, contentID, txID, anchored)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

// Delete removes the document row. Its verification records go with it.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

// CountByOwner returns the number of the owner's documents and how many of
// them are anchored.
func (r *PostgresRepository) CountByOwner(ctx context.Context, ownerID string) (int64, int64, error) {
	query := `SELECT count(*), count(*) FILTER (WHERE anchored) FROM documents WHERE owner_id=$1`

	var total, anchored int64
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&total, &anchored); err != nil {
		return 0, 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return total, anchored, nil
}

// CountByContentID returns how many documents, across all owners, reference
// contentID.
func (r *PostgresRepository) CountByContentID(ctx context.Context, contentID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE content_id=$1`, contentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count content references: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	var d models.Document
	if err := s.Scan(
		&d.ID, &d.OwnerID, &d.Title, &d.Description, &d.FileName, &d.MediaType, &d.Size,
		&d.Digest, &d.StoragePath, &d.ContentID, &d.TxID, &d.Anchored, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
