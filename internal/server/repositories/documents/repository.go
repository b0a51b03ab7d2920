package documents

import (
	"context"

	"github.com/dmitrijs2005/docanchor/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, ownerID, id string) (*models.Document, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]*models.Document, error)
	UpdateAnchoring(ctx context.Context, ownerID, id, contentID, txID string, anchored bool) error
	Delete(ctx context.Context, ownerID, id string) error
	CountByOwner(ctx context.Context, ownerID string) (total, anchored int64, err error)
	CountByContentID(ctx context.Context, contentID string) (int64, error)
}
