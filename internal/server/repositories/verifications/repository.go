package verifications

import (
	"context"

	"github.com/dmitrijs2005/docanchor/internal/server/models"
)

// Repository is the append-only verification log. It has no update or
// delete; records leave only together with their document.
type Repository interface {
	Append(ctx context.Context, rec *models.VerificationRecord) error
	ListForDocument(ctx context.Context, ownerID, documentID string) ([]*models.VerificationRecord, error)
	ListForOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.VerificationRecord, int64, error)
	Latest(ctx context.Context, ownerID, documentID string, kinds ...models.Kind) (*models.VerificationRecord, error)
	CountByOutcome(ctx context.Context, ownerID string) (models.Outcomes, error)
}
