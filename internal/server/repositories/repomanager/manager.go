package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docanchor/internal/dbx"
	"github.com/dmitrijs2005/docanchor/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docanchor/internal/server/repositories/verifications"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Documents(db dbx.DBTX) documents.Repository
	Verifications(db dbx.DBTX) verifications.Repository
}
