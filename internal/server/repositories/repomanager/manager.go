// Package repomanager vends repository implementations for the configured
// SQL dialect, opens the database pool and runs the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/winklink/internal/dbx"
	"github.com/dmitrijs2005/winklink/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
