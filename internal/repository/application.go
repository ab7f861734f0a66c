package repository

import (
	"context"

	"finaid/internal/model"
)

// ApplicationRepository defines data access for applications and their
// documents using SQL queries only. No business logic here — strictly
// persistence operations.
type ApplicationRepository interface {
	// Create inserts a new application record with status Applied.
	// Returns the stored application (includes DB-assigned id and created_at).
	Create(ctx context.Context, app *model.Application) (*model.Application, error)

	// AttachDocument inserts a new document row referencing an application.
	// The caller guarantees the application was just created; no existence
	// check is performed here.
	AttachDocument(ctx context.Context, doc *model.Document) (*model.Document, error)

	// List returns all applications newest-first with documents eagerly loaded.
	List(ctx context.Context) ([]model.Application, error)

	// FindByID returns an application with its documents.
	// Returns sql.ErrNoRows when no application has that id.
	FindByID(ctx context.Context, id int64) (*model.Application, error)

	// UpdateStatus overwrites status and verifier comment on an application.
	// Returns sql.ErrNoRows when no row was updated.
	UpdateStatus(ctx context.Context, id int64, status model.Status, comment string) error
}
