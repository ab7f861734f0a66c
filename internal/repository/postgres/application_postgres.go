package postgres

import (
	"context"
	"database/sql"

	"finaid/internal/model"
	"finaid/internal/repository"
)

// ApplicationPostgres is a PostgreSQL implementation of repository.ApplicationRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ApplicationPostgres struct {
	db *sql.DB
}

// NewApplicationPostgres creates a new ApplicationPostgres repository.
func NewApplicationPostgres(db *sql.DB) *ApplicationPostgres {
	return &ApplicationPostgres{db: db}
}

var _ repository.ApplicationRepository = (*ApplicationPostgres)(nil)

// Create inserts a new application row and returns the stored record.
func (r *ApplicationPostgres) Create(ctx context.Context, app *model.Application) (*model.Application, error) {
	const q = `
		INSERT INTO applications (name, email, amount, purpose, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, email, amount, purpose, status, created_at, verifier_comment
	`
	row := r.db.QueryRowContext(ctx, q,
		app.Name,
		app.Email,
		app.Amount,
		app.Purpose,
		app.Status,
		app.CreatedAt,
	)
	return scanApplication(row)
}

// AttachDocument inserts a new document row and returns the stored record.
func (r *ApplicationPostgres) AttachDocument(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (application_id, filename, original_filename, doc_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, application_id, filename, original_filename, doc_type, uploaded_at
	`
	row := r.db.QueryRowContext(ctx, q,
		doc.ApplicationID,
		doc.Filename,
		doc.OriginalFilename,
		doc.DocType,
		doc.UploadedAt,
	)
	var out model.Document
	var docType sql.NullString
	if err := row.Scan(
		&out.ID,
		&out.ApplicationID,
		&out.Filename,
		&out.OriginalFilename,
		&docType,
		&out.UploadedAt,
	); err != nil {
		return nil, err
	}
	out.DocType = docType.String
	return &out, nil
}

// List returns all applications newest-first with their documents resolved.
// Documents are fetched with a single grouped query to avoid per-row lookups.
func (r *ApplicationPostgres) List(ctx context.Context) ([]model.Application, error) {
	const q = `
		SELECT id, name, email, amount, purpose, status, created_at, verifier_comment
		FROM applications
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]model.Application, 0)
	index := make(map[int64]int)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		index[app.ID] = len(apps)
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return apps, nil
	}

	const qDocs = `
		SELECT id, application_id, filename, original_filename, doc_type, uploaded_at
		FROM documents
		ORDER BY application_id, id
	`
	docRows, err := r.db.QueryContext(ctx, qDocs)
	if err != nil {
		return nil, err
	}
	defer docRows.Close()

	for docRows.Next() {
		var d model.Document
		var docType sql.NullString
		if err := docRows.Scan(
			&d.ID,
			&d.ApplicationID,
			&d.Filename,
			&d.OriginalFilename,
			&docType,
			&d.UploadedAt,
		); err != nil {
			return nil, err
		}
		d.DocType = docType.String
		if i, ok := index[d.ApplicationID]; ok {
			apps[i].Documents = append(apps[i].Documents, d)
		}
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}

	return apps, nil
}

// FindByID fetches a single application with its documents.
func (r *ApplicationPostgres) FindByID(ctx context.Context, id int64) (*model.Application, error) {
	const q = `
		SELECT id, name, email, amount, purpose, status, created_at, verifier_comment
		FROM applications
		WHERE id = $1
	`
	app, err := scanApplication(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}

	const qDocs = `
		SELECT id, application_id, filename, original_filename, doc_type, uploaded_at
		FROM documents
		WHERE application_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, qDocs, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d model.Document
		var docType sql.NullString
		if err := rows.Scan(
			&d.ID,
			&d.ApplicationID,
			&d.Filename,
			&d.OriginalFilename,
			&docType,
			&d.UploadedAt,
		); err != nil {
			return nil, err
		}
		d.DocType = docType.String
		app.Documents = append(app.Documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return app, nil
}

// UpdateStatus overwrites status and verifier comment on the identified application.
func (r *ApplicationPostgres) UpdateStatus(ctx context.Context, id int64, status model.Status, comment string) error {
	const q = `
		UPDATE applications
		SET status = $1, verifier_comment = $2
		WHERE id = $3
	`
	res, err := r.db.ExecContext(ctx, q, status, comment, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*model.Application, error) {
	var app model.Application
	var purpose, comment sql.NullString
	if err := row.Scan(
		&app.ID,
		&app.Name,
		&app.Email,
		&app.Amount,
		&purpose,
		&app.Status,
		&app.CreatedAt,
		&comment,
	); err != nil {
		return nil, err
	}
	app.Purpose = purpose.String
	app.VerifierComment = comment.String
	app.Documents = make([]model.Document, 0)
	return &app, nil
}
