package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"finaid/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appColumns = []string{"id", "name", "email", "amount", "purpose", "status", "created_at", "verifier_comment"}

var docColumns = []string{"id", "application_id", "filename", "original_filename", "doc_type", "uploaded_at"}

func TestApplicationPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	app := &model.Application{
		Name:      "Alice",
		Email:     "a@x.com",
		Amount:    100.0,
		Purpose:   "tuition",
		Status:    model.StatusApplied,
		CreatedAt: now,
	}

	rows := sqlmock.NewRows(appColumns).
		AddRow(int64(1), app.Name, app.Email, app.Amount, app.Purpose, string(app.Status), now, nil)

	mock.ExpectQuery("INSERT INTO applications").
		WithArgs(app.Name, app.Email, app.Amount, app.Purpose, string(app.Status), now).
		WillReturnRows(rows)

	stored, err := repo.Create(ctx, app)

	assert.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(1), stored.ID)
	assert.Equal(t, model.StatusApplied, stored.Status)
	assert.Empty(t, stored.VerifierComment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationPostgres_AttachDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.Document{
		ApplicationID:    1,
		Filename:         "3f2c9a.pdf",
		OriginalFilename: "id.pdf",
		DocType:          "document",
		UploadedAt:       now,
	}

	rows := sqlmock.NewRows(docColumns).
		AddRow(int64(7), doc.ApplicationID, doc.Filename, doc.OriginalFilename, doc.DocType, now)

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ApplicationID, doc.Filename, doc.OriginalFilename, doc.DocType, now).
		WillReturnRows(rows)

	stored, err := repo.AttachDocument(ctx, doc)

	assert.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(7), stored.ID)
	assert.Equal(t, "id.pdf", stored.OriginalFilename)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationPostgres(db)
	ctx := context.Background()

	t.Run("newest first with grouped documents", func(t *testing.T) {
		newer := time.Now().UTC()
		older := newer.Add(-time.Hour)

		appRows := sqlmock.NewRows(appColumns).
			AddRow(int64(2), "Bob", "b@x.com", 50.0, nil, "Applied", newer, nil).
			AddRow(int64(1), "Alice", "a@x.com", 100.0, "tuition", "Verified", older, "ok")

		mock.ExpectQuery("SELECT (.+) FROM applications ORDER BY created_at DESC").
			WillReturnRows(appRows)

		docRows := sqlmock.NewRows(docColumns).
			AddRow(int64(10), int64(1), "ab12.pdf", "id.pdf", "document", older).
			AddRow(int64(11), int64(2), "cd34.png", "photo.png", "proof", newer)

		mock.ExpectQuery("SELECT (.+) FROM documents ORDER BY application_id").
			WillReturnRows(docRows)

		apps, err := repo.List(ctx)

		assert.NoError(t, err)
		require.Len(t, apps, 2)
		assert.Equal(t, int64(2), apps[0].ID)
		assert.Equal(t, int64(1), apps[1].ID)
		require.Len(t, apps[0].Documents, 1)
		assert.Equal(t, "photo.png", apps[0].Documents[0].OriginalFilename)
		require.Len(t, apps[1].Documents, 1)
		assert.Equal(t, "id.pdf", apps[1].Documents[0].OriginalFilename)
		assert.Equal(t, "ok", apps[1].VerifierComment)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table skips documents query", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM applications ORDER BY created_at DESC").
			WillReturnRows(sqlmock.NewRows(appColumns))

		apps, err := repo.List(ctx)

		assert.NoError(t, err)
		assert.Empty(t, apps)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestApplicationPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		now := time.Now().UTC()
		appRows := sqlmock.NewRows(appColumns).
			AddRow(int64(1), "Alice", "a@x.com", 100.0, nil, "Applied", now, nil)

		mock.ExpectQuery("SELECT (.+) FROM applications WHERE id = ?").
			WithArgs(int64(1)).
			WillReturnRows(appRows)

		mock.ExpectQuery("SELECT (.+) FROM documents WHERE application_id = ?").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(docColumns).
				AddRow(int64(5), int64(1), "ef56.pdf", "id.pdf", nil, now))

		app, err := repo.FindByID(ctx, 1)

		assert.NoError(t, err)
		require.NotNil(t, app)
		assert.Equal(t, int64(1), app.ID)
		require.Len(t, app.Documents, 1)
		assert.Equal(t, "ef56.pdf", app.Documents[0].Filename)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM applications WHERE id = ?").
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		app, err := repo.FindByID(ctx, 99)

		assert.Nil(t, app)
		assert.True(t, errors.Is(err, sql.ErrNoRows))
	})
}

func TestApplicationPostgres_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationPostgres(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("UPDATE applications").
			WithArgs("Verified", "ok", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(ctx, 1, model.StatusVerified, "ok")

		assert.NoError(t, err)
	})

	t.Run("no row updated", func(t *testing.T) {
		mock.ExpectExec("UPDATE applications").
			WithArgs("Sent Back", "", int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(ctx, 99, model.StatusSentBack, "")

		assert.True(t, errors.Is(err, sql.ErrNoRows))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
