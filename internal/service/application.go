package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"finaid/internal/mail"
	"finaid/internal/model"
	"finaid/internal/repository"
	"finaid/internal/storage"
)

// Verification actions recognized by Verify. The match is case-sensitive;
// anything else is rejected.
const (
	ActionVerify   = "verify"
	ActionSendBack = "send_back"
)

// DefaultDocType labels documents submitted without an explicit type hint.
const DefaultDocType = "document"

var (
	// ErrValidation is the base error for all client input failures.
	// Handlers match it with errors.Is to produce 400 responses.
	ErrValidation = errors.New("validation failed")

	ErrNameRequired   = fmt.Errorf("%w: name is required", ErrValidation)
	ErrEmailRequired  = fmt.Errorf("%w: email is required", ErrValidation)
	ErrAmountRequired = fmt.Errorf("%w: amount is required", ErrValidation)
	ErrInvalidAction  = fmt.Errorf("%w: action must be %q or %q", ErrValidation, ActionVerify, ActionSendBack)
	ErrBadStoredName  = fmt.Errorf("%w: malformed stored name", ErrValidation)

	ErrNotFound         = errors.New("application not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// Upload is one file part of a submission.
type Upload struct {
	Reader           io.Reader
	OriginalFilename string
	Size             int64
	ContentType      string
	DocType          string
}

// SubmitInput carries the applicant-supplied fields of a new application.
// Amount is a pointer so absent and non-numeric input are distinguishable
// from a literal zero.
type SubmitInput struct {
	Name    string
	Email   string
	Amount  *float64
	Purpose string
	Uploads []Upload
}

// ApplicationService defines the assistance-request workflow use cases.
type ApplicationService interface {
	// Submit validates the input, persists the application and its
	// documents, then notifies the applicant. Persistence fully completes
	// before the notification is attempted; a notification failure never
	// affects the result.
	Submit(ctx context.Context, in SubmitInput) (*model.Application, error)

	// List returns all applications newest-first with their documents.
	List(ctx context.Context) ([]model.Application, error)

	// Verify applies a verifier decision (ActionVerify or ActionSendBack)
	// to an application, overwriting its status and comment, then notifies
	// the applicant. No transition guard: any application can be re-verified
	// or sent back regardless of its current status.
	Verify(ctx context.Context, id int64, action, comment string) (*model.Application, error)

	// Download resolves a stored name to the document's content.
	// The name is an opaque lookup key; names carrying path separators are
	// rejected before any storage lookup.
	Download(ctx context.Context, storedName string) (io.ReadCloser, storage.ObjectInfo, error)
}

type applicationService struct {
	repo     repository.ApplicationRepository
	store    storage.Storage
	notifier mail.Notifier
}

// NewApplicationService constructs a new ApplicationService.
func NewApplicationService(repo repository.ApplicationRepository, store storage.Storage, notifier mail.Notifier) ApplicationService {
	return &applicationService{repo: repo, store: store, notifier: notifier}
}

func (s *applicationService) Submit(ctx context.Context, in SubmitInput) (*model.Application, error) {
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	if in.Email == "" {
		return nil, ErrEmailRequired
	}
	if in.Amount == nil {
		return nil, ErrAmountRequired
	}

	app, err := s.repo.Create(ctx, &model.Application{
		Name:      in.Name,
		Email:     in.Email,
		Amount:    *in.Amount,
		Purpose:   in.Purpose,
		Status:    model.StatusApplied,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	// Each upload is written to storage under a fresh random name, then
	// recorded against the application. On a mid-submission failure the
	// objects stored so far are removed so no orphaned files remain; the
	// application row itself is kept.
	var storedKeys []string
	cleanup := func() {
		for _, key := range storedKeys {
			_ = s.store.Delete(ctx, key)
		}
	}

	for _, up := range in.Uploads {
		if up.Reader == nil || up.OriginalFilename == "" {
			continue
		}

		storedName := newStoredName(up.OriginalFilename)
		_, err := s.store.Put(ctx, storedName, up.Reader, storage.PutObjectOptions{
			Size:        up.Size,
			ContentType: up.ContentType,
			Metadata:    map[string]string{"original-filename": up.OriginalFilename},
		})
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("store document %q: %w", up.OriginalFilename, err)
		}
		storedKeys = append(storedKeys, storedName)

		docType := up.DocType
		if docType == "" {
			docType = DefaultDocType
		}
		doc, err := s.repo.AttachDocument(ctx, &model.Document{
			ApplicationID:    app.ID,
			Filename:         storedName,
			OriginalFilename: up.OriginalFilename,
			DocType:          docType,
			UploadedAt:       time.Now().UTC(),
		})
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("attach document %q: %w", up.OriginalFilename, err)
		}
		app.Documents = append(app.Documents, *doc)
	}

	s.notifier.Notify(ctx, app.Email,
		"Application Submitted",
		fmt.Sprintf("Your application (ID: %d) was submitted and is in %s status.", app.ID, app.Status),
	)

	return app, nil
}

func (s *applicationService) List(ctx context.Context) ([]model.Application, error) {
	return s.repo.List(ctx)
}

func (s *applicationService) Verify(ctx context.Context, id int64, action, comment string) (*model.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}

	var status model.Status
	switch action {
	case ActionVerify:
		status = model.StatusVerified
	case ActionSendBack:
		status = model.StatusSentBack
	default:
		return nil, ErrInvalidAction
	}

	if err := s.repo.UpdateStatus(ctx, id, status, comment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	app.Status = status
	app.VerifierComment = comment

	s.notifier.Notify(ctx, app.Email,
		fmt.Sprintf("Application %s", status),
		fmt.Sprintf("Your application (ID: %d) status changed to %s. Comment: %s", app.ID, status, comment),
	)

	return app, nil
}

func (s *applicationService) Download(ctx context.Context, storedName string) (io.ReadCloser, storage.ObjectInfo, error) {
	if storedName == "" || strings.ContainsAny(storedName, `/\`) || strings.Contains(storedName, "..") {
		return nil, storage.ObjectInfo{}, ErrBadStoredName
	}
	rc, info, err := s.store.Get(ctx, storedName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, ErrDocumentNotFound
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("get document: %w", err)
	}
	return rc, info, nil
}

// newStoredName generates a collision-resistant stored name that keeps the
// original file's extension. uuid v4 carries 122 bits of crypto randomness,
// which makes key collisions negligible without an existence check.
func newStoredName(originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	return strings.ReplaceAll(uuid.New().String(), "-", "") + ext
}
