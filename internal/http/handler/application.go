package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"finaid/internal/model"
	"finaid/internal/service"
)

// statusResponse is the minimal body returned by submit and verify.
type statusResponse struct {
	ID     int64        `json:"id"`
	Status model.Status `json:"status"`
}

// verifyRequest is the strictly-typed body of the verify endpoint.
// Action must be exactly "verify" or "send_back"; the service rejects
// anything else.
type verifyRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

// SubmitApplication accepts a multipart form with fields name, email,
// amount, optional purpose, and zero or more file parts under "documents".
// A per-file type hint can be supplied as a form field named
// doc_type_<original filename>.
func SubmitApplication(svc service.ApplicationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := service.SubmitInput{
			Name:    c.FormValue("name"),
			Email:   c.FormValue("email"),
			Purpose: c.FormValue("purpose"),
		}
		if raw := c.FormValue("amount"); raw != "" {
			if amount, err := strconv.ParseFloat(raw, 64); err == nil {
				in.Amount = &amount
			}
		}

		var opened []multipart.File
		defer func() {
			for _, f := range opened {
				_ = f.Close()
			}
		}()

		if form, err := c.MultipartForm(); err == nil && form != nil {
			for _, fh := range form.File["documents"] {
				f, err := fh.Open()
				if err != nil {
					return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
				}
				opened = append(opened, f)

				in.Uploads = append(in.Uploads, service.Upload{
					Reader:           f,
					OriginalFilename: fh.Filename,
					Size:             fh.Size,
					ContentType:      fh.Header.Get("Content-Type"),
					DocType:          c.FormValue("doc_type_" + fh.Filename),
				})
			}
		}

		app, err := svc.Submit(c.UserContext(), in)
		if err != nil {
			if errors.Is(err, service.ErrValidation) {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		return c.Status(fiber.StatusCreated).JSON(statusResponse{ID: app.ID, Status: app.Status})
	}
}

// ListApplications returns all applications newest-first with their documents.
func ListApplications(svc service.ApplicationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apps, err := svc.List(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(apps)
	}
}

// VerifyApplication applies a verifier decision to an application.
func VerifyApplication(svc service.ApplicationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req verifyRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		app, err := svc.Verify(c.UserContext(), id, req.Action, req.Comment)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "application not found")
			case errors.Is(err, service.ErrValidation):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}

		return c.JSON(statusResponse{ID: app.ID, Status: app.Status})
	}
}

// DownloadDocument streams a stored document's raw bytes by its stored name.
func DownloadDocument(svc service.ApplicationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, info, err := svc.Download(c.UserContext(), c.Params("filename"))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrDocumentNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			case errors.Is(err, service.ErrValidation):
				return writeError(c, fiber.StatusBadRequest, "INVALID_NAME", "invalid document name")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}

		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		if original := originalFilename(info.Metadata); original != "" {
			c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", original))
		}
		if info.Size > 0 {
			return c.SendStream(rc, int(info.Size))
		}
		return c.SendStream(rc)
	}
}

// originalFilename looks up the uploader-supplied name stashed in object
// metadata. S3 backends canonicalize user metadata keys, so both spellings
// are checked.
func originalFilename(meta map[string]string) string {
	if meta == nil {
		return ""
	}
	if v := meta["original-filename"]; v != "" {
		return v
	}
	return meta["Original-Filename"]
}
