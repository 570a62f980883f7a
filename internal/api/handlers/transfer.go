package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sendit-labs/sendit-server/internal/access"
	"github.com/sendit-labs/sendit-server/internal/codes"
	"github.com/sendit-labs/sendit-server/internal/service"
	"github.com/sendit-labs/sendit-server/internal/utils"
)

const (
	// multipartMemory is how much of a parsed upload form stays in memory
	// before spilling to temp files.
	multipartMemory = 32 << 20

	// uploadTimeout bounds one whole upload orchestration.
	uploadTimeout = 30 * time.Minute

	// downloadTimeout bounds a single-file fetch or archive build.
	downloadTimeout = 30 * time.Minute
)

// PasswordHeader carries the optional transfer password on retrieval
// requests, keeping it out of URLs and access logs.
const PasswordHeader = "X-Transfer-Password"

type TransferHandler struct {
	transfers      *service.Transfers
	maxUploadBytes int64
	log            logrus.FieldLogger
}

func NewTransferHandler(transfers *service.Transfers, maxUploadBytes int64, log logrus.FieldLogger) *TransferHandler {
	return &TransferHandler{transfers: transfers, maxUploadBytes: maxUploadBytes, log: log}
}

// POST /api/v1/transfers
// Accepts a multipart form with one or more "files" parts and an optional
// "password" field; replies with the issued 6-digit code and the deletion
// ETA the sender should be warned about.
func (h *TransferHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		// Cut oversized requests off at the socket instead of spooling
		// them to temp files first.
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.Error(w, http.StatusRequestEntityTooLarge, "Upload exceeds the size limit")
			return
		}
		utils.Error(w, http.StatusBadRequest, "Invalid file upload form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	formFiles := r.MultipartForm.File["files"]
	if len(formFiles) == 0 {
		utils.Error(w, http.StatusBadRequest, "No files provided")
		return
	}

	files := make([]service.UploadFile, 0, len(formFiles))
	for _, fh := range formFiles {
		src, err := fh.Open()
		if err != nil {
			utils.Error(w, http.StatusBadRequest, fmt.Sprintf("Could not read file %q", fh.Filename))
			return
		}
		defer src.Close()

		files = append(files, service.UploadFile{
			// Base strips client-supplied directories so storage keys stay
			// within the transfer's prefix.
			Name:        filepath.Base(fh.Filename),
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     src,
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	result, err := h.transfers.Upload(ctx, files, r.FormValue("password"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Files uploaded successfully",
		Data: map[string]any{
			"code":      result.Code,
			"expiresAt": result.ExpiresAt,
		},
	})
}

// GET /api/v1/transfers/{code}
// Resolves a code (password via X-Transfer-Password) to the transfer's
// file listing.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if !codes.Valid(code) {
		utils.Error(w, http.StatusBadRequest, "Please enter a valid 6-digit code")
		return
	}

	transfer, files, err := h.transfers.Resolve(r.Context(), code, r.Header.Get(PasswordHeader))
	if err != nil {
		h.writeError(w, err)
		return
	}

	listing := make([]map[string]any, 0, len(files))
	for i, f := range files {
		listing = append(listing, map[string]any{
			"index":    i,
			"fileName": f.FileName,
			"fileSize": f.FileSize,
			"mimeType": f.MimeType,
		})
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Transfer found",
		Data: map[string]any{
			"expiresAt": transfer.ExpiresAt,
			"files":     listing,
		},
	})
}

// GET /api/v1/transfers/{code}/files/{index}
// Streams the bytes of a single file.
func (h *TransferHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if !codes.Valid(code) {
		utils.Error(w, http.StatusBadRequest, "Please enter a valid 6-digit code")
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid file index")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), downloadTimeout)
	defer cancel()

	meta, body, err := h.transfers.Fetch(ctx, code, r.Header.Get(PasswordHeader), index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer body.Close()

	contentType := meta.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if meta.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.FileSize, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.FileName))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.log.WithError(err).Warn("file download interrupted")
	}
}

// GET /api/v1/transfers/{code}/archive
// Bundles every file of the transfer into one zip. The archive is staged
// to a temp file first so a mid-bundle storage failure yields a clean
// error response instead of a truncated archive.
func (h *TransferHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if !codes.Valid(code) {
		utils.Error(w, http.StatusBadRequest, "Please enter a valid 6-digit code")
		return
	}

	tmp, err := os.CreateTemp("", "sendit-archive-*")
	if err != nil {
		h.log.WithError(err).Error("could not stage archive")
		utils.Error(w, http.StatusInternalServerError, "Failed to create ZIP")
		return
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	ctx, cancel := context.WithTimeout(r.Context(), downloadTimeout)
	defer cancel()

	if err := h.transfers.Bundle(ctx, code, r.Header.Get(PasswordHeader), tmp); err != nil {
		var be *service.BundleError
		if errors.As(err, &be) {
			h.log.WithError(be).Warn("archive build aborted")
			utils.Error(w, http.StatusBadGateway, "Failed to create ZIP")
			return
		}
		h.writeError(w, err)
		return
	}

	size, err := tmp.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		h.log.WithError(err).Error("could not rewind staged archive")
		utils.Error(w, http.StatusInternalServerError, "Failed to create ZIP")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ArchiveName(code)))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, tmp); err != nil {
		h.log.WithError(err).Warn("archive download interrupted")
	}
}

// writeError maps the service error taxonomy onto HTTP responses. The four
// lookup outcomes keep their distinct user-facing labels; everything else
// collapses into generic infrastructure errors.
func (h *TransferHandler) writeError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var partialErr *service.PartialUploadError

	switch {
	case errors.As(err, &validationErr):
		utils.Error(w, http.StatusBadRequest, validationErr.Reason)
	case errors.Is(err, service.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "Transfer not found")
	case errors.Is(err, service.ErrFileNotFound):
		utils.Error(w, http.StatusNotFound, "File not found")
	case errors.Is(err, service.ErrExpired):
		utils.Error(w, http.StatusGone, "This transfer has expired")
	case errors.Is(err, access.ErrPasswordRequired):
		utils.Error(w, http.StatusUnauthorized, "Password required")
	case errors.Is(err, access.ErrIncorrectPassword):
		utils.Error(w, http.StatusForbidden, "Incorrect password")
	case errors.As(err, &partialErr):
		h.log.WithError(partialErr).Error("upload failed partway")
		utils.JSONResponse(w, http.StatusBadGateway, utils.Payload{
			Success: false,
			Message: "Some files failed to upload",
			Data: map[string]any{
				"uploaded": partialErr.Uploaded,
				"failed":   partialErr.Failed,
			},
		})
	case errors.Is(err, service.ErrCodeSpaceExhausted):
		h.log.Error("transfer code space exhausted")
		utils.Error(w, http.StatusServiceUnavailable, "Could not allocate a transfer code, please retry")
	default:
		h.log.WithError(err).Error("transfer request failed")
		utils.Error(w, http.StatusBadGateway, "Something went wrong, please retry")
	}
}
