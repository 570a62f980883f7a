package service

import (
	"archive/zip"
	"context"
	"errors"
	"io"

	"github.com/sendit-labs/sendit-server/internal/access"
	"github.com/sendit-labs/sendit-server/internal/models"
	"github.com/sendit-labs/sendit-server/internal/repositories"
)

// Resolve maps a code (and optional password) to a transfer and its file
// listing. Outcomes are checked in a fixed order: existence, then expiry,
// then the password gate. Expiry is evaluated against the wall clock, so an
// expired transfer is refused even before the sweeper has purged it.
func (s *Transfers) Resolve(ctx context.Context, code, password string) (*models.Transfer, []models.FileMetadata, error) {
	transfer, err := s.store.TransferByCode(ctx, code)
	if errors.Is(err, repositories.ErrTransferNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if transfer.Expired(s.now()) {
		return nil, nil, ErrExpired
	}
	if err := access.Check(transfer.PasswordHash, password); err != nil {
		return nil, nil, err
	}
	files, err := s.store.FilesByTransfer(ctx, transfer.ID)
	if err != nil {
		return nil, nil, err
	}
	return transfer, files, nil
}

// Fetch opens the byte stream of a single file, addressed by its position
// in the transfer's upload-ordered listing. The caller closes the stream.
func (s *Transfers) Fetch(ctx context.Context, code, password string, index int) (*models.FileMetadata, io.ReadCloser, error) {
	_, files, err := s.Resolve(ctx, code, password)
	if err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= len(files) {
		return nil, nil, ErrFileNotFound
	}
	file := files[index]
	body, err := s.blobs.Get(ctx, file.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return &file, body, nil
}

// Bundle writes all of a transfer's files into one zip archive on w, one
// entry per file named by its original file name. Identically-named files
// are not de-duplicated; the last entry wins on extraction. Any blob
// failure aborts the whole bundle with a BundleError so the caller never
// surfaces a truncated archive.
func (s *Transfers) Bundle(ctx context.Context, code, password string, w io.Writer) error {
	_, files, err := s.Resolve(ctx, code, password)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, f := range files {
		if err := s.addEntry(ctx, zw, f); err != nil {
			return err
		}
	}
	return zw.Close()
}

func (s *Transfers) addEntry(ctx context.Context, zw *zip.Writer, f models.FileMetadata) error {
	body, err := s.blobs.Get(ctx, f.StoragePath)
	if err != nil {
		return &BundleError{FileName: f.FileName, Err: err}
	}
	defer body.Close()

	entry, err := zw.Create(f.FileName)
	if err != nil {
		return &BundleError{FileName: f.FileName, Err: err}
	}
	if _, err := io.Copy(entry, body); err != nil {
		return &BundleError{FileName: f.FileName, Err: err}
	}
	return nil
}
