package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendit-labs/sendit-server/internal/access"
	"github.com/sendit-labs/sendit-server/internal/codes"
)

func TestUpload(t *testing.T) {
	svc, repo, blobs := newTestTransfers(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, uploadBatch("a.txt", "b.txt"), "")
	require.NoError(t, err)

	assert.True(t, codes.Valid(result.Code), "issued code %q is not a 6-digit code", result.Code)

	stored, err := repo.TransferByCode(ctx, result.Code)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, stored.ExpiresAt.Sub(stored.CreatedAt))
	assert.Nil(t, stored.PasswordHash)

	files, err := repo.FilesByTransfer(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].FileName)
	assert.Equal(t, "b.txt", files[1].FileName)
	assert.Equal(t, 0, files[0].Position)
	assert.Equal(t, 1, files[1].Position)
	assert.Equal(t, StoragePath(stored.ID, "a.txt"), files[0].StoragePath)

	assert.ElementsMatch(t, []string{
		StoragePath(stored.ID, "a.txt"),
		StoragePath(stored.ID, "b.txt"),
	}, blobs.keys())
}

func TestUpload_PasswordStored(t *testing.T) {
	svc, repo, _ := newTestTransfers(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, uploadBatch("secret.txt"), "letmein")
	require.NoError(t, err)

	stored, err := repo.TransferByCode(ctx, result.Code)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordHash)
	assert.NoError(t, access.Check(stored.PasswordHash, "letmein"))
	assert.ErrorIs(t, access.Check(stored.PasswordHash, "wrong"), access.ErrIncorrectPassword)
}

func TestUpload_RejectsOversizedBatch(t *testing.T) {
	svc, _, blobs := newTestTransfers(t)

	// Declared sizes exceed the cap; the check runs before any bytes move.
	files := []UploadFile{
		{Name: "big1.bin", Size: 6 << 30, Content: bytes.NewReader(nil)},
		{Name: "big2.bin", Size: 6 << 30, Content: bytes.NewReader(nil)},
	}
	_, err := svc.Upload(context.Background(), files, "")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Zero(t, blobs.putCalls, "no storage activity may precede the size check")
}

func TestUpload_ConfiguredLimits(t *testing.T) {
	_, repo, blobs := newTestTransfers(t)
	svc := NewTransfers(repo, blobs, testLogger(), 30*time.Minute, 100)
	ctx := context.Background()

	result, err := svc.Upload(ctx, uploadBatch("a.txt"), "")
	require.NoError(t, err)

	stored, err := repo.TransferByCode(ctx, result.Code)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, stored.ExpiresAt.Sub(stored.CreatedAt))

	// Well under the default cap but over the configured one.
	files := []UploadFile{{Name: "big.bin", Size: 200, Content: bytes.NewReader(nil)}}
	_, err = svc.Upload(ctx, files, "")
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestNewTransfers_ZeroLimitsFallBack(t *testing.T) {
	svc, _, _ := newTestTransfers(t) // constructed with zero ttl and cap
	assert.Equal(t, DefaultTTL, svc.ttl)
	assert.EqualValues(t, MaxTotalBytes, svc.maxTotal)
}

func TestUpload_RejectsEmptyBatch(t *testing.T) {
	svc, _, _ := newTestTransfers(t)
	_, err := svc.Upload(context.Background(), nil, "")
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestUpload_PartialFailureKeepsCompletedFiles(t *testing.T) {
	svc, repo, blobs := newTestTransfers(t)
	ctx := context.Background()

	blobs.failPut["b.txt"] = assert.AnError

	_, err := svc.Upload(ctx, uploadBatch("a.txt", "b.txt", "c.txt"), "")

	var partial *PartialUploadError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"a.txt"}, partial.Uploaded)
	assert.Equal(t, "b.txt", partial.Failed)

	// No rollback: the transfer row and the first file stay for a retry or
	// for normal expiry to reclaim.
	stored, err := repo.TransferByCode(ctx, partial.Code)
	require.NoError(t, err)
	files, err := repo.FilesByTransfer(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].FileName)

	// The remaining files were never attempted.
	assert.ElementsMatch(t, []string{StoragePath(stored.ID, "a.txt")}, blobs.keys())
}

func TestUpload_RetriesOnCodeCollision(t *testing.T) {
	svc, repo, _ := newTestTransfers(t)
	ctx := context.Background()

	taken := newTransferRow("111111", time.Now().Add(time.Hour))
	require.NoError(t, repo.CreateTransfer(ctx, taken))

	seq := []string{"111111", "222222"}
	svc.gen = func() (string, error) {
		code := seq[0]
		if len(seq) > 1 {
			seq = seq[1:]
		}
		return code, nil
	}

	result, err := svc.Upload(ctx, uploadBatch("a.txt"), "")
	require.NoError(t, err)
	assert.Equal(t, "222222", result.Code)
}

func TestUpload_CodeSpaceExhausted(t *testing.T) {
	svc, repo, _ := newTestTransfers(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateTransfer(ctx, newTransferRow("111111", time.Now().Add(time.Hour))))
	svc.gen = func() (string, error) { return "111111", nil }

	_, err := svc.Upload(ctx, uploadBatch("a.txt"), "")
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
}
