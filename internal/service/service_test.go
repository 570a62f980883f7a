package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sendit-labs/sendit-server/internal/models"
	"github.com/sendit-labs/sendit-server/internal/repositories"
)

func newTransferRow(code string, expiresAt time.Time) *models.Transfer {
	return &models.Transfer{
		Code:      code,
		CreatedAt: expiresAt.Add(-time.Hour),
		ExpiresAt: expiresAt,
	}
}

// memBlobStore is an in-memory BlobStore with injectable failures.
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	failPut   map[string]error // keyed by file name (last path element)
	failGet   map[string]error
	deleteErr error
	putCalls  int
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{
		objects: make(map[string][]byte),
		failPut: make(map[string]error),
		failGet: make(map[string]error),
	}
}

func (m *memBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if err, ok := m.failPut[path.Base(key)]; ok {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failGet[path.Base(key)]; ok {
		return nil, err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobStore) DeleteMany(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, k := range keys {
		delete(m.objects, k) // absent keys count as deleted
	}
	return nil
}

func (m *memBlobStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestTransfers(t *testing.T) (*Transfers, *repositories.TransferRepository, *memBlobStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sendit.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	repo := repositories.NewTransferRepository(db)
	blobs := newMemBlobStore()
	return NewTransfers(repo, blobs, testLogger(), 0, 0), repo, blobs
}

func uploadBatch(names ...string) []UploadFile {
	files := make([]UploadFile, 0, len(names))
	for _, name := range names {
		content := []byte("contents of " + name)
		files = append(files, UploadFile{
			Name:        name,
			Size:        int64(len(content)),
			ContentType: "text/plain",
			Content:     bytes.NewReader(content),
		})
	}
	return files
}
