package filevault_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sagarc03/filevault"
)

type SpyBlobStore struct {
	mock.Mock

	// UploadSink, when set, receives the bytes of streamed uploads so a test
	// can inspect what was written.
	UploadSink io.Writer
}

func (s *SpyBlobStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	args := s.Called(ctx, key, contentType)
	if err := args.Error(0); err != nil {
		return err
	}
	// A real store consumes the reader; do the same so upload content is
	// drained exactly once.
	_, err := io.Copy(io.Discard, r)
	return err
}

func (s *SpyBlobStore) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	args := s.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (s *SpyBlobStore) Delete(ctx context.Context, key string) error {
	args := s.Called(ctx, key)
	return args.Error(0)
}

func (s *SpyBlobStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	args := s.Called(ctx, key, contentType)
	if err := args.Error(0); err != nil {
		return err
	}
	dst := io.Discard
	if s.UploadSink != nil {
		dst = s.UploadSink
	}
	_, err := io.Copy(dst, r)
	return err
}

func (s *SpyBlobStore) PresignGet(ctx context.Context, key string, opts filevault.PresignOptions) (string, error) {
	args := s.Called(ctx, key, opts)
	return args.String(0), args.Error(1)
}

type SpyFileRepo struct {
	mock.Mock
}

func (s *SpyFileRepo) Insert(ctx context.Context, rec *filevault.FileRecord) error {
	args := s.Called(ctx, rec)
	return args.Error(0)
}

func (s *SpyFileRepo) GetByID(ctx context.Context, id uuid.UUID) (filevault.FileRecord, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(filevault.FileRecord), args.Error(1)
}

func (s *SpyFileRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]filevault.FileRecord, error) {
	args := s.Called(ctx, ids)
	recs, _ := args.Get(0).([]filevault.FileRecord)
	return recs, args.Error(1)
}

func (s *SpyFileRepo) FindPage(ctx context.Context, userID uuid.UUID, keyword string, skip, limit int) ([]filevault.FileRecord, int, error) {
	args := s.Called(ctx, userID, keyword, skip, limit)
	recs, _ := args.Get(0).([]filevault.FileRecord)
	return recs, args.Int(1), args.Error(2)
}

func (s *SpyFileRepo) DeleteManyOwned(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int, error) {
	args := s.Called(ctx, ids, userID)
	return args.Int(0), args.Error(1)
}

func (s *SpyFileRepo) CountByOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	args := s.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type SpyUsageRepo struct {
	mock.Mock
}

func (s *SpyUsageRepo) EnsureRow(ctx context.Context, userID uuid.UUID, capBytes int64) error {
	args := s.Called(ctx, userID, capBytes)
	return args.Error(0)
}

func (s *SpyUsageRepo) IncrementIfUnderCap(ctx context.Context, userID uuid.UUID, delta int64) error {
	args := s.Called(ctx, userID, delta)
	return args.Error(0)
}

func (s *SpyUsageRepo) Decrement(ctx context.Context, userID uuid.UUID, delta int64) error {
	args := s.Called(ctx, userID, delta)
	return args.Error(0)
}

func (s *SpyUsageRepo) Get(ctx context.Context, userID uuid.UUID) (filevault.StorageUsage, error) {
	args := s.Called(ctx, userID)
	return args.Get(0).(filevault.StorageUsage), args.Error(1)
}

func NewTestService(t *testing.T) (*filevault.Service, *SpyBlobStore, *SpyFileRepo, *SpyUsageRepo) {
	t.Helper()
	blob := new(SpyBlobStore)
	files := new(SpyFileRepo)
	usage := new(SpyUsageRepo)
	s := filevault.NewService(blob, files, usage, filevault.ServiceConfig{})
	return s, blob, files, usage
}

func TestNewService_Defaults(t *testing.T) {
	s, _, _, _ := NewTestService(t)
	assert.NotNil(t, s)
}
