package filevault_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sagarc03/filevault"
)

func TestService_Download(t *testing.T) {
	userID := uuid.New()

	t.Run("single file short-circuits to direct url", func(t *testing.T) {
		service, blob, files, _ := NewTestService(t)
		ctx := context.Background()

		rec := filevault.FileRecord{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k1", OriginalName: "report.pdf"}
		ids := []uuid.UUID{rec.ID}

		files.On("GetByIDs", ctx, ids).Return([]filevault.FileRecord{rec}, nil)
		blob.On("PresignGet", ctx, "users/u/k1", mock.MatchedBy(func(opts filevault.PresignOptions) bool {
			return opts.Disposition == filevault.DispositionAttachment && opts.Filename == "report.pdf"
		})).Return("https://signed/report", nil)

		result, err := service.Download(ctx, userID, ids)
		assert.NoError(t, err)
		assert.False(t, result.IsZip)
		assert.Equal(t, "https://signed/report", result.URL)

		blob.AssertNotCalled(t, "Upload")
	})

	t.Run("multiple files stream into a zip archive", func(t *testing.T) {
		service, blob, files, _ := NewTestService(t)
		ctx := context.Background()

		recs := []filevault.FileRecord{
			{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k1", OriginalName: "a.txt"},
			{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k2", OriginalName: "b.txt"},
		}
		ids := []uuid.UUID{recs[0].ID, recs[1].ID}

		files.On("GetByIDs", ctx, ids).Return(recs, nil)
		blob.On("GetStream", mock.Anything, "users/u/k1").
			Return(io.NopCloser(strings.NewReader("first")), nil)
		blob.On("GetStream", mock.Anything, "users/u/k2").
			Return(io.NopCloser(strings.NewReader("second")), nil)
		blob.On("Upload", mock.Anything, keyContaining("temp-zips/"+userID.String()), "application/zip").
			Return(nil)
		blob.On("PresignGet", mock.Anything, keyContaining("temp-zips/"), mock.MatchedBy(func(opts filevault.PresignOptions) bool {
			return opts.Disposition == filevault.DispositionAttachment &&
				strings.HasPrefix(opts.Filename, "upload-") &&
				strings.HasSuffix(opts.Filename, ".zip")
		})).Return("https://signed/archive", nil)

		result, err := service.Download(ctx, userID, ids)
		assert.NoError(t, err)
		assert.True(t, result.IsZip)
		assert.Equal(t, "https://signed/archive", result.URL)

		blob.AssertExpectations(t)
	})

	t.Run("archive keeps request order and renames duplicate names", func(t *testing.T) {
		service, blob, files, _ := NewTestService(t)
		ctx := context.Background()

		recA := filevault.FileRecord{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k1", OriginalName: "report.pdf"}
		recB := filevault.FileRecord{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k2", OriginalName: "notes.txt"}
		recC := filevault.FileRecord{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k3", OriginalName: "report.pdf"}
		ids := []uuid.UUID{recA.ID, recB.ID, recC.ID}

		// The repository does not promise request order back.
		files.On("GetByIDs", ctx, ids).Return([]filevault.FileRecord{recC, recA, recB}, nil)
		blob.On("GetStream", mock.Anything, "users/u/k1").
			Return(io.NopCloser(strings.NewReader("report one")), nil)
		blob.On("GetStream", mock.Anything, "users/u/k2").
			Return(io.NopCloser(strings.NewReader("notes")), nil)
		blob.On("GetStream", mock.Anything, "users/u/k3").
			Return(io.NopCloser(strings.NewReader("report two")), nil)

		var archive bytes.Buffer
		blob.UploadSink = &archive
		blob.On("Upload", mock.Anything, keyContaining("temp-zips/"), "application/zip").
			Return(nil)
		blob.On("PresignGet", mock.Anything, keyContaining("temp-zips/"), mock.Anything).
			Return("https://signed/archive", nil)

		result, err := service.Download(ctx, userID, ids)
		assert.NoError(t, err)
		assert.True(t, result.IsZip)

		zr, err := zip.NewReader(bytes.NewReader(archive.Bytes()), int64(archive.Len()))
		assert.NoError(t, err)

		var names []string
		contents := map[string]string{}
		for _, f := range zr.File {
			names = append(names, f.Name)
			rc, err := f.Open()
			assert.NoError(t, err)
			body, err := io.ReadAll(rc)
			assert.NoError(t, err)
			assert.NoError(t, rc.Close())
			contents[f.Name] = string(body)
		}

		assert.Equal(t, []string{"report.pdf", "notes.txt", "report_1.pdf"}, names)
		assert.Equal(t, "report one", contents["report.pdf"])
		assert.Equal(t, "notes", contents["notes.txt"])
		assert.Equal(t, "report two", contents["report_1.pdf"])
	})

	t.Run("source failure aborts the whole archive", func(t *testing.T) {
		service, blob, files, _ := NewTestService(t)
		ctx := context.Background()

		recs := []filevault.FileRecord{
			{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k1", OriginalName: "a.txt"},
			{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k2", OriginalName: "b.txt"},
		}
		ids := []uuid.UUID{recs[0].ID, recs[1].ID}

		files.On("GetByIDs", ctx, ids).Return(recs, nil)
		blob.On("GetStream", mock.Anything, "users/u/k1").
			Return(io.NopCloser(strings.NewReader("first")), nil)
		blob.On("GetStream", mock.Anything, "users/u/k2").
			Return(nil, errors.New("blob gone"))
		blob.On("Upload", mock.Anything, mock.Anything, "application/zip").Return(nil)

		_, err := service.Download(ctx, userID, ids)
		assert.Error(t, err)
		blob.AssertNotCalled(t, "PresignGet")
	})

	t.Run("destination failure fails the download", func(t *testing.T) {
		service, blob, files, _ := NewTestService(t)
		ctx := context.Background()

		recs := []filevault.FileRecord{
			{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k1", OriginalName: "a.txt"},
			{ID: uuid.New(), UserID: userID, StorageKey: "users/u/k2", OriginalName: "b.txt"},
		}
		ids := []uuid.UUID{recs[0].ID, recs[1].ID}

		files.On("GetByIDs", ctx, ids).Return(recs, nil)
		blob.On("GetStream", mock.Anything, mock.Anything).
			Return(io.NopCloser(strings.NewReader("content")), nil)
		blob.On("Upload", mock.Anything, mock.Anything, "application/zip").
			Return(errors.New("multipart failed"))

		_, err := service.Download(ctx, userID, ids)
		assert.Error(t, err)
		blob.AssertNotCalled(t, "PresignGet")
	})

	t.Run("unknown ids", func(t *testing.T) {
		service, _, files, _ := NewTestService(t)
		ctx := context.Background()

		ids := []uuid.UUID{uuid.New()}
		files.On("GetByIDs", ctx, ids).Return([]filevault.FileRecord{}, nil)

		_, err := service.Download(ctx, userID, ids)
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})

	t.Run("empty id list", func(t *testing.T) {
		service, _, _, _ := NewTestService(t)

		_, err := service.Download(context.Background(), userID, nil)
		assert.ErrorIs(t, err, filevault.ErrInvalidInput)
	})
}
