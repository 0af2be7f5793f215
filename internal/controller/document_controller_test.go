package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/pkg/serverutils"
	"ragchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploadService struct {
	contents map[string]string
}

func (f *fakeUploadService) Store(ctx context.Context, files []service.UploadedFile) (*dto.UploadResponse, error) {
	res := &dto.UploadResponse{}
	names := make([]string, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file.TempPath)
		if err != nil {
			return nil, apperror.Indexing("upload.Store", "missing temp file", err)
		}
		f.contents[file.FileName] = string(data)
		names = append(names, file.FileName)
		res.Files = append(res.Files, dto.UploadedFileResponse{FileName: file.FileName, Size: file.Size})
	}
	res.Message = "File uploaded: " + strings.Join(names, ", ")
	return res, nil
}

type fakeIndexService struct{}

func (fakeIndexService) IndexDocuments(ctx context.Context) (*dto.IndexSummaryResponse, error) {
	return &dto.IndexSummaryResponse{Directory: "documents/", Indexed: 2, Skipped: 1, Errors: []string{}}, nil
}

func newDocumentApp(t *testing.T, upload service.IUploadService) *fiber.App {
	log := logger.NewNopLogger()
	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler(log)})
	NewDocumentController(upload, fakeIndexService{}, t.TempDir()).RegisterRoutes(app.Group("/api"))
	return app
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUploadAcceptsSeveralFiles(t *testing.T) {
	upload := &fakeUploadService{contents: map[string]string{}}
	app := newDocumentApp(t, upload)

	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "alpha", "b.md": "# beta"})
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, map[string]string{"a.txt": "alpha", "b.md": "# beta"}, upload.contents)

	var res struct {
		Success bool               `json:"success"`
		Message string             `json:"message"`
		Data    dto.UploadResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "File uploaded:")
	assert.Len(t, res.Data.Files, 2)
}

func TestUploadWithoutFiles(t *testing.T) {
	app := newDocumentApp(t, &fakeUploadService{contents: map[string]string{}})

	body, contentType := multipartBody(t, "other", map[string]string{"a.txt": "alpha"})
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestReindex(t *testing.T) {
	app := newDocumentApp(t, &fakeUploadService{contents: map[string]string{}})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/documents/index", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var res struct {
		Data dto.IndexSummaryResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 2, res.Data.Indexed)
	assert.Equal(t, 1, res.Data.Skipped)
}
