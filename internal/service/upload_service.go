package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/logger"
)

// UploadedFile is a file the transport already wrote to a temporary location
type UploadedFile struct {
	FileName string
	TempPath string
	Size     int64
}

type IUploadService interface {
	// Store moves every file into the documents directory and queues it for indexing.
	Store(ctx context.Context, files []UploadedFile) (*dto.UploadResponse, error)
}

type uploadService struct {
	documentsDirectory string
	publisherService   IPublisherService
	logger             logger.ILogger
}

func NewUploadService(documentsDirectory string, publisherService IPublisherService, logger logger.ILogger) IUploadService {
	return &uploadService{
		documentsDirectory: documentsDirectory,
		publisherService:   publisherService,
		logger:             logger,
	}
}

func (s *uploadService) Store(ctx context.Context, files []UploadedFile) (*dto.UploadResponse, error) {
	if len(files) == 0 {
		return nil, apperror.Validation("upload.Store", "No file uploaded")
	}

	if err := os.MkdirAll(s.documentsDirectory, 0755); err != nil {
		return nil, apperror.Indexing("upload.Store", "Documents directory unavailable", err)
	}

	res := &dto.UploadResponse{Files: make([]dto.UploadedFileResponse, 0, len(files))}
	names := make([]string, 0, len(files))

	for _, f := range files {
		name, err := sanitizeFileName(f.FileName)
		if err != nil {
			return nil, err
		}

		target := filepath.Join(s.documentsDirectory, name)
		if err := moveFile(f.TempPath, target); err != nil {
			s.logger.Error("UPLOAD", "Failed to move uploaded file", map[string]interface{}{
				"file":  name,
				"error": err.Error(),
			})
			return nil, apperror.Indexing("upload.Store", "Failed to store "+name, err)
		}

		payload, err := json.Marshal(dto.PublishDocumentUploadedMessage{Path: target})
		if err != nil {
			return nil, err
		}
		if err := s.publisherService.Publish(ctx, payload); err != nil {
			return nil, apperror.Indexing("upload.Store", "Failed to queue "+name+" for indexing", err)
		}

		s.logger.Info("UPLOAD", "File uploaded", map[string]interface{}{"file": name, "path": target, "size": f.Size})
		names = append(names, name)
		res.Files = append(res.Files, dto.UploadedFileResponse{
			FileName: name,
			Path:     target,
			Size:     f.Size,
		})
	}

	res.Message = "File uploaded: " + strings.Join(names, ", ")
	return res, nil
}

func sanitizeFileName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) || strings.HasPrefix(base, ".") {
		return "", apperror.Validation("upload.Store", fmt.Sprintf("Invalid file name %q", name))
	}
	return base, nil
}

// moveFile renames src to dst, copying when they sit on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}
