package controller

import (
	"mime/multipart"
	"os"
	"path/filepath"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/pkg/serverutils"
	"ragchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router, middleware ...fiber.Handler)
	Upload(ctx *fiber.Ctx) error
	Reindex(ctx *fiber.Ctx) error
}

type documentController struct {
	uploadService    service.IUploadService
	indexService     service.IIndexService
	uploadsDirectory string
}

func NewDocumentController(uploadService service.IUploadService, indexService service.IIndexService, uploadsDirectory string) IDocumentController {
	return &documentController{
		uploadService:    uploadService,
		indexService:     indexService,
		uploadsDirectory: uploadsDirectory,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router, middleware ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, middleware...), c.Upload)
	r.Post("/upload", handlers...)

	h := r.Group("/documents", middleware...)
	h.Post("/index", c.Reindex)
}

// Upload accepts one or more multipart files under "file" or "files".
func (c *documentController) Upload(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return apperror.Validation("document.Upload", "Invalid multipart form")
	}

	var headers []*multipart.FileHeader
	headers = append(headers, form.File["file"]...)
	headers = append(headers, form.File["files"]...)
	if len(headers) == 0 {
		return apperror.Validation("document.Upload", "No file uploaded")
	}

	if err := os.MkdirAll(c.uploadsDirectory, 0755); err != nil {
		return err
	}

	files := make([]service.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		tmp := filepath.Join(c.uploadsDirectory, uuid.NewString())
		if err := ctx.SaveFile(fh, tmp); err != nil {
			return err
		}
		files = append(files, service.UploadedFile{
			FileName: fh.Filename,
			TempPath: tmp,
			Size:     fh.Size,
		})
	}

	res, err := c.uploadService.Store(ctx.UserContext(), files)
	if err != nil {
		for _, f := range files {
			os.Remove(f.TempPath)
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
}

func (c *documentController) Reindex(ctx *fiber.Ctx) error {
	res, err := c.indexService.IndexDocuments(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success index documents", res))
}
