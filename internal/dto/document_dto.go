package dto

// PublishDocumentUploadedMessage is the payload of the upload topic
type PublishDocumentUploadedMessage struct {
	Path string `json:"path"`
}

type UploadedFileResponse struct {
	FileName string `json:"fileName"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

type UploadResponse struct {
	Message string                 `json:"message"`
	Files   []UploadedFileResponse `json:"files"`
}

type IndexSummaryResponse struct {
	Directory string   `json:"directory"`
	Indexed   int      `json:"indexed"`
	Skipped   int      `json:"skipped"`
	Ignored   int      `json:"ignored"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}
