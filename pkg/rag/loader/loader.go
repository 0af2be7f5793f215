package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gabriel-vasile/mimetype"
)

// Document is parsed text plus the metadata stored alongside its embeddings.
type Document struct {
	Text     string
	Metadata map[string]interface{}
}

// ErrUnsupported is returned for content that is not text.
type ErrUnsupported struct {
	Path string
	MIME string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported document type %s: %s", e.MIME, e.Path)
}

var textTypes = []string{"text/plain", "application/json", "text/csv", "text/xml", "application/xml"}

// Parse turns raw file bytes into text. HTML is converted to Markdown so the
// markup does not pollute embeddings.
func Parse(path string, data []byte) (*Document, error) {
	mtype := mimetype.Detect(data)

	var text string
	switch {
	case mtype.Is("text/html"):
		md, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return nil, fmt.Errorf("convert html: %w", err)
		}
		text = md
	case isText(mtype):
		if !utf8.Valid(data) {
			return nil, &ErrUnsupported{Path: path, MIME: mtype.String()}
		}
		text = string(data)
	default:
		return nil, &ErrUnsupported{Path: path, MIME: mtype.String()}
	}

	return &Document{
		Text: strings.TrimSpace(text),
		Metadata: map[string]interface{}{
			"file_name":     filepath.Base(path),
			"absolute_path": absPath(path),
			"mime_type":     mtype.String(),
		},
	}, nil
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		for _, t := range textTypes {
			if m.Is(t) {
				return true
			}
		}
	}
	return false
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
