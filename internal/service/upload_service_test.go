package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "DOCUMENT_UPLOADED"

func newTestPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStoreMovesFileAndQueuesIndexing(t *testing.T) {
	uploads := t.TempDir()
	documents := filepath.Join(t.TempDir(), "documents")
	tmp := writeTemp(t, uploads, "upload-123", "hello world")

	pubSub := newTestPubSub()
	defer pubSub.Close()
	messages, err := pubSub.Subscribe(context.Background(), testTopic)
	require.NoError(t, err)

	svc := NewUploadService(documents, NewPublisherService(testTopic, pubSub), logger.NewNopLogger())
	res, err := svc.Store(context.Background(), []UploadedFile{{FileName: "notes.txt", TempPath: tmp, Size: 11}})
	require.NoError(t, err)
	assert.Equal(t, "File uploaded: notes.txt", res.Message)
	require.Len(t, res.Files, 1)

	target := filepath.Join(documents, "notes.txt")
	assert.Equal(t, target, res.Files[0].Path)
	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))

	select {
	case msg := <-messages:
		var payload dto.PublishDocumentUploadedMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, target, payload.Path)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no upload message published")
	}
}

func TestStoreStripsDirectoriesFromFileName(t *testing.T) {
	uploads := t.TempDir()
	documents := t.TempDir()
	tmp := writeTemp(t, uploads, "upload-1", "x")

	svc := NewUploadService(documents, NewPublisherService(testTopic, newTestPubSub()), logger.NewNopLogger())
	res, err := svc.Store(context.Background(), []UploadedFile{{FileName: "../../etc/passwd", TempPath: tmp}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(documents, "passwd"), res.Files[0].Path)
}

func TestStoreRejectsInvalidInput(t *testing.T) {
	svc := NewUploadService(t.TempDir(), NewPublisherService(testTopic, newTestPubSub()), logger.NewNopLogger())

	tests := []struct {
		name  string
		files []UploadedFile
	}{
		{name: "no files", files: nil},
		{name: "blank name", files: []UploadedFile{{FileName: "  ", TempPath: "x"}}},
		{name: "hidden file", files: []UploadedFile{{FileName: ".env", TempPath: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Store(context.Background(), tt.files)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
		})
	}
}

func TestStoreMissingTempFileIsIndexingError(t *testing.T) {
	svc := NewUploadService(t.TempDir(), NewPublisherService(testTopic, newTestPubSub()), logger.NewNopLogger())

	_, err := svc.Store(context.Background(), []UploadedFile{{FileName: "a.txt", TempPath: filepath.Join(t.TempDir(), "missing")}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrIndexing))
}
