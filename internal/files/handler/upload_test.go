package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"medportal/pkg/logger"
)

type mockStorage struct {
	putFunc func(ctx context.Context, key, contentType string, body io.Reader) error
}

func (m *mockStorage) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if m.putFunc == nil {
		return nil
	}
	return m.putFunc(ctx, key, contentType, body)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT})
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := part.Write([]byte("report contents")); err != nil {
			t.Fatalf("failed to write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, httptest.NewRecorder()
}

func TestUpload_GeneratesSessionIDWhenAbsent(t *testing.T) {
	var storedKey string
	store := &mockStorage{
		putFunc: func(ctx context.Context, key, contentType string, body io.Reader) error {
			storedKey = key
			return nil
		},
	}

	h := NewUploadHandler(store, 1<<20, testLogger())
	req, rec := multipartUpload(t, map[string]string{"userId": "u1"}, "report.pdf")
	h.Upload(rec, req, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.FileID == "" {
		t.Errorf("unexpected response %+v", resp)
	}
	if !strings.HasPrefix(resp.SessionID, "session_") {
		t.Errorf("expected generated session id, got %q", resp.SessionID)
	}
	if !strings.HasPrefix(storedKey, "uploads/u1/") || !strings.HasSuffix(storedKey, "/report.pdf") {
		t.Errorf("unexpected storage key %q", storedKey)
	}
}

func TestUpload_KeepsProvidedSessionID(t *testing.T) {
	h := NewUploadHandler(&mockStorage{}, 1<<20, testLogger())
	req, rec := multipartUpload(t, map[string]string{"userId": "u1", "sessionId": "s42"}, "scan.png")
	h.Upload(rec, req, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != "s42" {
		t.Errorf("expected provided session id echoed back, got %q", resp.SessionID)
	}
}

func TestUpload_MissingUserIDIsRejected(t *testing.T) {
	h := NewUploadHandler(&mockStorage{}, 1<<20, testLogger())
	req, rec := multipartUpload(t, map[string]string{"sessionId": "s1"}, "scan.png")
	h.Upload(rec, req, nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}
