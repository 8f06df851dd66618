package uploads

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Minimal valid PNG header, enough for content sniffing.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func upload(t *testing.T, h *Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.Upload(w, req)
	return w
}

func decodeUpload(t *testing.T, w *httptest.ResponseRecorder) uploadResponse {
	t.Helper()
	var resp uploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestUploadSuccess(t *testing.T) {
	client := &fakeS3{}
	handler := NewHandler(NewStore(client, "harborgate-uploads", nil), 1<<20, nil, nil)

	body, contentType := multipartBody(t, map[string][]byte{"diagram.png": pngBytes})
	w := upload(t, handler, body, contentType)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	resp := decodeUpload(t, w)
	if !resp.Success || len(resp.Data) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.HasPrefix(resp.Data[0].Key, "uploads/") {
		t.Errorf("unexpected key %q", resp.Data[0].Key)
	}
	// Form parts carry application/octet-stream, so the real type is sniffed.
	if resp.Data[0].ContentType != "image/png" {
		t.Errorf("expected sniffed image/png, got %q", resp.Data[0].ContentType)
	}
}

func TestUploadMultipleFiles(t *testing.T) {
	client := &fakeS3{}
	handler := NewHandler(NewStore(client, "harborgate-uploads", nil), 1<<20, nil, nil)

	body, contentType := multipartBody(t, map[string][]byte{
		"one.png": pngBytes,
		"two.png": pngBytes,
	})
	w := upload(t, handler, body, contentType)

	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if resp := decodeUpload(t, w); len(resp.Data) != 2 {
		t.Errorf("expected 2 stored objects, got %d", len(resp.Data))
	}
	if len(client.puts) != 2 {
		t.Errorf("expected 2 puts, got %d", len(client.puts))
	}
}

func TestUploadNoFile(t *testing.T) {
	handler := NewHandler(NewStore(&fakeS3{}, "harborgate-uploads", nil), 1<<20, nil, nil)

	body, contentType := multipartBody(t, nil)
	w := upload(t, handler, body, contentType)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decodeUpload(t, w); resp.Success || resp.Error == "" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestUploadTooLarge(t *testing.T) {
	client := &fakeS3{}
	handler := NewHandler(NewStore(client, "harborgate-uploads", nil), 16, nil, nil)

	body, contentType := multipartBody(t, map[string][]byte{"big.bin": make([]byte, 64)})
	w := upload(t, handler, body, contentType)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(client.puts) != 0 {
		t.Error("oversized file must not reach storage")
	}
}

func TestUploadStorageDisabled(t *testing.T) {
	handler := NewHandler(NewStore(nil, "", nil), 1<<20, nil, nil)

	body, contentType := multipartBody(t, map[string][]byte{"a.txt": []byte("hello")})
	w := upload(t, handler, body, contentType)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestUploadStorageFailure(t *testing.T) {
	handler := NewHandler(NewStore(&fakeS3{putErr: errors.New("slow down")}, "harborgate-uploads", nil), 1<<20, nil, nil)

	body, contentType := multipartBody(t, map[string][]byte{"a.txt": []byte("hello")})
	w := upload(t, handler, body, contentType)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "slow down") {
		t.Error("internal error detail leaked to caller")
	}
}

func TestUploadNotMultipart(t *testing.T) {
	handler := NewHandler(NewStore(&fakeS3{}, "harborgate-uploads", nil), 1<<20, nil, nil)

	w := upload(t, handler, bytes.NewBufferString(`{"file":"nope"}`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
