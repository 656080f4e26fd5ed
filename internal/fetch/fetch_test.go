package fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownloadTo_WritesFile(t *testing.T) {
	content := []byte("Hello, World!")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "test.txt")

	f := New()
	if err := f.DownloadTo(context.Background(), server.URL, target); err != nil {
		t.Fatalf("DownloadTo: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("content = %q, want %q", data, content)
	}

	// No leftover temp file.
	if _, err := os.Stat(target + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("expected no leftover .tmp file")
	}
}

func TestDownloadTo_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "test.txt")

	f := &Fetcher{httpClient: server.Client()}
	if err := f.DownloadTo(context.Background(), server.URL, target); err == nil {
		t.Error("expected error for 404 response")
	}
	if Exists(target) {
		t.Error("expected no file to be written on failure")
	}
}

func TestDownloadTo_OverwritesExisting(t *testing.T) {
	content := []byte("new content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "test.txt")
	os.WriteFile(target, []byte("stale content that is longer"), 0o644)

	f := &Fetcher{httpClient: server.Client()}
	if err := f.DownloadTo(context.Background(), server.URL, target); err != nil {
		t.Fatalf("DownloadTo: %v", err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != string(content) {
		t.Errorf("content = %q, want %q", data, content)
	}
}

func TestSHA1(t *testing.T) {
	content := []byte("some content")
	want := sha1.Sum(content)
	wantHex := hex.EncodeToString(want[:])

	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	os.WriteFile(path, content, 0o644)

	got, err := SHA1(path)
	if err != nil {
		t.Fatalf("SHA1: %v", err)
	}
	if got != wantHex {
		t.Errorf("SHA1 = %q, want %q", got, wantHex)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")

	if Exists(path) {
		t.Error("expected Exists to be false before creation")
	}

	os.WriteFile(path, []byte("x"), 0o644)
	if !Exists(path) {
		t.Error("expected Exists to be true after creation")
	}

	if Exists(dir) {
		t.Error("expected Exists to be false for a directory")
	}
}
