package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

// encodePNG кодирует тестовое изображение с прозрачностью.
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Половина пикселей полупрозрачная
			a := uint8(255)
			if x%2 == 0 {
				a = 128
			}
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: a})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestIngestor_Ingest(t *testing.T) {
	data := encodePNG(t, 16, 24)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	workDir := t.TempDir()
	ing := New(workDir, nil)

	canonicalPath, err := ing.Ingest(context.Background(), srv.URL+"/grid.png")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if !strings.HasSuffix(canonicalPath, ".jpg") {
		t.Errorf("canonical path = %q, want .jpg suffix", canonicalPath)
	}
	if filepath.Dir(canonicalPath) != filepath.Join(workDir, "canonical") {
		t.Errorf("canonical dir = %q, want %q", filepath.Dir(canonicalPath), filepath.Join(workDir, "canonical"))
	}

	// Канонический файл читается и сохранил размеры
	img, err := imaging.Open(canonicalPath)
	if err != nil {
		t.Fatalf("canonical file unreadable: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 24 {
		t.Errorf("canonical size = %dx%d, want 16x24", img.Bounds().Dx(), img.Bounds().Dy())
	}

	// Исходный временный файл удалён
	entries, err := os.ReadDir(filepath.Join(workDir, "input"))
	if err != nil {
		t.Fatalf("input dir unreadable: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("input dir has %d files, want 0", len(entries))
	}
}

func TestIngestor_IngestBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ing := New(t.TempDir(), nil)

	_, err := ing.Ingest(context.Background(), srv.URL+"/missing.png")
	if err == nil {
		t.Fatal("Ingest() on 404 should fail")
	}

	var ingErr *Error
	if !errors.As(err, &ingErr) {
		t.Fatalf("error = %T, want *Error", err)
	}
}

func TestIngestor_IngestNotAnImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("definitely not an image"))
	}))
	defer srv.Close()

	ing := New(t.TempDir(), nil)

	if _, err := ing.Ingest(context.Background(), srv.URL+"/junk.png"); err == nil {
		t.Error("Ingest() of non-image should fail")
	}
}

func TestRefExt(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://cdn.example.com/a.png", ".png"},
		{"https://cdn.example.com/a.JPG", ".jpg"},
		{"https://cdn.example.com/a.jpeg?width=100", ".jpeg"},
		{"https://cdn.example.com/a.webp#frag", ".webp"},
		{"https://cdn.example.com/a", ".img"},
		{"https://cdn.example.com/a.exe", ".img"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := refExt(tt.ref); got != tt.want {
				t.Errorf("refExt(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestResolution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.jpg")

	img := imaging.New(40, 30, color.White)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("imaging.Save() error = %v", err)
	}

	res, err := Resolution(path)
	if err != nil {
		t.Fatalf("Resolution() error = %v", err)
	}
	if res != "40x30" {
		t.Errorf("Resolution() = %q, want %q", res, "40x30")
	}
}

func TestResolution_Unreadable(t *testing.T) {
	if _, err := Resolution(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("Resolution() for missing file should fail")
	}
}
