// Package ingest отвечает за приём доставленных изображений:
// скачивание, проверку и нормализацию в канонический формат.
package ingest

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Канонический формат - JPEG: производные всегда считаются от него.
const canonicalExt = ".jpg"

// Error представляет ошибку приёма изображения.
type Error struct {
	// URL - источник изображения.
	URL string

	// Message - описание стадии, на которой произошла ошибка.
	Message string

	// Cause - исходная ошибка.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ошибка приёма %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("ошибка приёма %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Ingestor скачивает и нормализует изображения.
type Ingestor struct {
	// workDir - рабочая директория (внутри создаются input/ и canonical/).
	workDir string

	// http - HTTP клиент с таймаутом скачивания.
	http *http.Client

	// logger - логгер.
	logger *log.Logger
}

// New создаёт новый Ingestor.
func New(workDir string, logger *log.Logger) *Ingestor {
	return &Ingestor{
		workDir: workDir,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Ingest скачивает изображение по ссылке, нормализует его в канонический
// JPEG и возвращает локальный путь к каноническому файлу.
// Исходный временный файл удаляется после конвертации.
func (i *Ingestor) Ingest(ctx context.Context, remoteRef string) (string, error) {
	rawPath, err := i.download(ctx, remoteRef)
	if err != nil {
		return "", err
	}

	canonicalPath, err := i.normalize(rawPath)
	if err != nil {
		_ = os.Remove(rawPath)
		return "", &Error{URL: remoteRef, Message: "нормализация", Cause: err}
	}

	if i.logger != nil {
		i.logger.Printf("[INGEST] %s -> %s", remoteRef, canonicalPath)
	}

	return canonicalPath, nil
}

// download скачивает файл во входную директорию под устойчивым к
// коллизиям именем (метка времени + случайный идентификатор).
func (i *Ingestor) download(ctx context.Context, remoteRef string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteRef, nil)
	if err != nil {
		return "", &Error{URL: remoteRef, Message: "некорректная ссылка", Cause: err}
	}

	resp, err := i.http.Do(req)
	if err != nil {
		return "", &Error{URL: remoteRef, Message: "скачивание", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{URL: remoteRef, Message: fmt.Sprintf("статус %d", resp.StatusCode)}
	}

	inputDir := filepath.Join(i.workDir, "input")
	if err := os.MkdirAll(inputDir, 0755); err != nil {
		return "", &Error{URL: remoteRef, Message: "рабочая директория", Cause: err}
	}

	name := fmt.Sprintf("%s_%s%s",
		time.Now().UTC().Format("20060102_150405"),
		uuid.New().String()[:8],
		refExt(remoteRef),
	)
	rawPath := filepath.Join(inputDir, name)

	f, err := os.Create(rawPath)
	if err != nil {
		return "", &Error{URL: remoteRef, Message: "создание файла", Cause: err}
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(rawPath)
		return "", &Error{URL: remoteRef, Message: "запись файла", Cause: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(rawPath)
		return "", &Error{URL: remoteRef, Message: "запись файла", Cause: err}
	}

	return rawPath, nil
}

// normalize приводит файл к каноническому JPEG.
// Прозрачность сводится на непрозрачный белый фон.
func (i *Ingestor) normalize(rawPath string) (string, error) {
	img, err := imaging.Open(rawPath)
	if err != nil {
		return "", fmt.Errorf("нечитаемое изображение: %w", err)
	}

	canonicalDir := filepath.Join(i.workDir, "canonical")
	if err := os.MkdirAll(canonicalDir, 0755); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(rawPath), filepath.Ext(rawPath))
	canonicalPath := filepath.Join(canonicalDir, base+canonicalExt)

	// JPEG не умеет прозрачность: сводим на белый фон.
	flat := flatten(img)

	if err := imaging.Save(flat, canonicalPath); err != nil {
		return "", fmt.Errorf("не удалось сохранить канонический файл: %w", err)
	}

	// Исходник больше не нужен.
	if err := os.Remove(rawPath); err != nil && i.logger != nil {
		i.logger.Printf("[INGEST] не удалось удалить %s: %v", rawPath, err)
	}

	return canonicalPath, nil
}

// flatten сводит изображение на непрозрачный белый фон.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	bg := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// refExt извлекает расширение файла из ссылки.
// Неизвестные расширения заменяются на .img до нормализации.
func refExt(remoteRef string) string {
	clean := remoteRef
	if idx := strings.IndexAny(clean, "?#"); idx >= 0 {
		clean = clean[:idx]
	}

	switch ext := strings.ToLower(path.Ext(clean)); ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return ext
	default:
		return ".img"
	}
}

// Resolution возвращает разрешение изображения в формате "WxH".
func Resolution(localPath string) (string, error) {
	img, err := imaging.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("нечитаемое изображение %s: %w", localPath, err)
	}

	b := img.Bounds()
	return fmt.Sprintf("%dx%d", b.Dx(), b.Dy()), nil
}
