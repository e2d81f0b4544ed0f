// Package blob реализует загрузку файлов в blob-хранилище.
package blob

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Store загружает локальные файлы в бакет и публикует их по постоянным URL.
type Store struct {
	// bucket - хэндл бакета.
	bucket *storage.BucketHandle

	// bucketName - имя бакета (нужно для построения публичного URL).
	bucketName string

	// logger - логгер для диагностики загрузок.
	logger *log.Logger
}

// New создаёт новый Store для указанного бакета.
// Учётные данные берутся из окружения (Application Default Credentials).
func New(ctx context.Context, bucketName string, logger *log.Logger) (*Store, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("не задано имя бакета")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать клиент хранилища: %w", err)
	}

	return &Store{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
		logger:     logger,
	}, nil
}

// Upload загружает локальный файл в бакет и возвращает публичный URL
// и имя объекта. Имя объекта уникально для каждого вызова, поэтому
// повторная загрузка того же файла не перезапишет предыдущий объект.
func (s *Store) Upload(ctx context.Context, localPath, folder, resolution string) (string, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("не удалось открыть файл %s: %w", localPath, err)
	}
	defer f.Close()

	objectName := ObjectName(folder, resolution, filepath.Ext(localPath))

	w := s.bucket.Object(objectName).NewWriter(ctx)
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		w.ContentType = ct
	}

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", "", fmt.Errorf("не удалось записать объект %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", "", fmt.Errorf("не удалось завершить запись объекта %s: %w", objectName, err)
	}

	// Объект публикуется по постоянной ссылке без срока действия.
	acl := s.bucket.Object(objectName).ACL()
	if err := acl.Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", "", fmt.Errorf("не удалось открыть публичный доступ к %s: %w", objectName, err)
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, objectName)

	if s.logger != nil {
		s.logger.Printf("[BLOB] загружен %s -> %s", localPath, objectName)
	}

	return url, objectName, nil
}

// ObjectName строит уникальное имя объекта:
// images/{folder}/{UTC метка}_{folder}_{resolution}_{uuid}{ext}.
// Часть resolution опускается, если она пуста.
func ObjectName(folder, resolution, ext string) string {
	ts := time.Now().UTC().Format("20060102_150405")

	parts := []string{ts, folder}
	if resolution != "" {
		parts = append(parts, resolution)
	}
	parts = append(parts, uuid.New().String())

	if ext == "" {
		ext = ".jpg"
	}

	return fmt.Sprintf("images/%s/%s%s", folder, strings.Join(parts, "_"), ext)
}
