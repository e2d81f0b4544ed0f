// Package deriv генерирует варианты разрешений канонического изображения
// и загружает их в blob-хранилище.
package deriv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Variant описывает один целевой вариант изображения.
type Variant struct {
	// Type - тип варианта (LD, SD, HD, BL).
	Type string

	// Scale - коэффициент масштабирования.
	Scale float64

	// Blur - сила гауссова размытия (0 = без размытия).
	Blur float64

	// Quality - качество JPEG (0 = качество по умолчанию).
	Quality int
}

// Variants - фиксированная таблица целевых вариантов.
// BL - размытая версия для предпросмотра под блюром.
var Variants = []Variant{
	{Type: "LD", Scale: 0.25},
	{Type: "SD", Scale: 0.50},
	{Type: "HD", Scale: 1.00},
	{Type: "BL", Scale: 0.25, Blur: 32, Quality: 40},
}

// Derivative представляет загруженный вариант изображения.
// Неизменяем после создания.
type Derivative struct {
	// Type - тип варианта.
	Type string

	// Resolution - разрешение в формате "WxH".
	Resolution string

	// Blob - имя объекта в blob-хранилище.
	Blob string

	// URL - публичный URL.
	URL string
}

// Uploader загружает локальный файл в blob-хранилище.
type Uploader interface {
	Upload(ctx context.Context, localPath, folder, resolution string) (url, blobName string, err error)
}

// Generator создаёт и загружает варианты изображения.
type Generator struct {
	// uploader - blob-хранилище.
	uploader Uploader

	// workDir - рабочая директория для промежуточных файлов.
	workDir string

	// logger - логгер.
	logger *log.Logger
}

// NewGenerator создаёт новый Generator.
func NewGenerator(uploader Uploader, workDir string, logger *log.Logger) *Generator {
	return &Generator{
		uploader: uploader,
		workDir:  workDir,
		logger:   logger,
	}
}

// GenerateAll создаёт все варианты из таблицы Variants и загружает каждый
// в blob-хранилище. Ошибка загрузки одного варианта не отменяет уже
// загруженные: возвращается частичный список вместе с накопленной ошибкой.
func (g *Generator) GenerateAll(ctx context.Context, canonicalPath string) ([]Derivative, error) {
	src, err := imaging.Open(canonicalPath)
	if err != nil {
		return nil, fmt.Errorf("нечитаемое каноническое изображение %s: %w", canonicalPath, err)
	}

	derivatives := make([]Derivative, 0, len(Variants))
	var errs []error

	for _, v := range Variants {
		d, err := g.generate(ctx, src, v)
		if err != nil {
			if g.logger != nil {
				g.logger.Printf("[DERIV] вариант %s: %v", v.Type, err)
			}
			errs = append(errs, fmt.Errorf("вариант %s: %w", v.Type, err))
			continue
		}
		derivatives = append(derivatives, d)
	}

	return derivatives, errors.Join(errs...)
}

// generate создаёт один вариант: масштабирование, опциональное размытие,
// загрузка и удаление промежуточного файла.
func (g *Generator) generate(ctx context.Context, src image.Image, v Variant) (Derivative, error) {
	w, h := TargetSize(src.Bounds().Dx(), src.Bounds().Dy(), v.Scale)
	if w < 1 || h < 1 {
		return Derivative{}, fmt.Errorf("вырожденное разрешение %dx%d", w, h)
	}

	img := imaging.Resize(src, w, h, imaging.Lanczos)
	if v.Blur > 0 {
		img = imaging.Blur(img, v.Blur)
	}

	resolution := fmt.Sprintf("%dx%d", w, h)

	derivedDir := filepath.Join(g.workDir, "derived")
	if err := os.MkdirAll(derivedDir, 0755); err != nil {
		return Derivative{}, err
	}

	localPath := filepath.Join(derivedDir,
		fmt.Sprintf("%s_%s_%s.jpg", v.Type, resolution, uuid.New().String()[:8]))

	var opts []imaging.EncodeOption
	if v.Quality > 0 {
		opts = append(opts, imaging.JPEGQuality(v.Quality))
	}

	if err := imaging.Save(img, localPath, opts...); err != nil {
		return Derivative{}, fmt.Errorf("не удалось сохранить: %w", err)
	}

	url, blobName, err := g.uploader.Upload(ctx, localPath, v.Type, resolution)
	if err != nil {
		_ = os.Remove(localPath)
		return Derivative{}, fmt.Errorf("не удалось загрузить: %w", err)
	}

	// Промежуточный файл нужен только до успешной загрузки.
	if err := os.Remove(localPath); err != nil && g.logger != nil {
		g.logger.Printf("[DERIV] не удалось удалить %s: %v", localPath, err)
	}

	return Derivative{
		Type:       v.Type,
		Resolution: resolution,
		Blob:       blobName,
		URL:        url,
	}, nil
}

// TargetSize возвращает целевое разрешение floor(w*scale) x floor(h*scale).
func TargetSize(w, h int, scale float64) (int, int) {
	return int(float64(w) * scale), int(float64(h) * scale)
}
