// Package catalog реализует клиент сервиса каталога.
package catalog

import (
	"fmt"
)

// ImageRef описывает один вариант изображения в каталожной записи.
// Создаётся генератором производных и далее не изменяется.
type ImageRef struct {
	// Type - тип варианта (LD, SD, HD, BL).
	Type string `json:"type"`

	// Resolution - разрешение в формате "WxH".
	Resolution string `json:"resolution"`

	// Link - публичный URL в blob-хранилище.
	Link string `json:"link"`

	// Blob - имя объекта в blob-хранилище.
	Blob string `json:"blob"`
}

// DownloadRef описывает один элемент списка загрузок.
type DownloadRef struct {
	// Size - разрешение файла в формате "WxH".
	Size string `json:"size"`

	// Ext - расширение файла без точки.
	Ext string `json:"ext"`

	// Link - ссылка на файл.
	Link string `json:"link"`
}

// Entry представляет каталожную запись.
// Создаётся один раз на успешно завершённый прогон конвейера.
type Entry struct {
	// ItemID - идентификатор записи. Пустой при создании:
	// сервис каталога назначает его сам.
	ItemID string `json:"itemId"`

	// Name - заголовок записи.
	Name string `json:"name"`

	// Price - цена.
	Price float64 `json:"price"`

	// FreeDownload - доступна ли бесплатная загрузка.
	FreeDownload bool `json:"freeDownload"`

	// Stars - рейтинг (1-5).
	Stars int `json:"stars"`

	// PhotoType - тип фотографии (например, "static").
	PhotoType string `json:"photoType"`

	// Tags - список тегов.
	Tags []string `json:"tags"`

	// SizeOptions - доступные размеры.
	SizeOptions []string `json:"sizeOptions"`

	// Thumbnail - ссылка на миниатюру.
	Thumbnail string `json:"thumbnail"`

	// Preview - ссылка на превью.
	Preview string `json:"preview"`

	// ImageList - упорядоченный список вариантов изображения.
	ImageList []ImageRef `json:"imageList"`

	// DownloadList - список загрузок (размер/расширение/ссылка).
	DownloadList []DownloadRef `json:"downloadList"`
}

// Item представляет каталожную запись в ответе списка.
// Используется командой backfill для поиска устаревших записей.
type Item struct {
	// ItemID - идентификатор записи.
	ItemID string `json:"itemId"`

	// Name - заголовок записи.
	Name string `json:"name"`

	// Thumbnail - ссылка на миниатюру.
	Thumbnail string `json:"thumbnail"`

	// ImageList - текущий список вариантов изображения.
	ImageList []ImageRef `json:"imageList"`
}

// Validate проверяет, что запись содержит все обязательные поля
// перед сериализацией.
func (e *Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("не задан заголовок записи")
	}

	if e.Thumbnail == "" {
		return fmt.Errorf("не задана миниатюра")
	}

	if e.Price < 0 {
		return fmt.Errorf("некорректная цена: %v", e.Price)
	}

	if e.Stars < 1 || e.Stars > 5 {
		return fmt.Errorf("некорректный рейтинг: %d (допустимо 1-5)", e.Stars)
	}

	if e.PhotoType == "" {
		return fmt.Errorf("не задан тип фотографии")
	}

	if len(e.DownloadList) == 0 {
		return fmt.Errorf("пустой список загрузок")
	}

	for i, d := range e.DownloadList {
		if d.Link == "" {
			return fmt.Errorf("пустая ссылка в списке загрузок (элемент %d)", i)
		}
		if d.Size == "" {
			return fmt.Errorf("пустой размер в списке загрузок (элемент %d)", i)
		}
	}

	return nil
}
