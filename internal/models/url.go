package models

import (
	"time"
)

// ISOTimeFormat формат времени в ответах API (UTC, миллисекунды)
const ISOTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ShortURL запись в таблице urls
type ShortURL struct {
	ID           int64      `json:"id"`
	OriginalURL  string     `json:"original_url"`
	ShortCode    string     `json:"short_code"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	IsActive     bool       `json:"is_active"`
	AccessCount  int64      `json:"access_count"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

// CreateURLInput входные данные сервиса для создания короткой ссылки
type CreateURLInput struct {
	URL       string
	ShortCode *string
	Validity  *int
}

// CreateURLResult ответ на создание короткой ссылки
type CreateURLResult struct {
	ShortLink string `json:"shortLink"`
	Expiry    string `json:"expiry"`
}

// FormatTime форматирует время для ответов API
func FormatTime(t time.Time) string {
	return t.UTC().Format(ISOTimeFormat)
}
