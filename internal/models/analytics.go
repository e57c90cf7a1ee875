package models

import (
	"time"
)

// Значение по умолчанию для отсутствующих данных клиента
const UnknownValue = "Unknown"

// AccessRecord запись в таблице analytics, одна на каждый успешный переход
type AccessRecord struct {
	ID         int64     `json:"id"`
	ShortCode  string    `json:"short_code"`
	AccessedAt time.Time `json:"accessed_at"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	Referrer   string    `json:"referrer"`
	Location   string    `json:"location"`
}

// ClientInfo данные клиента, извлечённые из запроса
type ClientInfo struct {
	IP        string
	UserAgent string
	Referrer  string
}

// URLStats статистика по короткой ссылке
type URLStats struct {
	ShortCode   string      `json:"shortCode"`
	OriginalURL string      `json:"originalUrl"`
	CreatedAt   string      `json:"createdAt"`
	ExpiresAt   string      `json:"expiresAt"`
	TotalClicks int64       `json:"totalClicks"`
	ClickData   []ClickData `json:"clickData"`
}

// ClickData один переход в статистике
type ClickData struct {
	Timestamp string  `json:"timestamp"`
	Referrer  *string `json:"referrer"`
	Location  string  `json:"location"`
	IPAddress string  `json:"ipAddress"`
	UserAgent string  `json:"userAgent"`
}

// NewClickData строит элемент статистики из записи аналитики
func NewClickData(r AccessRecord) ClickData {
	cd := ClickData{
		Timestamp: FormatTime(r.AccessedAt),
		Location:  orUnknown(r.Location),
		IPAddress: orUnknown(r.IPAddress),
		UserAgent: orUnknown(r.UserAgent),
	}

	if r.Referrer != "" {
		ref := r.Referrer
		cd.Referrer = &ref
	}

	return cd
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownValue
	}
	return s
}
