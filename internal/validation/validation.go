package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SergeiKhy/shorturls/internal/apperr"
)

// Ошибки валидации
var (
	ErrInvalidURL      = errors.New("invalid url")
	ErrInvalidValidity = errors.New("invalid validity")
)

// Константы валидации
const (
	MaxURLLength    = 2048
	DefaultValidity = 30     // минут
	MinValidity     = 1      // минут
	MaxValidity     = 525600 // один год в минутах
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// ValidateURL проверяет URL и возвращает его нормализованную форму.
// Без схемы добавляется https://. Разрешены только http и https,
// адреса localhost и приватных сетей отклоняются.
func ValidateURL(input string) (string, error) {
	if input == "" {
		return "", apperr.Validation(ErrInvalidURL, "URL is required and must be a string")
	}

	if utf8.RuneCountInString(input) > MaxURLLength {
		return "", apperr.Validation(ErrInvalidURL, fmt.Sprintf("URL cannot exceed %d characters", MaxURLLength))
	}

	normalized := strings.TrimSpace(input)
	if !schemeRe.MatchString(normalized) {
		normalized = "https://" + normalized
	}

	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Hostname() == "" {
		return "", apperr.Validation(ErrInvalidURL, "Invalid URL format")
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", apperr.Validation(ErrInvalidURL, "Only HTTP and HTTPS protocols are allowed")
	}

	if IsPrivateOrLocalhost(parsed.Hostname()) {
		return "", apperr.Validation(ErrInvalidURL, "URLs pointing to localhost or private networks are not allowed")
	}

	return normalized, nil
}

// IsPrivateOrLocalhost сообщает, указывает ли хост на localhost или приватную сеть
func IsPrivateOrLocalhost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsUnspecified()
}

// ValidateValidity проверяет срок жизни в минутах. nil означает значение по умолчанию.
// Значения вне диапазона отклоняются, а не обрезаются.
func ValidateValidity(minutes *int) (int, error) {
	if minutes == nil {
		return DefaultValidity, nil
	}

	if *minutes < MinValidity {
		return 0, apperr.Validation(ErrInvalidValidity, fmt.Sprintf("Validity must be at least %d minute", MinValidity))
	}

	if *minutes > MaxValidity {
		return 0, apperr.Validation(ErrInvalidValidity, fmt.Sprintf("Validity cannot exceed %d minutes (1 year)", MaxValidity))
	}

	return *minutes, nil
}

// CalculateExpiry возвращает момент истечения: now + validMinutes
func CalculateExpiry(validMinutes int, now time.Time) time.Time {
	return now.Add(time.Duration(validMinutes) * time.Minute)
}

// IsExpired строгое сравнение: в момент expiresAt ссылка ещё действует
func IsExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}
