// Package geo определяет грубый регион по IP-адресу клиента.
// Таблица статическая, внешние GeoIP-сервисы не используются.
package geo

import (
	"net"
	"strings"
)

// Значения региона
const (
	LocalNetwork = "Local/Private Network"
	Unknown      = "Unknown"
)

type octetRange struct {
	from, to byte
	region   string
}

// Диапазоны первого октета; всё выше 230 относится к Oceania
var regions = []octetRange{
	{1, 50, "North America"},
	{51, 100, "Europe"},
	{101, 150, "Asia"},
	{151, 200, "South America"},
	{201, 230, "Africa"},
}

// Lookup возвращает регион для IP-адреса
func Lookup(ip string) string {
	clean := cleanIP(ip)

	if clean == "" || clean == "localhost" {
		return LocalNetwork
	}

	parsed := net.ParseIP(clean)
	if parsed != nil && (parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast()) {
		return LocalNetwork
	}

	if parsed == nil || parsed.To4() == nil || strings.Contains(clean, ":") {
		return Unknown
	}

	first := parsed.To4()[0]
	for _, r := range regions {
		if first >= r.from && first <= r.to {
			return r.region
		}
	}

	return "Oceania"
}

// cleanIP убирает префикс IPv4-mapped адреса и порт
func cleanIP(ip string) string {
	ip = strings.TrimSpace(ip)
	ip = strings.TrimPrefix(ip, "::ffff:")

	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}

	return ip
}
