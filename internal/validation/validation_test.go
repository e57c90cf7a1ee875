package validation_test

import (
	"strings"
	"testing"
	"time"

	"github.com/SergeiKhy/shorturls/internal/apperr"
	"github.com/SergeiKhy/shorturls/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// TestValidateURL_Valid проверяет, что публичные http/https URL принимаются
func TestValidateURL_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com", "https://example.com"},
		{"http://example.com/path?q=1", "http://example.com/path?q=1"},
		{"example.com/page", "https://example.com/page"},
		{"  https://sub.example.org  ", "https://sub.example.org"},
		{"HTTPS://Example.com", "HTTPS://Example.com"},
		{"https://8.8.8.8/dns", "https://8.8.8.8/dns"},
		{"https://172.32.0.1", "https://172.32.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := validation.ValidateURL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestValidateURL_LengthCountsCharacters длина считается в символах, а не в байтах
func TestValidateURL_LengthCountsCharacters(t *testing.T) {
	prefix := "https://example.com/"

	atLimit := prefix + strings.Repeat("é", validation.MaxURLLength-len(prefix))
	require.Greater(t, len(atLimit), validation.MaxURLLength)

	_, err := validation.ValidateURL(atLimit)
	require.NoError(t, err)

	_, err = validation.ValidateURL(atLimit + "é")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot exceed 2048")
}

// TestValidateURL_PrivateHosts проверяет отклонение localhost и приватных сетей
func TestValidateURL_PrivateHosts(t *testing.T) {
	hosts := []string{
		"localhost",
		"127.0.0.1",
		"10.0.0.1",
		"192.168.1.1",
		"172.20.0.1",
		"172.16.0.1",
		"172.31.255.255",
		"169.254.1.1",
		"[::1]",
		"api.localhost",
	}

	for _, host := range hosts {
		t.Run(host, func(t *testing.T) {
			_, err := validation.ValidateURL("http://" + host + "/admin")
			require.Error(t, err)
			assert.ErrorIs(t, err, validation.ErrInvalidURL)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Contains(t, err.Error(), "private networks")
		})
	}
}

// TestValidateURL_Invalid проверяет отклонение некорректного ввода
func TestValidateURL_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"empty", "", "URL is required"},
		{"too long", "https://example.com/" + strings.Repeat("a", 2048), "cannot exceed 2048"},
		{"ftp protocol", "ftp://example.com/file", "Only HTTP and HTTPS"},
		{"javascript protocol", "javascript://alert(1)", "Only HTTP and HTTPS"},
		{"whitespace only", "   ", "Invalid URL format"},
		{"space in host", "https://exa mple.com", "Invalid URL format"},
		{"no host", "https://", "Invalid URL format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validation.ValidateURL(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, validation.ErrInvalidURL)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidateURL_MaxLengthBoundary(t *testing.T) {
	prefix := "https://example.com/"
	exact := prefix + strings.Repeat("a", validation.MaxURLLength-len(prefix))

	_, err := validation.ValidateURL(exact)
	assert.NoError(t, err)

	_, err = validation.ValidateURL(exact + "a")
	assert.Error(t, err)
}

// TestValidateValidity проверяет границы срока жизни
func TestValidateValidity(t *testing.T) {
	got, err := validation.ValidateValidity(nil)
	require.NoError(t, err)
	assert.Equal(t, 30, got)

	for _, v := range []int{1, 2, 30, 1440, 525599, 525600} {
		got, err := validation.ValidateValidity(intPtr(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	for _, v := range []int{-5, 0, 525601, 1_000_000} {
		_, err := validation.ValidateValidity(intPtr(v))
		require.Error(t, err, "validity %d", v)
		assert.ErrorIs(t, err, validation.ErrInvalidValidity)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
}

func TestCalculateExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(30*time.Minute), validation.CalculateExpiry(30, now))
	assert.Equal(t, now.Add(365*24*time.Hour), validation.CalculateExpiry(525600, now))
}

// TestIsExpired_RoundTrip проверяет границы истечения относительно срока жизни
func TestIsExpired_RoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, m := range []int{1, 30, 90} {
		expiresAt := validation.CalculateExpiry(m, created)

		assert.False(t, validation.IsExpired(expiresAt, created.Add(time.Duration(m-1)*time.Minute)))
		assert.False(t, validation.IsExpired(expiresAt, expiresAt), "equality is not expired")
		assert.True(t, validation.IsExpired(expiresAt, created.Add(time.Duration(m+1)*time.Minute)))
	}
}
