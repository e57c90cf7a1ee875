package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/shorturls/internal/models"
	"github.com/SergeiKhy/shorturls/internal/repository"
)

// MockURLRepository implements repository.URLRepository for testing
type MockURLRepository struct {
	mu     sync.RWMutex
	urls   map[string]*models.ShortURL
	nextID int64

	// Ошибки, которые вернут соответствующие методы
	CreateErr     error
	GetErr        error
	ExistsErr     error
	UpdateErr     error
	DeactivateErr error

	// ExistsOverride подменяет ответ CodeExists (для моделирования гонок)
	ExistsOverride func(code string) (bool, bool)

	DeactivateCalls int
}

func NewMockURLRepository() *MockURLRepository {
	return &MockURLRepository{
		urls:   make(map[string]*models.ShortURL),
		nextID: 1,
	}
}

func (m *MockURLRepository) Create(ctx context.Context, url *models.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}

	if _, exists := m.urls[url.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	url.ID = m.nextID
	m.nextID++
	stored := *url
	m.urls[url.ShortCode] = &stored
	return nil
}

func (m *MockURLRepository) GetByShortCode(ctx context.Context, code string) (*models.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	url, exists := m.urls[code]
	if !exists {
		return nil, repository.ErrURLNotFound
	}
	cp := *url
	return &cp, nil
}

func (m *MockURLRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}

	if m.ExistsOverride != nil {
		if exists, ok := m.ExistsOverride(code); ok {
			return exists, nil
		}
	}

	_, exists := m.urls[code]
	return exists, nil
}

func (m *MockURLRepository) UpdateAccessInfo(ctx context.Context, code string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateErr != nil {
		return m.UpdateErr
	}

	url, exists := m.urls[code]
	if !exists {
		return repository.ErrURLNotFound
	}
	url.AccessCount++
	accessed := at
	url.LastAccessed = &accessed
	return nil
}

func (m *MockURLRepository) Deactivate(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeactivateCalls++
	if m.DeactivateErr != nil {
		return m.DeactivateErr
	}

	url, exists := m.urls[code]
	if !exists {
		return repository.ErrURLNotFound
	}
	url.IsActive = false
	return nil
}

// Put сохраняет запись напрямую, минуя проверки
func (m *MockURLRepository) Put(url *models.ShortURL) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *url
	m.urls[url.ShortCode] = &cp
}

// Get возвращает сохранённую запись без ошибок
func (m *MockURLRepository) Get(code string) (*models.ShortURL, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	url, ok := m.urls[code]
	if !ok {
		return nil, false
	}
	cp := *url
	return &cp, true
}

func (m *MockURLRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = make(map[string]*models.ShortURL)
	m.nextID = 1
}

// MockAnalyticsRepository implements repository.AnalyticsRepository for testing
type MockAnalyticsRepository struct {
	mu      sync.RWMutex
	records []models.AccessRecord
	nextID  int64

	RecordErr error
	ListErr   error
}

func NewMockAnalyticsRepository() *MockAnalyticsRepository {
	return &MockAnalyticsRepository{nextID: 1}
}

func (m *MockAnalyticsRepository) Record(ctx context.Context, record *models.AccessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RecordErr != nil {
		return m.RecordErr
	}

	record.ID = m.nextID
	m.nextID++
	if record.Location == "" {
		record.Location = models.UnknownValue
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *MockAnalyticsRepository) ListByShortCode(ctx context.Context, code string) ([]models.AccessRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	var out []models.AccessRecord
	for _, rec := range m.records {
		if rec.ShortCode == code {
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AccessedAt.Equal(out[j].AccessedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].AccessedAt.After(out[j].AccessedAt)
	})

	return out, nil
}

// Count возвращает число записей для кода
func (m *MockAnalyticsRepository) Count(code string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, rec := range m.records {
		if rec.ShortCode == code {
			n++
		}
	}
	return n
}

func (m *MockAnalyticsRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.nextID = 1
}
