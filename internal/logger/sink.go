package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Константы worker pool
const (
	defaultWorkerCount   = 2
	defaultChannelBuffer = 1000
	defaultTimeout       = 5 * time.Second
)

// Stack значение поля stack в удалённых логах
const Stack = "backend"

// Entry тело запроса к сборщику логов
type Entry struct {
	Stack   string `json:"stack"`
	Level   string `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
}

// RemoteConfig настройки удалённого сборщика логов
type RemoteConfig struct {
	URL         string
	Token       string
	WorkerCount int
	BufferSize  int
	Timeout     time.Duration
}

// RemoteSink асинхронно отправляет записи логов по HTTP.
// Запрос никогда не блокируется: при заполненном буфере запись теряется.
type RemoteSink struct {
	url      string
	token    string
	client   *http.Client
	fallback *zap.Logger

	entries     chan Entry
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRemoteSink создаёт сборщик; ошибки отправки пишутся только в fallback
func NewRemoteSink(cfg RemoteConfig, fallback *zap.Logger) *RemoteSink {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultChannelBuffer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &RemoteSink{
		url:         cfg.URL,
		token:       cfg.Token,
		client:      &http.Client{Timeout: cfg.Timeout},
		fallback:    fallback,
		entries:     make(chan Entry, cfg.BufferSize),
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start запускает worker pool
func (s *RemoteSink) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// Stop останавливает воркеров, предварительно отправив накопленные записи
func (s *RemoteSink) Stop() {
	s.cancel()
	s.wg.Wait()

	if n := s.dropped.Load(); n > 0 {
		s.fallback.Warn("Remote log entries dropped", zap.Int64("count", n))
	}
}

// Enqueue ставит запись в очередь (неблокирующая операция)
func (s *RemoteSink) Enqueue(e Entry) bool {
	if s.ctx.Err() != nil {
		s.dropped.Add(1)
		return false
	}

	select {
	case s.entries <- e:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Dropped число записей, потерянных из-за заполненного буфера
func (s *RemoteSink) Dropped() int64 {
	return s.dropped.Load()
}

// Failed число записей, которые не удалось отправить
func (s *RemoteSink) Failed() int64 {
	return s.failed.Load()
}

func (s *RemoteSink) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			s.drain()
			return
		case e := <-s.entries:
			s.send(e)
		}
	}
}

func (s *RemoteSink) drain() {
	for {
		select {
		case e := <-s.entries:
			s.send(e)
		default:
			return
		}
	}
}

func (s *RemoteSink) send(e Entry) {
	if err := s.post(e); err != nil {
		s.failed.Add(1)
		s.fallback.Debug("Failed to ship log entry",
			zap.String("package", e.Package),
			zap.Error(err),
		)
	}
}

func (s *RemoteSink) post(e Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	// Контекст не зависит от s.ctx, чтобы drain после Stop успел отправить записи
	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("log collector returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return nil
}

// sinkCore zapcore.Core, который ставит записи в очередь RemoteSink
type sinkCore struct {
	zapcore.LevelEnabler
	sink *RemoteSink
}

// NewSinkCore создаёт core для zapcore.NewTee
func NewSinkCore(sink *RemoteSink, level zapcore.LevelEnabler) zapcore.Core {
	return &sinkCore{LevelEnabler: level, sink: sink}
}

func (c *sinkCore) With([]zapcore.Field) zapcore.Core {
	return c
}

func (c *sinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sinkCore) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	c.sink.Enqueue(Entry{
		Stack:   Stack,
		Level:   levelName(ent.Level),
		Package: packageName(ent.LoggerName),
		Message: ent.Message,
	})
	return nil
}

func (c *sinkCore) Sync() error {
	return nil
}

// levelName приводит уровень zap к набору debug/info/warn/error/fatal
func levelName(l zapcore.Level) string {
	switch {
	case l <= zapcore.DebugLevel:
		return "debug"
	case l == zapcore.InfoLevel:
		return "info"
	case l == zapcore.WarnLevel:
		return "warn"
	case l == zapcore.ErrorLevel:
		return "error"
	default:
		return "fatal"
	}
}

// packageName первый сегмент имени логгера, например "service"
func packageName(loggerName string) string {
	if loggerName == "" {
		return "api"
	}
	if i := strings.IndexByte(loggerName, '.'); i > 0 {
		return loggerName[:i]
	}
	return loggerName
}
