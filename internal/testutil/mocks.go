package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pockettune/radiosync/internal/station"
)

// MockKVStore provides an in-memory key-value store for testing
type MockKVStore struct {
	mu       sync.Mutex
	values   map[string]string
	getError error
	setError error
	sets     int
}

func NewMockKVStore() *MockKVStore {
	return &MockKVStore{
		values: make(map[string]string),
	}
}

func (m *MockKVStore) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getError = err
}

func (m *MockKVStore) SetSetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setError = err
}

func (m *MockKVStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getError != nil {
		return "", false, m.getError
	}
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MockKVStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setError != nil {
		return m.setError
	}
	m.values[key] = value
	m.sets++
	return nil
}

func (m *MockKVStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MockKVStore) Close() error {
	return nil
}

// Raw returns the stored value for a key without error injection.
func (m *MockKVStore) Raw(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

func (m *MockKVStore) CountSets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// MockRemoteStore provides a scriptable remote document store for testing
type MockRemoteStore struct {
	mu sync.Mutex

	stations map[string][]station.Station // keyed by user id

	uploadError   error
	downloadError error
	pushError     error
	pushErrorFor  map[string]error // keyed by station id

	uploads   [][]station.Station
	downloads int
	pushed    []station.PendingChange
}

func NewMockRemoteStore() *MockRemoteStore {
	return &MockRemoteStore{
		stations:     make(map[string][]station.Station),
		pushErrorFor: make(map[string]error),
	}
}

func (m *MockRemoteStore) SetStations(userID string, stations []station.Station) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[userID] = stations
}

func (m *MockRemoteStore) SetUploadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadError = err
}

func (m *MockRemoteStore) SetDownloadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadError = err
}

func (m *MockRemoteStore) SetPushError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushError = err
}

// SetPushErrorFor injects an error only for changes touching one station.
func (m *MockRemoteStore) SetPushErrorFor(stationID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushErrorFor[stationID] = err
}

func (m *MockRemoteStore) UploadAll(_ context.Context, userID string, stations []station.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.uploadError != nil {
		return m.uploadError
	}
	stored := make([]station.Station, len(stations))
	copy(stored, stations)
	m.stations[userID] = stored
	m.uploads = append(m.uploads, stored)
	return nil
}

func (m *MockRemoteStore) DownloadAll(_ context.Context, userID string) ([]station.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.downloads++
	if m.downloadError != nil {
		return nil, m.downloadError
	}
	result := make([]station.Station, len(m.stations[userID]))
	copy(result, m.stations[userID])
	return result, nil
}

func (m *MockRemoteStore) PushOne(_ context.Context, userID string, change station.PendingChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.pushErrorFor[change.Station.ID]; ok && err != nil {
		return err
	}
	if m.pushError != nil {
		return m.pushError
	}
	m.pushed = append(m.pushed, change)
	return nil
}

func (m *MockRemoteStore) Uploads() [][]station.Station {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([][]station.Station, len(m.uploads))
	copy(result, m.uploads)
	return result
}

func (m *MockRemoteStore) CountUploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

func (m *MockRemoteStore) CountDownloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.downloads
}

func (m *MockRemoteStore) Pushed() []station.PendingChange {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]station.PendingChange, len(m.pushed))
	copy(result, m.pushed)
	return result
}

// MockMonitor provides a manually driven connectivity monitor for testing
type MockMonitor struct {
	mu          sync.Mutex
	online      bool
	subscribers map[int]func(bool)
	nextID      int
}

func NewMockMonitor(online bool) *MockMonitor {
	return &MockMonitor{
		online:      online,
		subscribers: make(map[int]func(bool)),
	}
}

func (m *MockMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *MockMonitor) Subscribe(cb func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = cb

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// SetOnline flips the connectivity state and notifies subscribers on change.
func (m *MockMonitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subscribers))
	for _, cb := range m.subscribers {
		subs = append(subs, cb)
	}
	m.mu.Unlock()

	for _, cb := range subs {
		cb(online)
	}
}

func (m *MockMonitor) CountSubscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// TestLogger provides a logger that captures logs for testing
type TestLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

func NewTestLogger() *TestLogger {
	return &TestLogger{
		entries: make([]LogEntry, 0),
	}
}

func (l *TestLogger) log(level, msg string, fields ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Level:   level,
		Message: msg,
		Fields:  make(map[string]interface{}),
	}

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key := fmt.Sprintf("%v", fields[i])
			entry.Fields[key] = fields[i+1]
		}
	}

	l.entries = append(l.entries, entry)
}

func (l *TestLogger) GetEntries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]LogEntry, len(l.entries))
	copy(result, l.entries)
	return result
}

func (l *TestLogger) GetEntriesByLevel(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]LogEntry, 0)
	for _, entry := range l.entries {
		if entry.Level == level {
			result = append(result, entry)
		}
	}
	return result
}

func (l *TestLogger) HasError() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range l.entries {
		if entry.Level == "ERROR" {
			return true
		}
	}
	return false
}

// Logger returns a *slog.Logger that writes to this TestLogger
func (l *TestLogger) Logger() *slog.Logger {
	return slog.New(&testLogHandler{logger: l})
}

// testLogHandler implements slog.Handler for TestLogger. Groups are not
// tracked; no assertion in this codebase inspects them.
type testLogHandler struct {
	logger *TestLogger
	attrs  []slog.Attr
}

func (h *testLogHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]interface{}, 0, (r.NumAttrs()+len(h.attrs))*2)
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, a.Key, a.Value.Any())
		return true
	})
	for _, attr := range h.attrs {
		fields = append(fields, attr.Key, attr.Value.Any())
	}

	h.logger.log(r.Level.String(), r.Message, fields...)
	return nil
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	newAttrs = append(newAttrs, attrs...)
	return &testLogHandler{logger: h.logger, attrs: newAttrs}
}

func (h *testLogHandler) WithGroup(string) slog.Handler {
	return h
}
