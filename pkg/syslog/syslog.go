// Package syslog appends service log entries to a plain-text file.
package syslog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/telehostca/chatbot-backend/pkg/logger"
)

// FileSink writes log entries received from a logger subscription.
type FileSink struct {
	mu      sync.Mutex
	writer  io.Writer
	service string
}

// Open opens path in append mode, creating it and its directory when missing.
func Open(path, service string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	//nolint:gosec // the path comes from service configuration
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewFileSink(file, service), nil
}

// NewFileSink writes to w.
func NewFileSink(w io.Writer, service string) *FileSink {
	return &FileSink{writer: w, service: service}
}

// Run writes every entry from entries until ctx is done or the channel closes.
func (s *FileSink) Run(ctx context.Context, entries <-chan logger.LogEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			_ = s.Write(entry)
		}
	}
}

// Write appends one entry as a single line.
func (s *FileSink) Write(entry logger.LogEntry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] [%s] %s",
		entry.Time.Format("2006-01-02 15:04:05.000"), s.service, entry.Level, entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, entry.Fields[k])
	}
	b.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.writer, b.String())
	return err
}

// Close closes the underlying file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if closer, ok := s.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
