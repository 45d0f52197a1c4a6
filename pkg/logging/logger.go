// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for topology components.
//
// The package wraps Go's slog with a fan-out over the destinations a
// command-line tool needs: human-readable stderr, an optional JSON log
// file, and an optional LogExporter hook for shipping entries elsewhere.
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    Service: "topo",
//	})
//	defer logger.Close()
//	logger.Info("graph published", "symbols", g.SymbolCount())
//
// Every destination is an slog.Handler, including the exporter bridge,
// so level filtering and attribute handling behave identically across
// all of them. Exporters are invoked synchronously on the logging
// goroutine; implementations must buffer internally rather than block.
//
// Logger is safe for concurrent use. Close must be called once, after
// all logging is done.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is a log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the conventional upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// slogLevel maps Level onto the slog scale.
func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// levelOf converts back from the slog scale, for exported entries.
func levelOf(l slog.Level) Level {
	switch {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

// Config configures a Logger. The zero value logs Info and above to
// stderr in text format.
type Config struct {
	// Level is the minimum severity that gets emitted anywhere.
	Level Level

	// Service names the component; it is attached to every entry as the
	// "service" attribute and used in the log file name.
	Service string

	// Quiet suppresses stderr output. File and exporter destinations
	// are unaffected.
	Quiet bool

	// JSON switches stderr to JSON format. The log file is always JSON.
	JSON bool

	// LogDir, when set, enables an append-only JSON log file named
	// "{service}_{YYYY-MM-DD}.log" in that directory. The directory is
	// created if missing, and a leading ~ expands to the home
	// directory. If the directory or file cannot be created the logger
	// degrades to its remaining destinations.
	LogDir string

	// Exporter, when set, receives every emitted entry.
	Exporter LogExporter
}

// LogExporter ships log entries to an external system.
type LogExporter interface {
	// Export receives one entry. Called synchronously; must not block.
	Export(ctx context.Context, entry LogEntry) error

	// Flush sends anything buffered. Called from Logger.Close.
	Flush(ctx context.Context) error

	// Close releases resources, after Flush.
	Close() error
}

// LogEntry is the exporter-facing form of one log record.
type LogEntry struct {
	Timestamp time.Time
	Level     Level
	Message   string
	Service   string
	Attrs     map[string]any
}

// Logger is a leveled structured logger over one or more destinations.
type Logger struct {
	slog     *slog.Logger
	file     *os.File
	exporter LogExporter
}

// New creates a Logger from cfg. It never fails: an unusable LogDir
// only drops the file destination.
func New(cfg Config) *Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}
	l := &Logger{exporter: cfg.Exporter}

	var sinks []slog.Handler
	if !cfg.Quiet {
		if cfg.JSON {
			sinks = append(sinks, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			sinks = append(sinks, slog.NewTextHandler(os.Stderr, opts))
		}
	}
	if cfg.LogDir != "" {
		if file := openLogFile(cfg.LogDir, cfg.Service); file != nil {
			l.file = file
			sinks = append(sinks, slog.NewJSONHandler(file, opts))
		}
	}
	if cfg.Exporter != nil {
		sinks = append(sinks, &exportHandler{
			exporter: cfg.Exporter,
			service:  cfg.Service,
			min:      cfg.Level.slogLevel(),
		})
	}

	var handler slog.Handler
	switch len(sinks) {
	case 0:
		handler = slog.DiscardHandler
	case 1:
		handler = sinks[0]
	default:
		handler = fanoutHandler(sinks)
	}
	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}

	l.slog = slog.New(handler)
	return l
}

// Default returns a stderr-only text logger at Info level with service
// "topology".
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "topology"})
}

// openLogFile opens today's append-only log file under dir, or nil if
// the directory or file cannot be created.
func openLogFile(dir, service string) *os.File {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil
	}
	if service == "" {
		service = "topology"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil
	}
	return file
}

// Debug logs at Debug level with slog-style key-value args.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at Info level.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at Warn level.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at Error level.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Close flushes and closes the exporter, then syncs and closes the log
// file. The first failure is returned; later steps still run.
func (l *Logger) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if l.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		keep(l.exporter.Flush(ctx))
		keep(l.exporter.Close())
	}
	if l.file != nil {
		keep(l.file.Sync())
		keep(l.file.Close())
	}
	return first
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// fanoutHandler replicates records to every destination, so stderr,
// file, and exporter can carry different formats off one record.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range h {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, sink := range h {
		if !sink.Enabled(ctx, r.Level) {
			continue
		}
		if err := sink.Handle(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, sink := range h {
		out[i] = sink.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, sink := range h {
		out[i] = sink.WithGroup(name)
	}
	return out
}

// exportHandler bridges slog records to a LogExporter. Export errors
// are swallowed so a failing exporter never breaks logging.
type exportHandler struct {
	exporter LogExporter
	service  string
	min      slog.Level
	attrs    []slog.Attr
}

func (h *exportHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

func (h *exportHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := LogEntry{
		Timestamp: r.Time,
		Level:     levelOf(r.Level),
		Message:   r.Message,
		Service:   h.service,
		Attrs:     make(map[string]any, len(h.attrs)+r.NumAttrs()),
	}
	for _, a := range h.attrs {
		if a.Key == "service" {
			continue // already carried in the Service field
		}
		entry.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attrs[a.Key] = a.Value.Any()
		return true
	})
	_ = h.exporter.Export(ctx, entry)
	return nil
}

func (h *exportHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &exportHandler{exporter: h.exporter, service: h.service, min: h.min, attrs: merged}
}

func (h *exportHandler) WithGroup(string) slog.Handler {
	// Groups are not used by this codebase; attributes stay flat.
	return h
}

// BufferedExporter collects entries in memory, primarily so tests can
// assert on what was logged.
type BufferedExporter struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewBufferedExporter creates an empty BufferedExporter.
func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{}
}

// Export appends the entry to the buffer.
func (e *BufferedExporter) Export(_ context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

// Flush is a no-op; entries are already in memory.
func (e *BufferedExporter) Flush(context.Context) error { return nil }

// Close is a no-op.
func (e *BufferedExporter) Close() error { return nil }

// Entries returns a copy of everything exported so far.
func (e *BufferedExporter) Entries() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LogEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

var _ LogExporter = (*BufferedExporter)(nil)
