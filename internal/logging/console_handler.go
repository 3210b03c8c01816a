package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGray   = "\x1b[90m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

// consoleHandler writes one line per record:
//
//	2026-01-02 15:04:05 INFO  [resolver] Job #7 (resolve) artist resolved artist=Björk outcome=resolved
//
// component, job, stage and correlation id are lifted into the header; the
// remaining attributes follow as key=value pairs.
type consoleHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []field
	groups    []string
	addSource bool
	color     bool
}

type field struct {
	key   string
	value slog.Value
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource, color bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]field, 0, len(h.attrs)+record.NumAttrs())
	fields = append(fields, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFlattened(fields, h.groups, attr)
		return true
	})

	var header struct{ component, job, stage, run string }
	body := make([]field, 0, len(fields))
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			header.component = plainValue(f.value)
		case FieldJobID:
			header.job = plainValue(f.value)
		case FieldStage:
			header.stage = plainValue(f.value)
		case FieldCorrelationID:
			header.run = plainValue(f.value)
		default:
			if i, seen := index[f.key]; seen {
				body[i].value = f.value
				continue
			}
			index[f.key] = len(body)
			body = append(body, f)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(consoleTime(record.Time))
	buf.WriteByte(' ')
	h.writeLevel(&buf, record.Level)
	if header.component != "" {
		buf.WriteString(" [" + header.component + "]")
	}
	if subject := subjectFor(header.job, header.stage, header.run); subject != "" {
		buf.WriteString(" " + subject)
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	buf.WriteString(" " + message)
	for _, f := range body {
		buf.WriteString(" " + f.key + "=" + quotedValue(f.value))
	}
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			buf.WriteString(" (" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + ")")
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) writeLevel(buf *bytes.Buffer, level slog.Level) {
	label, color := "DEBUG", ansiGray
	switch {
	case level >= slog.LevelError:
		label, color = "ERROR", ansiRed
	case level >= slog.LevelWarn:
		label, color = "WARN ", ansiYellow
	case level >= slog.LevelInfo:
		label, color = "INFO ", ansiGreen
	}
	if h.color {
		buf.WriteString(color + label + ansiReset)
		return
	}
	buf.WriteString(label)
}

// subjectFor names what a line is about: a job, or a scan run by the first
// eight characters of its correlation id.
func subjectFor(job, stage, run string) string {
	var subject string
	switch {
	case job != "":
		subject = "Job #" + job
	case run != "":
		if len(run) > 8 {
			run = run[:8]
		}
		subject = "Run " + run
	}
	switch {
	case subject != "" && stage != "":
		return subject + " (" + stage + ")"
	case subject != "":
		return subject
	default:
		return stage
	}
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		clone.attrs = appendFlattened(clone.attrs, clone.groups, attr)
	}
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		attrs:     append([]field(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
		addSource: h.addSource,
		color:     h.color,
	}
}

func appendFlattened(dst []field, groups []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		nested := groups
		if attr.Key != "" {
			nested = append(append([]string(nil), groups...), attr.Key)
		}
		for _, inner := range attr.Value.Group() {
			dst = appendFlattened(dst, nested, inner)
		}
		return dst
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	return append(dst, field{key: key, value: attr.Value})
}
