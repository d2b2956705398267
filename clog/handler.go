package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// levelHandler 封装 slog.Handler，持有 LevelVar 以支持动态级别
type levelHandler struct {
	slog.Handler
	levelVar *slog.LevelVar
	closer   io.Closer
}

func newHandler(config *Config, o *options) (*levelHandler, error) {
	w, closer, err := resolveWriter(config, o)
	if err != nil {
		return nil, err
	}

	level, _ := ParseLevel(config.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slogLevel())

	opts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: replaceAttr(config.SourceRoot),
	}

	var h slog.Handler
	if strings.ToLower(config.Format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &levelHandler{Handler: h, levelVar: levelVar, closer: closer}, nil
}

func resolveWriter(config *Config, o *options) (io.Writer, io.Closer, error) {
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	case "buffer":
		if o.writer == nil {
			return nil, nil, fmt.Errorf("buffer output requires WithWriter")
		}
		return o.writer, nil, nil
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}

// replaceAttr 统一 level 的大写名称、时间格式，并把 source 改写为 caller=file:line
func replaceAttr(sourceRoot string) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			level, _ := a.Value.Any().(slog.Level)
			switch {
			case level <= slog.LevelDebug:
				a.Value = slog.StringValue("DEBUG")
			case level <= slog.LevelInfo:
				a.Value = slog.StringValue("INFO")
			case level <= slog.LevelWarn:
				a.Value = slog.StringValue("WARN")
			case level <= slog.LevelError:
				a.Value = slog.StringValue("ERROR")
			default:
				a.Value = slog.StringValue("FATAL")
			}
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
		case slog.SourceKey:
			if src, ok := a.Value.Any().(*slog.Source); ok {
				return slog.String("caller", fmt.Sprintf("%s:%d", trimSource(src.File, sourceRoot), src.Line))
			}
		}
		return a
	}
}

func trimSource(file, root string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, file); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
		if idx := strings.Index(file, root); idx != -1 {
			return file[idx:]
		}
	}
	return filepath.Base(file)
}
