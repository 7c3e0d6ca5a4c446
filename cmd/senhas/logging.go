package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/fabrica-cultura/senhas/internal/config"
	"github.com/fabrica-cultura/senhas/internal/errors"
)

// newLogger builds the process logger from the log section of senhas.json.
func newLogger(lc config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, errors.New("E162").WithDetail("log.level must be debug, info, warn or error").Wrap(err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(lc.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, errors.New("E162").WithDetail("log.format must be text or json")
}
