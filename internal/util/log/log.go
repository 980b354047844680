// Package logutil configures the process logger from a cli context.
package logutil

import (
	"io"
	"strings"

	"github.com/lthibault/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/wetware/naive"
)

var levels = map[string]log.Level{
	"trace": log.TraceLevel, "t": log.TraceLevel,
	"debug": log.DebugLevel, "d": log.DebugLevel,
	"info": log.InfoLevel, "i": log.InfoLevel,
	"warn": log.WarnLevel, "warning": log.WarnLevel, "w": log.WarnLevel,
	"error": log.ErrorLevel, "err": log.ErrorLevel, "e": log.ErrorLevel,
	"fatal": log.FatalLevel, "f": log.FatalLevel,
}

// New logger from a cli context.  The first call binds the logger to
// the app; later calls return the same instance.
func New(c *cli.Context) log.Logger {
	if logger := get(c); logger != nil {
		return logger
	}

	return bind(c)
}

// Level named by --loglvl.  Unknown names map to info.  With --logfmt
// set to "none", only fatal entries are kept.
func Level(c *cli.Context) log.Level {
	if c.String("logfmt") == "none" {
		return log.FatalLevel
	}

	return parseLevel(c.String("loglvl"))
}

func parseLevel(name string) log.Level {
	if lvl, ok := levels[strings.ToLower(name)]; ok {
		return lvl
	}

	return log.InfoLevel
}

// Formatter named by --logfmt.
func Formatter(c *cli.Context) logrus.Formatter {
	switch c.String("logfmt") {
	case "json":
		return &logrus.JSONFormatter{PrettyPrint: c.Bool("prettyprint")}
	default:
		return new(logrus.TextFormatter)
	}
}

func writer(c *cli.Context) io.Writer {
	if c.String("logfmt") == "none" || c.App.ErrWriter == nil {
		return io.Discard
	}

	return c.App.ErrWriter
}

const key = "naive.util.log:k2!Vd^9#Rq"

func bind(c *cli.Context) log.Logger {
	logger := log.New(
		log.WithLevel(Level(c)),
		log.WithFormatter(Formatter(c)),
		log.WithWriter(writer(c))).
		WithField("version", naive.Version).
		WithField("app", c.App.Name)

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]interface{})
	}

	c.App.Metadata[key] = logger
	return logger
}

func get(c *cli.Context) log.Logger {
	logger, _ := c.App.Metadata[key].(log.Logger)
	return logger
}
