// Package logging builds the zerolog logger shared by the balancer, its
// servers and the command driver.
package logging

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ErrUnknownFormat is returned for an output format other than console or
// json.
var ErrUnknownFormat = errors.New("unknown log format")

// New returns a logger writing to w at the given level. An empty level
// means info and an empty format means console.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	switch strings.ToLower(format) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
