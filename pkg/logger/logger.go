package logger

import (
	"io"
	"log"
	"os"
)

// New returns a standard logger with a consistent prefix.
func New(prefix string) *log.Logger {
	return NewTo(os.Stderr, prefix)
}

// NewTo is New writing to w.
func NewTo(w io.Writer, prefix string) *log.Logger {
	return log.New(w, prefix, log.LstdFlags|log.LUTC)
}
