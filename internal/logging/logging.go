// Package logging sets up flowstate's stdlib-"log"-based output, the same
// ambient choice the teacher's cmd/bd files make, writing through a
// rotating gopkg.in/natefinch/lumberjack.v2 writer when a log file path is
// configured.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup points the stdlib default logger at path (rotated at maxSizeMB) if
// path is non-empty, or leaves it pointed at stderr otherwise. It returns
// the io.Writer actually installed, mainly for tests.
func Setup(path string, maxSizeMB int) io.Writer {
	if path == "" {
		log.SetOutput(os.Stderr)
		return os.Stderr
	}
	w := &lumberjack.Logger{
		Filename: path,
		MaxSize:  maxSizeMB,
		Compress: true,
	}
	log.SetOutput(w)
	return w
}
