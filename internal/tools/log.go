package tools

import (
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type MultiWriter struct {
	Writers []io.Writer
}

func (t *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range t.Writers {
		n, err = w.Write(p)
		if err != nil {
			return
		}
	}
	return
}

// NewLogger builds the service logger. Output goes to stdout and, when file
// is set, is appended to that file as well. The standard library logger is
// pointed at the same writer so anything logged through it lands in the file.
// The returned closer releases the log file.
func NewLogger(level, file string) (*logrus.Logger, io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if file != "" {
		logFile, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, err
		}
		out = &MultiWriter{Writers: []io.Writer{os.Stdout, logFile}}
		closer = logFile
	}
	log.SetOutput(out)

	logger := logrus.New()
	logger.Formatter = &logrus.JSONFormatter{}
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	return logger, closer, nil
}
