package platform

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hook writes every entry into <logPath>/<date>/<fileName>.log, switching
// files when the day changes.
type Hook struct {
	mu       sync.Mutex
	writer   *os.File
	logPath  string
	fileName string
	fileDate string
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	timer := entry.Time.Format("2006-01-02")
	if h.writer == nil || h.fileDate != timer {
		if h.writer != nil {
			h.writer.Close()
		}
		writer, err := openLogFile(fmt.Sprintf("%s/%s", h.logPath, timer), h.fileName)
		if err != nil {
			return err
		}
		h.writer = writer
		h.fileDate = timer
	}
	_, err = h.writer.Write([]byte(line))
	return err
}

func openLogFile(dir, fileName string) (*os.File, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return os.OpenFile(fmt.Sprintf("%s/%s.log", dir, fileName), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
}

type LogFormatter struct {
}

func (m *LogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	b.WriteString(fmt.Sprintf("[%s] [%s] %s\n", timestamp, entry.Level, entry.Message))
	return b.Bytes(), nil
}

// Logger is the application logger. It writes to stderr until InitAppLogger
// attaches the file hook.
var Logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&LogFormatter{})
	logger.SetOutput(out)
	return logger
}

// InitAppLogger attaches daily rotated log files under logPath to Logger and
// to the logrus standard logger used by gin middleware.
func InitAppLogger(logPath string, fileName string) error {
	hook := &Hook{logPath: logPath, fileName: fileName}
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
			return err
		}
	}
	Logger.AddHook(hook)

	logrus.SetFormatter(&LogFormatter{})
	logrus.AddHook(&Hook{logPath: logPath, fileName: fileName + "-access"})
	return nil
}

// SetLevel parses a logrus level name; unknown names keep the current level.
func SetLevel(level string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		Logger.SetLevel(lvl)
	}
}
