package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(parseLogLevel(os.Getenv("LOG_LEVEL")))
	logg.SetOutput(os.Stdout)

	logDir := strings.TrimSpace(os.Getenv("LOG_DIR"))
	if logDir == "" {
		logDir = "./logs"
	}
	logg.AddHook(&dailyFileHook{dir: logDir})
}

func parseLogLevel(raw string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(strings.ToLower(raw)))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	if data != nil {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
			"data":     data,
		}).Error(err.Error())
	} else {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
		}).Error(err.Error())
	}
}

// dailyFileHook appends one timestamped line per event to logs/log-YYYY-MM-DD.txt.
// Files are append-only and never rotated or truncated; the date in the name is
// the rotation.
type dailyFileHook struct {
	dir string
	mu  sync.Mutex
}

func (h *dailyFileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *dailyFileHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(h.dir, "log-"+entry.Time.Format("2006-01-02")+".txt")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s: %s", entry.Time.Format("15:04:05"), strings.ToUpper(entry.Level.String()), entry.Message)
	for _, k := range sortedFieldKeys(entry.Data) {
		line += fmt.Sprintf(" %s=%v", k, entry.Data[k])
	}
	_, err = f.WriteString(line + "\n")
	return err
}

func sortedFieldKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
