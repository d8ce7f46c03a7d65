package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

var (
	minLevelOnce sync.Once
	minLevel     int
)

// Debug writes a debug-level log line. Suppressed unless LOG_LEVEL=debug.
func Debug(msg string, fields map[string]any) {
	write("debug", msg, fields)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write("info", msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write("warn", msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write("error", msg, fields)
}

func write(level, msg string, fields map[string]any) {
	minLevelOnce.Do(func() {
		raw := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
		rank, ok := levelRank[raw]
		if !ok {
			rank = levelRank["info"]
		}
		minLevel = rank
	})
	if levelRank[level] < minLevel {
		return
	}

	entry := make(map[string]any, len(fields)+3)
	entry["ts"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level
	entry["msg"] = msg
	for k, v := range fields {
		entry[k] = v
	}
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stdout, `{"ts":"%s","level":"error","msg":"logger marshal failed","err":%q}`+"\n", time.Now().UTC().Format(time.RFC3339), err.Error())
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}
