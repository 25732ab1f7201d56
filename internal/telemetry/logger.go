package telemetry

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var (
	enableDebug atomic.Bool

	logCh chan logEntry
	once  sync.Once
)

type logEntry struct {
	timestamp time.Time
	level     string
	message   string
}

func Start() {
	once.Do(func() {
		logCh = make(chan logEntry, 8192)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Printf("telemetry panic: %v\n", r)
				}
			}()

			for entry := range logCh {
				fmt.Printf("%s [%s] %s\n",
					entry.timestamp.Format("2006/01/02 15:04:05.000"),
					entry.level,
					entry.message)
			}
		}()
	})
}

func Stop() {
	if logCh != nil {
		close(logCh)
	}
}

func EnableDebug(on bool) { enableDebug.Store(on) }
func DebugOn() bool       { return enableDebug.Load() }

// Non-blocking enqueue; drop if saturated.
func enqueue(level, message string) {
	entry := logEntry{
		timestamp: time.Now(),
		level:     level,
		message:   message,
	}
	select {
	case logCh <- entry:
	default:
		fmt.Fprintf(os.Stderr, "telemetry: buffer full, dropping log: %s\n", message)
	}
}

func Infof(format string, args ...any) {
	enqueue("INFO", fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	enqueue("WARN", fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	enqueue("ERROR", fmt.Sprintf(format, args...))
}

// DEBUG only formats if enabled (zero cost when off).
func Debugf(format string, args ...any) {
	if !enableDebug.Load() {
		return
	}
	enqueue("DEBUG", fmt.Sprintf(format, args...))
}
