package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	DefaultLogDir        = "./logs"
	DefaultLogFile       = "blockarchive.log"
	DefaultMaxSizeMB     = 100
	DefaultMaxAgeDays    = 7
	defaultLoggerFlags   = log.Ldate | log.Ltime | log.Lmicroseconds
	envLogFile           = "LOGFILE"
	envLogFileMaxSizeMB  = "LOGFILE_MAX_SIZE_MB"
	envLogFileMaxAgeDays = "LOGFILE_MAX_AGE_DAYS"
)

// Options configures the rotating log file. Zero values fall back to the
// LOGFILE* environment variables and then to the defaults above.
type Options struct {
	Dir        string
	File       string
	MaxSizeMB  int
	MaxAgeDays int
	// Stdout also mirrors every line to standard output.
	Stdout bool
}

var (
	mu     sync.RWMutex
	logger = log.New(io.Discard, "", defaultLoggerFlags)
	closer io.Closer
)

// Init points the package logger at a lumberjack rotating file.
func Init(opts Options) {
	lj := &lumberjack.Logger{
		Filename: getLogFilename(opts),
		MaxSize:  getMaxSize(opts), // megabytes
		MaxAge:   getMaxAge(opts),  // days
	}

	var out io.Writer = lj
	if opts.Stdout {
		out = io.MultiWriter(lj, os.Stdout)
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	closer = lj
	logger = log.New(out, "", defaultLoggerFlags)
}

// SetOutput redirects logging to w, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", defaultLoggerFlags)
}

// Close flushes and closes the rotating file if one is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	logger = log.New(io.Discard, "", defaultLoggerFlags)
	return err
}

func getLogFilename(opts Options) string {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultLogDir
	}
	name := opts.File
	if name == "" {
		name = os.Getenv(envLogFile)
	}
	if name == "" {
		name = DefaultLogFile
	}
	return filepath.Join(dir, name)
}

func getMaxSize(opts Options) int {
	if opts.MaxSizeMB > 0 {
		return opts.MaxSizeMB
	}
	return envInt(envLogFileMaxSizeMB, DefaultMaxSizeMB)
}

func getMaxAge(opts Options) int {
	if opts.MaxAgeDays > 0 {
		return opts.MaxAgeDays
	}
	return envInt(envLogFileMaxAgeDays, DefaultMaxAgeDays)
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("[logx] invalid value %q for %s, using %d", raw, name, def)
		return def
	}
	return v
}

func output(level, color, category string, content []interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)

	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	output("INFO", ColorGreen, category, content)
}

func Error(category string, content ...interface{}) {
	output("ERROR", ColorRed, category, content)
}

func Warn(category string, content ...interface{}) {
	output("WARN", ColorYellow, category, content)
}

func Debug(category string, content ...interface{}) {
	output("DEBUG", ColorBlue, category, content)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}
