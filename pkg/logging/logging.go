// pkg/logging/logging.go - timestamped run logging for winsetup
//
// Every run gets its own directory (YYYY-MM-DD-HHMMss) under the log base
// directory, holding:
// - winsetup.log: plain text, one line per entry
// - events.jsonl: one JSON object per entry
// - winsetup.yaml: YAML documents, one per entry
// - summary.yaml: written by EndSession
// Old run directories are pruned in the background on startup.

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/winsetup/pkg/version"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of the LogLevel.
func (ll LogLevel) String() string {
	switch ll {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string onto a LogLevel. Unknown values
// fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// LevelFromVerbosity maps the number of -v flags onto a level:
// 0 => ERROR, 1 => WARN, 2 => INFO, 3+ => DEBUG.
func LevelFromVerbosity(verbosity int) LogLevel {
	switch {
	case verbosity <= 0:
		return LevelError
	case verbosity == 1:
		return LevelWarn
	case verbosity == 2:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// LogEntry is the structured form of one log line.
type LogEntry struct {
	Time       int64                  `json:"time" yaml:"time"`
	Timestamp  string                 `json:"timestamp" yaml:"timestamp"`
	Level      string                 `json:"level" yaml:"level"`
	Message    string                 `json:"message" yaml:"message"`
	Component  string                 `json:"component" yaml:"component"`
	PID        int64                  `json:"pid" yaml:"pid"`
	Hostname   string                 `json:"hostname" yaml:"hostname"`
	Version    string                 `json:"version" yaml:"version"`
	SessionID  string                 `json:"session_id" yaml:"session_id"`
	Properties map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// RetentionPolicy defines log retention rules
type RetentionPolicy struct {
	KeepRuns   int // Keep the newest N run directories
	MaxAgeDays int // Delete run directories older than this
}

// LoggerConfig holds configuration for the run logger
type LoggerConfig struct {
	BaseDir       string
	SessionID     string
	Component     string
	Level         LogLevel
	Retention     RetentionPolicy
	EnableJSON    bool
	EnableYAML    bool
	EnableConsole bool
	Console       io.Writer // defaults to os.Stdout
}

// Logger writes entries to the run directory and optionally the console.
type Logger struct {
	mu           sync.RWMutex
	logger       *log.Logger
	logLevel     LogLevel
	logFile      *os.File
	jsonFile     *os.File
	yamlFile     *os.File
	config       LoggerConfig
	sessionStart time.Time
	logDir       string
	hostname     string
	version      string
}

var (
	instance *Logger
	once     sync.Once
)

// DefaultRetentionPolicy returns the retention used when none is configured.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		KeepRuns:   20,
		MaxAgeDays: 60,
	}
}

// DefaultLoggerConfig returns a config rooted at baseDir with all outputs enabled.
func DefaultLoggerConfig(baseDir string, level LogLevel) LoggerConfig {
	return LoggerConfig{
		BaseDir:       baseDir,
		SessionID:     uuid.NewString(),
		Component:     "winsetup",
		Level:         level,
		Retention:     DefaultRetentionPolicy(),
		EnableJSON:    true,
		EnableYAML:    true,
		EnableConsole: true,
	}
}

// Init initializes the package logger. Only the first call has any effect.
func Init(logCfg LoggerConfig) error {
	var initErr error
	once.Do(func() {
		instance, initErr = newLogger(logCfg)
		if initErr == nil {
			go instance.performCleanup()
		}
	})
	return initErr
}

func createTimestampedLogDir(baseDir string, sessionStart time.Time) (string, error) {
	logDir := filepath.Join(baseDir, sessionStart.Format("2006-01-02-150405"))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create timestamped log directory %s: %w", logDir, err)
	}
	return logDir, nil
}

func newLogger(cfg LoggerConfig) (*Logger, error) {
	sessionStart := time.Now()

	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Component == "" {
		cfg.Component = "winsetup"
	}
	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base log directory: %w", err)
	}
	logDir, err := createTimestampedLogDir(cfg.BaseDir, sessionStart)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	l := &Logger{
		config:       cfg,
		logLevel:     cfg.Level,
		sessionStart: sessionStart,
		logDir:       logDir,
		hostname:     hostname,
		version:      version.Version().Version,
	}
	if err := l.initializeLogFiles(); err != nil {
		l.closeFiles()
		return nil, err
	}

	if cfg.EnableConsole {
		console := cfg.Console
		if console == nil {
			console = os.Stdout
		}
		l.logger = log.New(io.MultiWriter(console, l.logFile), "", 0)
	} else {
		l.logger = log.New(l.logFile, "", 0)
	}
	return l, nil
}

func (l *Logger) initializeLogFiles() error {
	var err error

	l.logFile, err = os.OpenFile(filepath.Join(l.logDir, "winsetup.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open main log file: %w", err)
	}
	if l.config.EnableJSON {
		l.jsonFile, err = os.OpenFile(filepath.Join(l.logDir, "events.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open JSON log file: %w", err)
		}
	}
	if l.config.EnableYAML {
		l.yamlFile, err = os.OpenFile(filepath.Join(l.logDir, "winsetup.yaml"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open YAML log file: %w", err)
		}
	}
	return nil
}

// performCleanup removes run directories beyond the retention policy. The
// current run directory is never removed.
func (l *Logger) performCleanup() {
	entries, err := os.ReadDir(l.config.BaseDir)
	if err != nil {
		return
	}

	var runDirs []string
	for _, entry := range entries {
		if entry.IsDir() && isRunDirName(entry.Name()) {
			runDirs = append(runDirs, entry.Name())
		}
	}
	// Names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(runDirs)))

	current := filepath.Base(l.logDir)
	retention := l.config.Retention
	maxAge := time.Duration(retention.MaxAgeDays) * 24 * time.Hour
	now := time.Now()

	for i, name := range runDirs {
		if name == current {
			continue
		}
		expired := retention.KeepRuns > 0 && i >= retention.KeepRuns
		if !expired && retention.MaxAgeDays > 0 {
			if ts, err := time.ParseInLocation("2006-01-02-150405", name, time.Local); err == nil {
				expired = now.Sub(ts) > maxAge
			}
		}
		if expired {
			_ = os.RemoveAll(filepath.Join(l.config.BaseDir, name))
		}
	}
}

func isRunDirName(name string) bool {
	if len(name) != 17 || strings.Count(name, "-") != 3 {
		return false
	}
	_, err := time.ParseInLocation("2006-01-02-150405", name, time.Local)
	return err == nil
}

func (l *Logger) createLogEntry(level LogLevel, message string, properties map[string]interface{}) LogEntry {
	now := time.Now()
	return LogEntry{
		Time:       now.Unix(),
		Timestamp:  now.Format(time.RFC3339),
		Level:      level.String(),
		Message:    message,
		Component:  l.config.Component,
		PID:        int64(os.Getpid()),
		Hostname:   l.hostname,
		Version:    l.version,
		SessionID:  l.config.SessionID,
		Properties: properties,
	}
}

func (l *Logger) closeFiles() {
	for _, f := range []**os.File{&l.logFile, &l.jsonFile, &l.yamlFile} {
		if *f != nil {
			if err := (*f).Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
			}
			*f = nil
		}
	}
}

// CloseLogger closes all log files if they're open.
func CloseLogger() {
	if instance == nil {
		return
	}
	instance.mu.Lock()
	defer instance.mu.Unlock()
	instance.closeFiles()
}

// logMessage writes one entry to every configured output.
func (l *Logger) logMessage(level LogLevel, message string, keyValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logger == nil || level > l.logLevel {
		return
	}

	properties := make(map[string]interface{})
	for i := 0; i+1 < len(keyValues); i += 2 {
		properties[fmt.Sprintf("%v", keyValues[i])] = stringifyErrors(keyValues[i+1])
	}

	entry := l.createLogEntry(level, message, properties)
	l.writeMainLog(entry, keyValues)
	if l.jsonFile != nil {
		l.writeJSONLog(entry)
	}
	if l.yamlFile != nil {
		l.writeYAMLLog(entry)
	}
}

// stringifyErrors keeps error values readable in the JSON and YAML outputs.
func stringifyErrors(v interface{}) interface{} {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}

// writeMainLog writes the plain text line: "[ts] LEVEL message k=v".
func (l *Logger) writeMainLog(entry LogEntry, keyValues []interface{}) {
	ts := time.Unix(entry.Time, 0).Format("2006-01-02 15:04:05")
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s %s", ts, entry.Level, entry.Message)

	// Long key/value lists go one per line.
	multiline := len(keyValues)/2 > 4
	for i := 0; i+1 < len(keyValues); i += 2 {
		if multiline {
			fmt.Fprintf(&b, "\n        %v: %v", keyValues[i], keyValues[i+1])
		} else {
			fmt.Fprintf(&b, " %v=%v", keyValues[i], keyValues[i+1])
		}
	}
	l.logger.Println(b.String())
}

func (l *Logger) writeJSONLog(entry LogEntry) {
	if data, err := json.Marshal(entry); err == nil {
		_, _ = l.jsonFile.Write(append(data, '\n'))
	}
}

func (l *Logger) writeYAMLLog(entry LogEntry) {
	if data, err := yaml.Marshal(entry); err == nil {
		_, _ = l.yamlFile.WriteString("---\n" + string(data))
	}
}

// SetLevel changes the minimum level written by the package logger.
func SetLevel(level LogLevel) {
	if instance == nil {
		return
	}
	instance.mu.Lock()
	defer instance.mu.Unlock()
	instance.logLevel = level
}

// GetCurrentLogDir returns the current timestamped log directory
func GetCurrentLogDir() string {
	if instance == nil {
		return ""
	}
	instance.mu.RLock()
	defer instance.mu.RUnlock()
	return instance.logDir
}

// GetSessionID returns the current session ID
func GetSessionID() string {
	if instance == nil {
		return ""
	}
	instance.mu.RLock()
	defer instance.mu.RUnlock()
	return instance.config.SessionID
}

func logPackage(level LogLevel, message string, keyValues []interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: %s %s %v\n", level, message, keyValues)
		return
	}
	instance.logMessage(level, message, keyValues...)
}

// Info logs informational messages.
func Info(message string, keyValues ...interface{}) {
	logPackage(LevelInfo, message, keyValues)
}

// Debug logs debug messages.
func Debug(message string, keyValues ...interface{}) {
	logPackage(LevelDebug, message, keyValues)
}

// Warn logs warning messages.
func Warn(message string, keyValues ...interface{}) {
	logPackage(LevelWarn, message, keyValues)
}

// Error logs error messages.
func Error(message string, keyValues ...interface{}) {
	logPackage(LevelError, message, keyValues)
}
