package errors

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeExtract    ErrorType = "extract"
	ErrorTypeStore      ErrorType = "store"
	ErrorTypeNotify     ErrorType = "notify"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// newAppError is an unexported helper to create AppError instances
func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewExtractError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeExtract, code, message, cause)
}

func NewStoreError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeStore, code, message, cause)
}

func NewNotifyError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNotify, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ConfigurationError reports every violation found while validating a rule
// set, so an operator can fix the whole config in one pass instead of
// replaying load-fix-load once per problem. It is raised at load time only;
// scoring against a validated rule set never produces one.
type ConfigurationError struct {
	RuleSet    string   `json:"ruleSet"`
	Violations []string `json:"violations"`
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid rule set %q: %d violation(s): %s",
		e.RuleSet, len(e.Violations), strings.Join(e.Violations, "; "))
}

// NewConfigurationError creates a ConfigurationError for the named rule set.
func NewConfigurationError(ruleSet string, violations []string) *ConfigurationError {
	return &ConfigurationError{RuleSet: ruleSet, Violations: violations}
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger
func NewLogger(level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	return &Logger{logger: logger}
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	switch e := err.(type) {
	case *AppError:
		logArgs := []any{
			"error_type", e.Type,
			"error_code", e.Code,
			"error_message", e.Message,
		}
		for key, value := range e.Context {
			logArgs = append(logArgs, key, value)
		}
		logArgs = append(logArgs, args...)
		l.logger.Error(message, logArgs...)
	case *ConfigurationError:
		logArgs := []any{
			"error_type", ErrorTypeConfig,
			"ruleset", e.RuleSet,
			"violations", e.Violations,
		}
		logArgs = append(logArgs, args...)
		l.logger.Error(message, logArgs...)
	default:
		logArgs := append([]any{"error", err.Error()}, args...)
		l.logger.Error(message, logArgs...)
	}
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	return NewLogger(slogLevel), nil
}

// Common error codes
const (
	ErrCodeFileNotFound       = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable    = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat      = "INVALID_FORMAT"
	ErrCodeInvalidRuleSet     = "INVALID_RULESET"
	ErrCodeRuleSetNotFound    = "RULESET_NOT_FOUND"
	ErrCodeExtractFailed      = "EXTRACT_FAILED"
	ErrCodeExtractParseFailed = "EXTRACT_PARSE_FAILED"
	ErrCodeStoreFailed        = "STORE_FAILED"
	ErrCodeNotifyFailed       = "NOTIFY_FAILED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeMissingAPIKey      = "MISSING_API_KEY"
	ErrCodeInvalidConfig      = "INVALID_CONFIG"
	ErrCodeInvalidCandidate   = "INVALID_CANDIDATE"
)
