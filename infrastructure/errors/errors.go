// Package errors provides unified error handling for XyPriss: typed error
// codes decorated with %w wrapping at each layer, plus the security error
// envelope returned to clients (spec.md §6).
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized     ErrorCode = "AUTH_1001"
	ErrCodeInvalidToken     ErrorCode = "AUTH_1002"
	ErrCodeTokenExpired     ErrorCode = "AUTH_1003"
	ErrCodeInvalidSignature ErrorCode = "AUTH_1004"

	// Authorization errors (2xxx)
	ErrCodeForbidden         ErrorCode = "AUTHZ_2001"
	ErrCodeInsufficientFunds ErrorCode = "AUTHZ_2002"
	ErrCodeOwnershipRequired ErrorCode = "AUTHZ_2003"

	// Validation errors (3xxx)
	ErrCodeInvalidInput     ErrorCode = "VAL_3001"
	ErrCodeMissingParameter ErrorCode = "VAL_3002"
	ErrCodeInvalidFormat    ErrorCode = "VAL_3003"
	ErrCodeOutOfRange       ErrorCode = "VAL_3004"

	// Resource errors (4xxx)
	ErrCodeNotFound      ErrorCode = "RES_4001"
	ErrCodeAlreadyExists ErrorCode = "RES_4002"
	ErrCodeConflict      ErrorCode = "RES_4003"

	// Service errors (5xxx)
	ErrCodeInternal          ErrorCode = "SVC_5001"
	ErrCodeUpstreamError     ErrorCode = "SVC_5002"
	ErrCodeExternalAPI       ErrorCode = "SVC_5004"
	ErrCodeTimeout           ErrorCode = "SVC_5005"
	ErrCodeRateLimitExceeded ErrorCode = "SVC_5006"

	// Cryptographic errors (6xxx)
	ErrCodeEncryptionFailed   ErrorCode = "CRYPTO_6001"
	ErrCodeDecryptionFailed   ErrorCode = "CRYPTO_6002"
	ErrCodeSigningFailed      ErrorCode = "CRYPTO_6003"
	ErrCodeVerificationFailed ErrorCode = "CRYPTO_6004"

	// Plugin errors (7xxx)
	ErrCodePluginFailed       ErrorCode = "PLUGIN_7001"
	ErrCodePluginBudget       ErrorCode = "PLUGIN_7002"
	ErrCodeCircuitOpen        ErrorCode = "PLUGIN_7003"
	ErrCodeDependencyCycle    ErrorCode = "PLUGIN_7004"
	ErrCodeHookNotPermitted   ErrorCode = "PLUGIN_7005"

	// Security errors — codes match the NEHONIXY* family surfaced in
	// the security error envelope (spec.md §6).
	ErrCodeAccessDenied     ErrorCode = "NEHONIXYPBROw01"
	ErrCodeInjectionBlocked ErrorCode = "NEHONIXYPINJ01"
	ErrCodeScoredAccess     ErrorCode = "NEHONIXYPSCR01"
	ErrCodeSessionInvalid   ErrorCode = "NEHONIXYPSES01"
	ErrCodeSessionExpired   ErrorCode = "NEHONIXYPSES02"
)

// ServiceError represents a structured error with code, message, and HTTP status
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new ServiceError
func New(code ErrorCode, message string, httpStatus int) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error with a ServiceError
func Wrap(code ErrorCode, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Authentication Errors

func Unauthorized(message string) *ServiceError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func InvalidToken(err error) *ServiceError {
	return Wrap(ErrCodeInvalidToken, "Invalid authentication token", http.StatusUnauthorized, err)
}

func TokenExpired() *ServiceError {
	return New(ErrCodeTokenExpired, "Authentication token has expired", http.StatusUnauthorized)
}

func InvalidSignature(err error) *ServiceError {
	return Wrap(ErrCodeInvalidSignature, "Invalid signature", http.StatusUnauthorized, err)
}

// Authorization Errors

func Forbidden(message string) *ServiceError {
	return New(ErrCodeForbidden, message, http.StatusForbidden)
}

func InsufficientFunds(required, available string) *ServiceError {
	return New(ErrCodeInsufficientFunds, "Insufficient funds", http.StatusPaymentRequired).
		WithDetails("required", required).
		WithDetails("available", available)
}

func OwnershipRequired(resource string) *ServiceError {
	return New(ErrCodeOwnershipRequired, "Ownership verification required", http.StatusForbidden).
		WithDetails("resource", resource)
}

// Validation Errors

func InvalidInput(field, reason string) *ServiceError {
	return New(ErrCodeInvalidInput, "Invalid input", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

func MissingParameter(param string) *ServiceError {
	return New(ErrCodeMissingParameter, "Missing required parameter", http.StatusBadRequest).
		WithDetails("parameter", param)
}

func InvalidFormat(field, expected string) *ServiceError {
	return New(ErrCodeInvalidFormat, "Invalid format", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("expected", expected)
}

func OutOfRange(field string, minValue, maxValue interface{}) *ServiceError {
	return New(ErrCodeOutOfRange, "Value out of range", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("min", minValue).
		WithDetails("max", maxValue)
}

// Resource Errors

func NotFound(resource, id string) *ServiceError {
	return New(ErrCodeNotFound, "Resource not found", http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

func AlreadyExists(resource, id string) *ServiceError {
	return New(ErrCodeAlreadyExists, "Resource already exists", http.StatusConflict).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

func Conflict(message string) *ServiceError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// Service Errors

func Internal(message string, err error) *ServiceError {
	return Wrap(ErrCodeInternal, message, http.StatusInternalServerError, err)
}

func UpstreamError(upstream string, err error) *ServiceError {
	return Wrap(ErrCodeUpstreamError, "Upstream request failed", http.StatusBadGateway, err).
		WithDetails("upstream", upstream)
}

func ExternalAPIError(service string, err error) *ServiceError {
	return Wrap(ErrCodeExternalAPI, "External API call failed", http.StatusBadGateway, err).
		WithDetails("service", service)
}

func Timeout(operation string) *ServiceError {
	return New(ErrCodeTimeout, "Operation timed out", http.StatusGatewayTimeout).
		WithDetails("operation", operation)
}

func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Cryptographic Errors

func EncryptionFailed(err error) *ServiceError {
	return Wrap(ErrCodeEncryptionFailed, "Encryption failed", http.StatusInternalServerError, err)
}

func DecryptionFailed(err error) *ServiceError {
	return Wrap(ErrCodeDecryptionFailed, "Decryption failed", http.StatusInternalServerError, err)
}

func SigningFailed(err error) *ServiceError {
	return Wrap(ErrCodeSigningFailed, "Signing failed", http.StatusInternalServerError, err)
}

func VerificationFailed(err error) *ServiceError {
	return Wrap(ErrCodeVerificationFailed, "Verification failed", http.StatusUnauthorized, err)
}

// Plugin Errors

func PluginFailed(pluginID string, err error) *ServiceError {
	return Wrap(ErrCodePluginFailed, "Plugin execution failed", http.StatusInternalServerError, err).
		WithDetails("plugin", pluginID)
}

func PluginBudgetExceeded(pluginID string, budget time.Duration) *ServiceError {
	return New(ErrCodePluginBudget, "Plugin exceeded its execution budget", http.StatusInternalServerError).
		WithDetails("plugin", pluginID).
		WithDetails("budget", budget.String())
}

func CircuitOpen(pluginID string) *ServiceError {
	return New(ErrCodeCircuitOpen, "Plugin circuit breaker is open", http.StatusServiceUnavailable).
		WithDetails("plugin", pluginID)
}

func DependencyCycle(cycle []string) *ServiceError {
	return New(ErrCodeDependencyCycle, "Plugin dependency cycle detected", http.StatusInternalServerError).
		WithDetails("cycle", cycle)
}

func HookNotPermitted(pluginID, hook string) *ServiceError {
	return New(ErrCodeHookNotPermitted, "Plugin is not permitted to register this hook", http.StatusForbidden).
		WithDetails("plugin", pluginID).
		WithDetails("hook", hook)
}

// Security Errors

func AccessDenied(message string) *ServiceError {
	if message == "" {
		message = "Access denied"
	}
	return New(ErrCodeAccessDenied, message, http.StatusForbidden)
}

func InjectionBlocked(detector, field string) *ServiceError {
	return New(ErrCodeInjectionBlocked, "Request blocked by injection detector", http.StatusBadRequest).
		WithDetails("detector", detector).
		WithDetails("field", field)
}

func ScoredAccessDenied(score float64, threshold float64) *ServiceError {
	return New(ErrCodeScoredAccess, "Request classification score below threshold", http.StatusForbidden).
		WithDetails("score", score).
		WithDetails("threshold", threshold)
}

func SessionInvalid(reason string) *ServiceError {
	return New(ErrCodeSessionInvalid, "Session is invalid", http.StatusUnauthorized).
		WithDetails("reason", reason)
}

func SessionExpired() *ServiceError {
	return New(ErrCodeSessionExpired, "Session has expired", http.StatusUnauthorized)
}

// Helper functions

// IsServiceError checks if an error is a ServiceError
func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

// GetServiceError extracts a ServiceError from an error chain
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Security error envelope (spec.md §6)

// DebugInfo carries the extra "xypriss" object attached to the envelope
// when the server runs in debug mode. UAFragment is the User-Agent header
// cut to at most its first 80 bytes, to keep the envelope small.
type DebugInfo struct {
	Module     string                 `json:"module"`
	InnerCode  ErrorCode              `json:"innerCode"`
	Details    map[string]interface{} `json:"details,omitempty"`
	UAFragment string                 `json:"uaFragment,omitempty"`
}

// SecurityEnvelope is the wire shape returned for request-scoped security
// failures (access denied, injection blocked, scored-access rejection,
// invalid/expired session).
type SecurityEnvelope struct {
	Error     string     `json:"error"`
	Code      ErrorCode  `json:"code"`
	Timestamp time.Time  `json:"timestamp"`
	XyPriss   *DebugInfo `json:"xypriss,omitempty"`
}

// NewSecurityEnvelope builds the envelope for err. module identifies the
// originating component (e.g. "classify", "inject", "xems"); debug toggles
// whether the xypriss diagnostic object is attached, and userAgent supplies
// the raw header value for truncation into DebugInfo.UAFragment.
func NewSecurityEnvelope(err *ServiceError, module string, debug bool, userAgent string) SecurityEnvelope {
	env := SecurityEnvelope{
		Error:     err.Message,
		Code:      err.Code,
		Timestamp: nowFunc(),
	}
	if debug {
		env.XyPriss = &DebugInfo{
			Module:     module,
			InnerCode:  err.Code,
			Details:    err.Details,
			UAFragment: truncateUA(userAgent),
		}
	}
	return env
}

func truncateUA(ua string) string {
	const maxLen = 80
	if len(ua) <= maxLen {
		return ua
	}
	return ua[:maxLen]
}

// nowFunc is a seam for tests; production code always uses time.Now.
var nowFunc = time.Now
