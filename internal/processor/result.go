package processor

import "github.com/Smart-Services-NE/notification-service/internal/events"

// ErrorCode classifies a pipeline failure.
type ErrorCode string

const (
	CodeInvalidMessage ErrorCode = "INVALID_MESSAGE"
	CodeDuplicate      ErrorCode = "DUPLICATE"
	CodeSendFailed     ErrorCode = "SEND_FAILED"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeDataLayer      ErrorCode = "DATA_LAYER_ERROR"
	CodePublishError   ErrorCode = "PUBLISH_ERROR"
	CodeCancelled      ErrorCode = "CANCELLED"
)

// ErrorInfo is the caller-visible failure.
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code ErrorCode, msg string) *ErrorInfo {
	return &ErrorInfo{Code: code, Message: msg}
}

// ProcessResult is the outcome of Process.
// Duplicate is set when the message_id had already been observed.
type ProcessResult struct {
	Success   bool
	Duplicate bool
	Record    *events.NotificationRecord
	Error     *ErrorInfo
}

// RetryResult is the outcome of Retry.
type RetryResult struct {
	Success   bool       `json:"success"`
	MessageID string     `json:"message_id,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
}
