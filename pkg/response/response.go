// Package response defines the admin API response envelope.
package response

import "time"

// Envelope represents a standardized API response
type Envelope struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	Message       string      `json:"message,omitempty"`
	CorrelationID string      `json:"correlationId"`
	Timestamp     time.Time   `json:"timestamp"`
}

// ErrorInfo represents error information in responses
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success creates a successful response
func Success(data interface{}, correlationID string) *Envelope {
	return &Envelope{
		Success:       true,
		Data:          data,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
}

// SuccessMessage creates a successful response with a message
func SuccessMessage(message, correlationID string) *Envelope {
	return &Envelope{
		Success:       true,
		Message:       message,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
}

// Error creates an error response
func Error(code, message, correlationID string) *Envelope {
	return &Envelope{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
}

// Common error codes
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeRunFailed        = "RUN_FAILED"
)
