package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/QuantumNous/image-studio/dto"
	"github.com/QuantumNous/image-studio/metrics"
)

var (
	ErrInvalidBody          = errors.New("request body is not a JSON object")
	ErrEmptyPrompt          = errors.New("prompt is empty or not a string")
	ErrPromptTooLong        = errors.New("prompt exceeds maximum length")
	ErrInvalidParameters    = errors.New("invalid generation parameters")
	ErrTokenNotConfigured   = errors.New("inference API token not configured")
	ErrEmptyUpstreamContent = errors.New("inference API returned empty content")
	ErrModelLoading         = errors.New("model is loading")
	ErrUpstreamStatus       = errors.New("inference API returned an error status")
	ErrUpstreamReported     = errors.New("inference API reported an error")
	ErrUpstreamTimeout      = errors.New("inference API call timed out")
	ErrRequestCanceled      = errors.New("request canceled by client")
)

type ErrorKind string

const (
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindTransient     ErrorKind = "transient_upstream"
	ErrorKindUpstream      ErrorKind = "upstream"
	ErrorKindInternal      ErrorKind = "internal"
)

func (k ErrorKind) outcome() string {
	switch k {
	case ErrorKindValidation:
		return metrics.OutcomeValidationError
	case ErrorKindConfiguration:
		return metrics.OutcomeConfigError
	case ErrorKindTransient:
		return metrics.OutcomeTransientError
	case ErrorKindUpstream:
		return metrics.OutcomeUpstreamError
	}
	return metrics.OutcomeInternalError
}

// GenerationError 生成失败的错误，Status 与 Message 返回给调用方，Err 仅写入日志
type GenerationError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Detail  any
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Kind, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) ToResult() *dto.GenerationResult {
	return dto.NewErrorResult(e.Message, e.Detail)
}

func newValidationError(status int, msg string, err error) *GenerationError {
	return &GenerationError{Kind: ErrorKindValidation, Status: status, Message: msg, Err: err}
}

func newInternalError(err error) *GenerationError {
	return &GenerationError{
		Kind:    ErrorKindInternal,
		Status:  http.StatusInternalServerError,
		Message: "Internal server error.",
		Err:     err,
	}
}
