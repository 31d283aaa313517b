package errors

import (
	"errors"
	"fmt"

	"github.com/Proton-105/payout-bot/internal/domain"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: fmt.Sprintf("Неверный формат данных. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Временная проблема, попробуйте позже",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("External API error: %s", apiName),
		UserMessage: "Сервис временно недоступен",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "Операция невозможна в текущем состоянии",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Слишком много запросов. Попробуйте через %d секунд", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewAuthorizationError(cause error) *AppError {
	return &AppError{
		Code:        "E600",
		Message:     "Access denied",
		UserMessage: "Нет доступа.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

func NewNotFoundError(what string, cause error) *AppError {
	return &AppError{
		Code:        "E700",
		Message:     fmt.Sprintf("%s not found", what),
		UserMessage: fmt.Sprintf("%s не найден.", what),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

func NewConflictError(userMsg string, cause error) *AppError {
	return &AppError{
		Code:        "E800",
		Message:     fmt.Sprintf("Conflict: %v", cause),
		UserMessage: userMsg,
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

// FromDomain maps domain sentinel errors onto AppErrors with user-facing text.
// Unknown errors are returned as a retryable database error.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := classify(err); ok {
		return appErr
	}

	return NewDatabaseError(err)
}

func classify(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}

	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return NewNotFoundError("Пользователь", err), true
	case errors.Is(err, domain.ErrApplicationNotFound):
		return &AppError{Code: "E700", Message: err.Error(), UserMessage: "Заявка не найдена.", Severity: SeverityLow, cause: err}, true
	case errors.Is(err, domain.ErrAlreadyResolved):
		return NewConflictError("Заявка уже обработана.", err), true
	case errors.Is(err, domain.ErrInsufficientBalance):
		return NewConflictError("Недостаточно средств на балансе.", err), true
	case errors.Is(err, domain.ErrZeroAmount):
		return &AppError{Code: "E100", Message: err.Error(), UserMessage: "Сумма должна быть ненулевой.", Severity: SeverityLow, cause: err}, true
	case errors.Is(err, domain.ErrUnknownRank):
		return &AppError{Code: "E100", Message: err.Error(), UserMessage: "Неизвестный ранг.", Severity: SeverityLow, cause: err}, true
	case errors.Is(err, domain.ErrUnknownRole):
		return &AppError{Code: "E100", Message: err.Error(), UserMessage: "Неизвестная роль.", Severity: SeverityLow, cause: err}, true
	case errors.Is(err, domain.ErrForbidden):
		return NewAuthorizationError(err), true
	case errors.Is(err, domain.ErrProtectedUser):
		return NewConflictError("Суперадминистратора изменить нельзя.", err), true
	default:
		return nil, false
	}
}

// IsUserFacing reports whether err is an expected outcome caused by the user,
// such as bad input, a missing target or a denied action.
func IsUserFacing(err error) bool {
	appErr, ok := classify(err)
	return ok && appErr.Severity == SeverityLow
}

// IsInvalidInput reports whether retyping the input could fix err.
func IsInvalidInput(err error) bool {
	appErr, ok := classify(err)
	return ok && appErr.Code == "E100"
}
