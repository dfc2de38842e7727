package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors. Every failure the service can
// report maps to exactly one code and one HTTP status; Extra carries
// code-specific diagnostic fields merged into the response body.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Extra      map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(status int, code, message string, extra map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Extra: extra}
}

// NewMissingFields reports absent required request fields.
func NewMissingFields() error {
	return NewDomainError(http.StatusBadRequest, "MISSING_FIELDS", "pseudo, subject and details are required", nil)
}

// NewBotNotReady signals the gateway session is down; callers may retry.
func NewBotNotReady() error {
	return NewDomainError(http.StatusServiceUnavailable, "BOT_NOT_READY", "bot is not connected yet, retry in a few seconds", nil)
}

// NewMissingConfig reports incomplete provisioning configuration.
func NewMissingConfig(missing []string) error {
	return NewDomainError(http.StatusInternalServerError, "MISSING_CONFIG", "ticket configuration is incomplete", map[string]any{"missing": missing})
}

// NewBadGuildID reports an unresolvable target guild.
func NewBadGuildID(err error) error {
	e := NewDomainError(http.StatusInternalServerError, "BAD_GUILD_ID", "configured guild could not be resolved", nil)
	e.Err = err
	return e
}

// NewBadCategoryID reports an unresolvable target category.
func NewBadCategoryID(err error) error {
	e := NewDomainError(http.StatusInternalServerError, "BAD_CATEGORY_ID", "configured category could not be resolved", nil)
	e.Err = err
	return e
}

// NewNotACategory reports a category id pointing at a non-category channel.
func NewNotACategory() error {
	return NewDomainError(http.StatusInternalServerError, "NOT_A_CATEGORY", "configured category id is not a category channel", nil)
}

// NewMissingBotPerms lists the guild permissions the bot still needs.
func NewMissingBotPerms(perms []string) error {
	return NewDomainError(http.StatusInternalServerError, "MISSING_BOT_PERMS", "bot is missing required permissions", map[string]any{"missingPerms": perms})
}

// NewServerError wraps unexpected remote-call failures.
func NewServerError(err error) error {
	return &DomainError{
		Code:       "SERVER_ERROR",
		Message:    "server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if de, ok := NewServerError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "SERVER_ERROR",
		Message:    "server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
