package booking

import (
	"strings"
	"unicode/utf8"
)

// CancelReasonOther selects the free-text reason instead of a preset.
const CancelReasonOther = "OTHER"

const maxCancelReasonRunes = 140

type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string { return e.Message }

var (
	ErrCancelReasonRequired = ValidationError{
		Code:    "CANCEL_REASON_REQUIRED",
		Message: "Cancel reason required for confirmed bookings.",
	}
	errCancelReasonRequiredByPolicy = ValidationError{
		Code:    "CANCEL_REASON_REQUIRED",
		Message: "Cancel reason required.",
	}
	ErrSitterInvalid = ValidationError{
		Code:    "SITTER_INVALID",
		Message: "Sitter must be an existing user with the SITTER role.",
	}
)

// CancelRequest carries the operator's reason for a cancel.
type CancelRequest struct {
	Reason      string `json:"reason"`
	ReasonOther string `json:"reasonOther"`
}

// Text returns the effective reason: the free text when Reason is OTHER, the preset otherwise.
// It is trimmed and capped at 140 characters. Empty means no reason was given.
func (r CancelRequest) Text() string {
	raw := strings.TrimSpace(r.Reason)
	if raw == CancelReasonOther {
		raw = strings.TrimSpace(r.ReasonOther)
	}
	return truncateRunes(raw, maxCancelReasonRunes)
}

func cancelNote(reason string) string {
	if reason == "" {
		return noteCanceled
	}
	return noteCanceled + " · " + reason
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
