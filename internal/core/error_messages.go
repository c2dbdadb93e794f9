package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Typed errors are matched with errors.As first; the
// remaining cases fall back to case-insensitive substring patterns.
//
// Codes by category:
//
//	SRC001  spreadsheet metadata unavailable (not found or not shared)
//	SRC002  sheet list unavailable
//	SRC003  sheet values unavailable
//	SINK001 dataset creation rejected
//	SINK002 row append rejected
//	SINK003 row deletion rejected
//	SINK004 sink credentials rejected (HTTP 401/403)
//	SINK005 sink throttling persisted through retries (HTTP 429)
//	CFG001  no sink configured
//	CFG002  unknown layout
//	RUN001  too many transfers in progress
//	RUN002  run timed out
//	RUN003  run cancelled
//	RUN004  run not found
//	RATE001 client rate limited
//	ERR000  anything else; check the logs for the technical error

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetbridge/internal/sink"
	"github.com/JonMunkholm/sheetbridge/internal/source"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgSourceMetadata = UserMessage{
		Message: "The spreadsheet could not be opened",
		Action:  "Check the spreadsheet ID and share the file with the service account",
		Code:    "SRC001",
	}
	msgSourceTitles = UserMessage{
		Message: "The list of sheets could not be read",
		Action:  "Check that the service account can read the spreadsheet",
		Code:    "SRC002",
	}
	msgSourceValues = UserMessage{
		Message: "A sheet could not be read",
		Action:  "Check the sheet name and try again",
		Code:    "SRC003",
	}
	msgSinkCreate = UserMessage{
		Message: "The dataset could not be created",
		Action:  "Check the workspace and the column definitions, then try again",
		Code:    "SINK001",
	}
	msgSinkAppend = UserMessage{
		Message: "Rows could not be added to the dataset",
		Action:  "The dataset exists but may be incomplete; repeat the transfer with replace enabled",
		Code:    "SINK002",
	}
	msgSinkDelete = UserMessage{
		Message: "Existing rows could not be deleted",
		Action:  "Check the dataset ID and try again",
		Code:    "SINK003",
	}
	msgSinkAuth = UserMessage{
		Message: "The reporting service rejected the credentials",
		Action:  "Check the client ID, secret and workspace permissions",
		Code:    "SINK004",
	}
	msgSinkThrottled = UserMessage{
		Message: "The reporting service is throttling requests",
		Action:  "Please wait a few minutes and try again",
		Code:    "SINK005",
	}
	msgNoSink = UserMessage{
		Message: "No destination is configured",
		Action:  "Configure SINK_KIND and its credentials",
		Code:    "CFG001",
	}
	msgTooMany = UserMessage{
		Message: "Too many transfers in progress",
		Action:  "Please wait a moment and try again",
		Code:    "RUN001",
	}
	msgTimeout = UserMessage{
		Message: "The transfer timed out",
		Action:  "Try again later or raise TRANSFER_TIMEOUT",
		Code:    "RUN002",
	}
	msgCancelled = UserMessage{
		Message: "The transfer was cancelled",
		Action:  "Start a new transfer when ready",
		Code:    "RUN003",
	}
	msgRunNotFound = UserMessage{
		Message: "Run not found",
		Action:  "The run may have been purged from history",
		Code:    "RUN004",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are checked after the typed errors. The first matching
// pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "unknown layout",
		msg: UserMessage{
			Message: "The sheet layout is not known",
			Action:  "Set TRANSFER_LAYOUT to a registered layout or provide TRANSFER_LAYOUT_FILE",
			Code:    "CFG002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var fetchErr *source.FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.Op {
		case source.OpMetadata:
			return msgSourceMetadata
		case source.OpTitles:
			return msgSourceTitles
		default:
			return msgSourceValues
		}
	}

	var pushErr *sink.PushError
	if errors.As(err, &pushErr) {
		switch pushErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return msgSinkAuth
		case http.StatusTooManyRequests:
			return msgSinkThrottled
		}
		switch pushErr.Op {
		case sink.OpCreate:
			return msgSinkCreate
		case sink.OpDelete:
			return msgSinkDelete
		default:
			return msgSinkAppend
		}
	}

	switch {
	case errors.Is(err, ErrNoSink):
		return msgNoSink
	case errors.Is(err, ErrTooManyTransfers):
		return msgTooMany
	case errors.Is(err, ErrRunNotFound):
		return msgRunNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, context.Canceled):
		return msgCancelled
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
