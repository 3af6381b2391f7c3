package core

// error_messages.go maps technical errors to user-facing messages with codes
// support staff can look up.
//
// # Document Errors (DOC001-DOC099)
//
//	DOC001 - Document could not be decoded (wire.ErrDecode)
//	DOC002 - Document is not a valid data sheet (codec.ErrMalformedDocument)
//	DOC003 - Unknown document format (wire.ErrUnknownFormat)
//	DOC004 - Document too large ("request body too large")
//
// # Table Type Errors (TYP001-TYP099)
//
//	TYP001 - A table refers to a table type that is not defined
//
// # Merge Errors (MRG001-MRG099)
//
//	MRG001 - A shared definition conflicts with the stored one
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Import stopped on an invalid entry
//	IMP002 - Two enumerations claim the same command argument
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Requested table does not exist
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Too many runs in progress (ErrTooManyRuns)
//	RUN002 - Request was cancelled
//	RUN003 - Request timed out
//	RUN004 - Run not in history (GET /api/runs/{id})
//
// # Database Errors (DB001-DB099)
//
// Matched on the error text, case-insensitively, first match wins:
//
//	DB001 - Duplicate key            "duplicate key"
//	DB002 - Unique constraint        "unique constraint", "violates unique"
//	DB003 - Foreign key              "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused       "connection refused"
//	DB005 - Connection reset         "connection reset"
//	DB006 - Timeout                  "timeout"
//	DB007 - Deadlock or locked file  "deadlock", "database is locked"
//	DB008 - Any other store failure  (ErrIO)
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs for the original
// error when a user reports ERR000.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dictx/internal/codec"
	"github.com/JonMunkholm/dictx/internal/dictionary"
	"github.com/JonMunkholm/dictx/internal/wire"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorMatch recognizes one class of error by identity rather than by text.
type errorMatch struct {
	match func(error) bool
	msg   UserMessage
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func as[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// typedMatches are checked in order before the text patterns. Decode
// failures also wrap ErrMalformedDocument, so DOC001 comes first.
var typedMatches = []errorMatch{
	{is(ErrTooManyRuns), UserMessage{
		Message: "Too many exports and imports are running",
		Action:  "Please wait a moment and try again",
		Code:    "RUN001",
	}},
	{is(context.Canceled), UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "RUN002",
	}},
	{is(context.DeadlineExceeded), UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller document or fewer tables",
		Code:    "RUN003",
	}},
	{is(wire.ErrDecode), UserMessage{
		Message: "The document could not be read",
		Action:  "Check that the file matches the selected format",
		Code:    "DOC001",
	}},
	{is(codec.ErrMalformedDocument), UserMessage{
		Message: "The document is not a valid data sheet",
		Action:  "Export the document again from a dictionary",
		Code:    "DOC002",
	}},
	{is(wire.ErrUnknownFormat), UserMessage{
		Message: "Unknown document format",
		Action:  "Use one of the formats listed by /api/formats",
		Code:    "DOC003",
	}},
	{as[*codec.UnknownTableTypeError](), UserMessage{
		Message: "A table refers to a table type that is not defined",
		Action:  "Include the table type definitions in the document",
		Code:    "TYP001",
	}},
	{as[*dictionary.MergeConflictError](), UserMessage{
		Message: "A definition in the document conflicts with the dictionary",
		Action:  "Rename or align the conflicting definition and import again",
		Code:    "MRG001",
	}},
	{as[*codec.AbortError](), UserMessage{
		Message: "Import stopped on an invalid entry",
		Action:  "Fix the entry or import again with on_error=ignore",
		Code:    "IMP001",
	}},
	{as[*codec.AmbiguityError](), UserMessage{
		Message: "Two enumerations describe the same command argument",
		Action:  "Keep one enumeration per argument",
		Code:    "IMP002",
	}},
	{is(codec.ErrTableNotFound), UserMessage{
		Message: "Table not found",
		Action:  "Verify the table name is correct",
		Code:    "EXP001",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps request and store error text (case-insensitive) to user messages.
// The first matching pattern wins.
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Document exceeds the maximum size",
			Action:  "Import fewer tables per document",
			Code:    "DOC004",
		},
	},

	// =========================================================================
	// Database Constraint Errors (DB001-DB003)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check the document for duplicate table names",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check the document for duplicate definitions",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review the document for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure referenced definitions are imported first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure referenced definitions are imported first",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
}

var storeMessage = UserMessage{
	Message: "The dictionary could not be read or written",
	Action:  "Please try again or contact support",
	Code:    "DB008",
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Known error
// types are recognized first, then store error text, then ErrIO. Anything
// else maps to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, m := range typedMatches {
		if m.match(err) {
			return m.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.Is(err, ErrIO) {
		return storeMessage
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
