// Package core provides the credential comparison pipeline.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum size limit
//	          Action: Export fewer entries or raise UPLOAD_MAX_FILE_SIZE
//	          Patterns: "file too large", "request body too large"
//
//	FILE003 - No file: No file was selected
//	          Action: Choose a CSV export to upload
//	          Patterns: "no file provided"
//
//	FILE004 - Unreadable file: The file could not be read
//	          Action: Check the file is a CSV export and try again
//	          Patterns: "read export"
//
// # Slot Errors (SLOT001-SLOT099)
//
//	SLOT001 - Invalid slot: Unknown source slot
//	          Action: Upload to source A or source B
//	          Patterns: "invalid slot"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: Your loaded files are no longer available
//	         Action: Upload both exports again
//	         Patterns: "session not found"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy: Too many files are being processed
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent uploads"
//
//	UPL002 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	UPL003 - Request timeout: Request timed out
//	         Action: Try again with a smaller export
//	         Patterns: "context deadline exceeded"
//
// # History Errors (HIST001-HIST099)
//
//	HIST001 - History unavailable: Comparison history could not be read
//	          Action: Comparisons still work; check the history database
//	          Patterns: "history"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Patterns are matched case-insensitively with strings.Contains against the
// full error chain text. The first match wins, so specific patterns come
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE004)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Export fewer entries or raise UPLOAD_MAX_FILE_SIZE",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Export fewer entries or raise UPLOAD_MAX_FILE_SIZE",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a CSV export to upload",
			Code:    "FILE003",
		},
	},
	{
		pattern: "read export",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check the file is a CSV export and try again",
			Code:    "FILE004",
		},
	},

	// =========================================================================
	// Slot and Session Errors (SLOT001, SES001)
	// =========================================================================
	{
		pattern: "invalid slot",
		msg: UserMessage{
			Message: "Unknown source slot",
			Action:  "Upload to source A or source B",
			Code:    "SLOT001",
		},
	},
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Your loaded files are no longer available",
			Action:  "Upload both exports again",
			Code:    "SES001",
		},
	},

	// =========================================================================
	// Upload Errors (UPL001-UPL003)
	// =========================================================================
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "Too many files are being processed",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again with a smaller export",
			Code:    "UPL003",
		},
	},

	// =========================================================================
	// History (HIST001)
	// =========================================================================
	{
		pattern: "history",
		msg: UserMessage{
			Message: "Comparison history could not be read",
			Action:  "Comparisons still work; check the history database",
			Code:    "HIST001",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("load slot a: %w", ErrFileTooLarge))
//	// msg.Code == "FILE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
