package core

// # Error Codes Reference
//
// Technical errors are mapped to messages an operator can act on. Each has a
// code that can be quoted when asking for help.
//
// # Workflow (WF001-WF099)
//
//	WF001 - Step not allowed: The action is not available at this step
//	        Patterns: "workflow rejected", "cannot "
//	WF002 - Branch setup incomplete: Finish branch setup first
//	        Patterns: "branch setup is incomplete"
//	WF003 - Blocking errors: The dataset has errors that must be fixed
//	        Patterns: "blocking error"
//	WF004 - Commit running: A submission is already in progress
//	        Patterns: "commit in progress"
//	WF005 - Already submitted: The dataset was already submitted
//	        Patterns: "dataset is frozen"
//	WF006 - No submission: Nothing has been submitted yet
//	        Patterns: "no commit has been started"
//	WF007 - Unknown row: The row being edited does not exist
//	        Patterns: "out of range"
//	WF008 - Duplicate mapping: The teacher is already mapped to that subject
//	        Patterns: "mapping already exists"
//	WF009 - Unknown edit: The edit operation is not supported
//	        Patterns: "unknown edit operation"
//	WF010 - Incomplete edit: The edit is missing its record
//	        Patterns: "incomplete edit"
//
// # Generation service (GEN001-GEN099)
//
//	GEN001 - Unreachable: The timetable generator could not be reached
//	         Patterns: "generation service unreachable"
//	GEN002 - Rejected: The generator rejected the dataset
//	         Patterns: "generation rejected"
//	GEN003 - Busy: Too many submissions are running
//	         Patterns: "too many commits"
//	GEN004 - Bad response: The generator answered with something unreadable
//	         Patterns: "invalid generation response"
//
// # Sessions (SES001-SES099)
//
//	SES001 - Session expired: Patterns "session not found"
//	SES002 - Unknown branch: Patterns "branch not found"
//	SES003 - No draft: Patterns "no draft to restore"
//
// # Storage (STO001-STO099)
//
//	STO001 - Store unreachable: Patterns "connection refused"
//	STO002 - Store interrupted: Patterns "connection reset"
//	STO003 - Store failure: Patterns "store:"
//
// # Requests (REQ001-REQ099)
//
//	REQ001 - Malformed body: Patterns "invalid request body"
//	REQ002 - Invalid fields: Patterns "validation failed"
//	REQ003 - Body too large: Patterns "request body too large"
//	REQ004 - Cancelled: Patterns "context canceled"
//	REQ005 - Timed out: Patterns "context deadline exceeded", "timeout"
//
// # Rate limiting (RATE001)
//
//	RATE001 - Too many requests: Patterns "rate limit"
//
// # Default (ERR000)
//
// Fallback when nothing matches. Check the server logs for the original error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns are listed before general ones.

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

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Generation service. Listed first because transport errors wrap
	// context and connection errors that would otherwise match below.
	{
		pattern: "generation service unreachable",
		msg: UserMessage{
			Message: "The timetable generator could not be reached",
			Action:  "Check that the generation service is running, then submit again",
			Code:    "GEN001",
		},
	},
	{
		pattern: "generation rejected",
		msg: UserMessage{
			Message: "The timetable generator rejected the dataset",
			Action:  "Review the reported stage and details, fix the data and submit again",
			Code:    "GEN002",
		},
	},
	{
		pattern: "too many commits",
		msg: UserMessage{
			Message: "Too many submissions are running",
			Action:  "Please wait a moment and submit again",
			Code:    "GEN003",
		},
	},
	{
		pattern: "invalid generation response",
		msg: UserMessage{
			Message: "The timetable generator returned an unreadable response",
			Action:  "Please try again or contact support",
			Code:    "GEN004",
		},
	},

	// Workflow guards.
	{
		pattern: "branch setup is incomplete",
		msg: UserMessage{
			Message: "Branch setup is incomplete",
			Action:  "Add at least one academic year and working day to the branch first",
			Code:    "WF002",
		},
	},
	{
		pattern: "blocking error",
		msg: UserMessage{
			Message: "The dataset has errors that must be fixed",
			Action:  "Open the validation report and resolve every error",
			Code:    "WF003",
		},
	},
	{
		pattern: "commit in progress",
		msg: UserMessage{
			Message: "A submission is already in progress",
			Action:  "Wait for the current submission to finish",
			Code:    "WF004",
		},
	},
	{
		pattern: "dataset is frozen",
		msg: UserMessage{
			Message: "The dataset has already been submitted",
			Action:  "Start a new session to collect more data",
			Code:    "WF005",
		},
	},
	{
		pattern: "no commit has been started",
		msg: UserMessage{
			Message: "Nothing has been submitted yet",
			Action:  "Confirm the dataset and submit it first",
			Code:    "WF006",
		},
	},
	{
		pattern: "out of range",
		msg: UserMessage{
			Message: "The row being edited does not exist",
			Action:  "Reload the session and try the edit again",
			Code:    "WF007",
		},
	},
	{
		pattern: "mapping already exists",
		msg: UserMessage{
			Message: "This teacher is already mapped to that subject",
			Action:  "Pick a different teacher or subject",
			Code:    "WF008",
		},
	},
	{
		pattern: "unknown edit operation",
		msg: UserMessage{
			Message: "The edit operation is not supported",
			Action:  "Use one of the documented edit operations",
			Code:    "WF009",
		},
	},
	{
		pattern: "incomplete edit",
		msg: UserMessage{
			Message: "The edit is missing the record it changes",
			Action:  "Include the teacher, subject or mapping being edited",
			Code:    "WF010",
		},
	},
	{
		pattern: "workflow rejected",
		msg: UserMessage{
			Message: "That action is not available at this step",
			Action:  "Finish or cancel the current step first",
			Code:    "WF001",
		},
	},
	{
		pattern: "cannot ",
		msg: UserMessage{
			Message: "That action is not available at this step",
			Action:  "Finish or cancel the current step first",
			Code:    "WF001",
		},
	},

	// Sessions.
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Session not found",
			Action:  "The session may have expired. Start or resume a session",
			Code:    "SES001",
		},
	},
	{
		pattern: "branch not found",
		msg: UserMessage{
			Message: "Unknown branch",
			Action:  "Choose a configured branch",
			Code:    "SES002",
		},
	},
	{
		pattern: "no draft to restore",
		msg: UserMessage{
			Message: "There is no saved draft",
			Action:  "Continue with the current data",
			Code:    "SES003",
		},
	},

	// Storage.
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the draft store",
			Action:  "Please try again in a few moments",
			Code:    "STO001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Connection to the draft store was interrupted",
			Action:  "Please try again",
			Code:    "STO002",
		},
	},
	{
		pattern: "store:",
		msg: UserMessage{
			Message: "Saving or loading work failed",
			Action:  "Please try again. Unsaved changes may need to be re-entered",
			Code:    "STO003",
		},
	},

	// Requests.
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a valid JSON body",
			Code:    "REQ001",
		},
	},
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Some request fields are missing or invalid",
			Action:  "Check the listed fields and try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The request is too large",
			Action:  "Split the data into smaller batches",
			Code:    "REQ003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ005",
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

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned.
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

// FormatUserError renders an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
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
