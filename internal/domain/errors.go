package domain

import "errors"

var (
	// ErrDisciplineNotFound is returned for an unknown discipline id.
	ErrDisciplineNotFound = errors.New("discipline not found")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrInvalidBank is returned when a question bank fails validation.
	ErrInvalidBank = errors.New("invalid question bank")
	// ErrBankNotLoaded is returned when an operation needs a question bank that is absent.
	ErrBankNotLoaded = errors.New("question bank not loaded")
	// ErrQuestionNotFound indicates a submitted question id is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option index is out of range.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNameRequired is returned when a participant name is empty.
	ErrNameRequired = errors.New("participant name is required")
	// ErrNotInProgress is returned for quiz actions outside an in-progress attempt.
	ErrNotInProgress = errors.New("quiz not in progress")
	// ErrAlreadyStarted is returned when starting an attempt that is running or completed.
	ErrAlreadyStarted = errors.New("quiz already started")
	// ErrQuestionLocked is returned when answering after the countdown expired.
	ErrQuestionLocked = errors.New("question locked")
	// ErrPINRequired is returned when a join request carries no PIN.
	ErrPINRequired = errors.New("session pin is required")
	// ErrInvalidPIN is returned for a wrong or expired session PIN.
	ErrInvalidPIN = errors.New("invalid or expired session pin")
	// ErrParticipantNotFound is returned when a participant id is unknown.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrResultNotFound is returned when no completed attempt exists for a participant.
	ErrResultNotFound = errors.New("result not found")
)
