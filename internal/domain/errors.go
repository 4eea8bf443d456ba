package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no exam session exists for an ID.
	ErrSessionNotFound = errors.New("exam session not found")
	// ErrSessionNotActive is returned when an operation needs a running session.
	ErrSessionNotActive = errors.New("exam session is not active")
	// ErrSessionLoading is returned while the question set is still being fetched.
	ErrSessionLoading = errors.New("exam session is loading questions")
	// ErrAlreadySubmitted is returned by mutators once the session is scored.
	ErrAlreadySubmitted = errors.New("exam session already submitted")
	// ErrAlreadyStarted is returned when Start is called outside NotStarted.
	ErrAlreadyStarted = errors.New("exam session already started")
	// ErrNotSubmitted is returned when a report is requested before scoring.
	ErrNotSubmitted = errors.New("exam session not submitted yet")
	// ErrNoQuestions indicates the loaded question set is empty.
	ErrNoQuestions = errors.New("question set is empty")
	// ErrIndexOutOfRange indicates a question index outside the question set.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrInvalidOption indicates an option label other than A, B, C or D.
	ErrInvalidOption = errors.New("invalid option label")
	// ErrMalformedPayload indicates the provider reply had no question list.
	ErrMalformedPayload = errors.New("malformed question payload")
	// ErrQuestionSetNotFound indicates no paper exists for the test type.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrLoadCanceled is returned when an in-flight load is aborted.
	ErrLoadCanceled = errors.New("question load canceled")
)
