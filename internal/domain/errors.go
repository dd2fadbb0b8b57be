package domain

import "errors"

var (
	// ErrBankUnavailable is returned when a question bank source exists but cannot be read.
	ErrBankUnavailable = errors.New("question bank unavailable")
	// ErrOracleUnavailable wraps any failure to classify a question.
	ErrOracleUnavailable = errors.New("classification oracle unavailable")
	// ErrTriesExceeded is returned when an identity has used all of its attempts.
	ErrTriesExceeded = errors.New("maximum number of tries exceeded")
	// ErrPersistence indicates the submission store rejected a read or write.
	ErrPersistence = errors.New("submission store failure")
	// ErrAuthFailed indicates the shared secret did not match.
	ErrAuthFailed = errors.New("incorrect password")
	// ErrLockBusy indicates another submission for the same identity is in flight.
	ErrLockBusy = errors.New("submission already in progress")
)
