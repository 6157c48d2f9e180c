package study

import "errors"

// Sentinel errors for the study engine. Callers distinguish "client logic bug"
// (out of order, invalid input) from "retry is safe" (conflict, dependency)
// with errors.Is.
var (
	// ErrNotFound covers missing topics, items and sessions, and mutating
	// calls against a FINISHED session
	ErrNotFound = errors.New("study: not found")
	// ErrInvalidInput covers missing identifiers and out-of-bounds values
	ErrInvalidInput = errors.New("study: invalid input")
	// ErrInvalidGrade is returned for grades outside 0-3
	ErrInvalidGrade = errors.New("study: grade out of range")
	// ErrOutOfOrder means the graded item is not the queue head; nothing
	// was mutated
	ErrOutOfOrder = errors.New("study: item does not match queue head")
	// ErrNoContent means the topic has no items at all
	ErrNoContent = errors.New("study: no content available")
	// ErrEmptyQueue means an open session was found holding an empty queue;
	// the session has been finalized as repair
	ErrEmptyQueue = errors.New("study: session queue empty")
	// ErrConflict means a concurrent writer updated the session first;
	// the caller may retry
	ErrConflict = errors.New("study: concurrent session update")
	// ErrDependency means a collaborator (content provider, practice-record
	// sink) is unreachable
	ErrDependency = errors.New("study: dependency failure")
)
