package generate

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal job failures. Timeouts are deliberately
// distinct from execution errors: a timed-out job's true outcome is
// unknown, it may still complete on the engine.
type ErrorKind string

const (
	// KindSubmission: the engine rejected or never accepted the job graph.
	KindSubmission ErrorKind = "submission"
	// KindExecution: the engine reported a node-level failure mid-job.
	KindExecution ErrorKind = "execution"
	// KindTimeout: the polling budget ran out without a terminal state.
	KindTimeout ErrorKind = "timeout"
)

// NodeError is the engine's structured detail for one failed node,
// surfaced verbatim to the caller.
type NodeError struct {
	NodeID    string   `json:"node_id"`
	NodeType  string   `json:"node_type"`
	ErrorType string   `json:"error_type"`
	Message   string   `json:"message"`
	Traceback []string `json:"traceback,omitempty"`
}

// ClassifiedError is a terminal, user-visible job failure.
type ClassifiedError struct {
	Kind    ErrorKind   `json:"kind"`
	Message string      `json:"message"`
	Nodes   []NodeError `json:"details,omitempty"`
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Classify extracts a ClassifiedError from err, or wraps err as an
// execution failure when it carries no classification.
func Classify(err error) *ClassifiedError {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}
	return &ClassifiedError{Kind: KindExecution, Message: err.Error()}
}
