package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRegistrySealed is returned when registering after startup completed.
var ErrRegistrySealed = errors.New("schema registry is sealed")

// DuplicateSchemaError is returned when a name is registered twice.
type DuplicateSchemaError struct {
	Name string
}

func (e *DuplicateSchemaError) Error() string {
	return fmt.Sprintf("schema %q already registered", e.Name)
}

// UnknownSchemaError is returned when resolving a name that was never registered.
type UnknownSchemaError struct {
	Name string
}

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("unknown schema %q", e.Name)
}

// Issue codes.
const (
	IssueRequired     = "required"
	IssueInvalidType  = "invalid_type"
	IssueTooSmall     = "too_small"
	IssueTooBig       = "too_big"
	IssueNotInteger   = "not_integer"
	IssueInvalidEnum  = "invalid_enum_value"
	IssueInvalidMatch = "invalid_string"
	IssueCustom       = "custom"
	IssueUnencodable  = "unencodable"
)

// Issue is a single (field path, reason) pair.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError reports every issue found in an inbound value.
type ValidationError struct {
	Schema string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Schema, joinIssues(e.Issues))
}

// Fields returns the distinct paths with issues, in report order.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]bool, len(e.Issues))
	var fields []string
	for _, is := range e.Issues {
		if !seen[is.Path] {
			seen[is.Path] = true
			fields = append(fields, is.Path)
		}
	}
	return fields
}

// SerializationError reports an outbound value that does not match its
// declared response shape. It indicates a handler defect.
type SerializationError struct {
	Schema string
	Issues []Issue
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("response does not match %s: %s", e.Schema, joinIssues(e.Issues))
}

func joinIssues(issues []Issue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.String()
	}
	return strings.Join(parts, "; ")
}
