package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyInitialized is returned by a second InitAll call.
var ErrAlreadyInitialized = errors.New("plugins already initialized")

// DuplicatePluginError reports two descriptors with the same name.
type DuplicatePluginError struct {
	Name string
}

func (e *DuplicatePluginError) Error() string {
	return fmt.Sprintf("plugin %q registered twice", e.Name)
}

// MissingDependencyError reports a dependency on a plugin that was never
// registered.
type MissingDependencyError struct {
	Plugin     string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("plugin %q depends on unregistered plugin %q", e.Plugin, e.Dependency)
}

// CyclicDependencyError reports a dependency cycle. Cycle starts and ends with
// the same plugin, e.g. [a b a].
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic plugin dependency: " + strings.Join(e.Cycle, " -> ")
}

// InitError wraps the failure of one plugin's Init.
type InitError struct {
	Plugin string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init plugin %q: %v", e.Plugin, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
