package supervisor

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// ErrInputClosed is returned by Send when the child no longer accepts input.
// It is a warning for the operator; the child's output keeps being monitored.
var ErrInputClosed = errors.New("child input closed")

// SpawnKind classifies why a child could not be started.
type SpawnKind int

const (
	SpawnNotFound SpawnKind = iota + 1
	SpawnPermission
	SpawnPlatform
)

func (k SpawnKind) String() string {
	switch k {
	case SpawnNotFound:
		return "not found"
	case SpawnPermission:
		return "permission denied"
	default:
		return "platform error"
	}
}

// SpawnError reports a failure to start the child process.
type SpawnError struct {
	Kind SpawnKind
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

func classifySpawn(path string, err error) *SpawnError {
	kind := SpawnPlatform
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		kind = SpawnNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = SpawnPermission
	}
	return &SpawnError{Kind: kind, Path: path, Err: err}
}
