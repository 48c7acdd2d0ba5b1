package ozx

import (
	"errors"
	"fmt"
)

var (
	// ErrArchiveOpen is returned when an archive is missing, unreadable or
	// not a multiscale image archive
	ErrArchiveOpen = errors.New("cannot open archive")
	// ErrArrayIO is returned when reading or writing level data fails
	ErrArrayIO = errors.New("array i/o failed")
	// ErrTrailer is returned when the archive index cannot be stamped
	ErrTrailer = errors.New("cannot write archive index")
)

// Stage names the step of a read or write that failed
type Stage string

const (
	StageBuild    Stage = "build"
	StageAssemble Stage = "assemble"
	StageCreate   Stage = "create"
	StageWrite    Stage = "write"
	StageClose    Stage = "close"
	StageTrailer  Stage = "trailer"
	StageOpen     Stage = "open"
	StageRead     Stage = "read"
)

// Error locates a failure. Level is -1 when the failure is not tied to one
// pyramid level.
type Error struct {
	Stage Stage
	Level int
	Err   error
}

func (e *Error) Error() string {
	if e.Level < 0 {
		return fmt.Sprintf("ozx %s: %s", e.Stage, e.Err)
	}
	return fmt.Sprintf("ozx %s level %d: %s", e.Stage, e.Level, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func stageError(stage Stage, level int, sentinel, err error) error {
	if sentinel != nil && !errors.Is(err, sentinel) {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return &Error{Stage: stage, Level: level, Err: err}
}
