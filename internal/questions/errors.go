package questions

import (
	"errors"
	"fmt"
)

// Stages of per-path processing.
const (
	StagePresign = "presign"
	StageFetch   = "fetch"
	StageDecode  = "decode"
)

var ErrNoPaths = errors.New("no file paths provided")

// PathError reports the first path whose retrieval failed. Paths after it
// were never attempted.
type PathError struct {
	Path  string
	Stage string
	Err   error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("failed to process file %s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }
