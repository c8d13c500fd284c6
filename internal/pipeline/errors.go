package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoInstance reports that the resolver found zero usable wings in an
// image. The image is skipped and recorded, never a crash.
var ErrNoInstance = errors.New("no wing instance found")

// DecodeError marks an unreadable or corrupt input image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
