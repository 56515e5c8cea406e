package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drummonds/pdfbridge/native"
)

var (
	ErrEmptyInput    = errors.New("empty input")
	ErrPassword      = errors.New("password required or incorrect")
	ErrFormat        = errors.New("cannot open document")
	ErrPageLoad      = errors.New("cannot load page")
	ErrInvalidHandle = errors.New("invalid handle")
	ErrResourceInUse = errors.New("resource in use")
	ErrInvalidRange  = errors.New("invalid range")
	ErrSave          = errors.New("save failed")
)

// Error records the operation, handle and engine error code of a failure.
type Error struct {
	Op     string
	Handle Handle
	Code   native.ErrorCode
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("bridge: ")
	b.WriteString(e.Op)
	if e.Handle != 0 {
		fmt.Fprintf(&b, " %v", e.Handle)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Code != native.ErrSuccess {
		fmt.Fprintf(&b, " (engine: %v)", e.Code)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func opError(op string, h Handle, err error) error {
	return &Error{Op: op, Handle: h, Err: err}
}

// classifyOpen maps the engine's last error after a failed load. Only a
// password failure is distinguished; everything else is a format error.
func classifyOpen(op string, code native.ErrorCode) error {
	err := ErrFormat
	if code == native.ErrPassword {
		err = ErrPassword
	}
	return &Error{Op: op, Code: code, Err: err}
}

// RenderError reports which layer of a multi-page render failed. Layers
// before Index were drawn and committed.
type RenderError struct {
	Index int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("bridge: render layer %d: %v", e.Index, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
