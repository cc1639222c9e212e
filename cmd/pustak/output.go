package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Exit codes.
const (
	exitSuccess = 0
	exitFailure = 1 // the server or the catalog said no
	exitUsage   = 2 // bad flags or arguments
)

// exitError carries the exit code a failed command should end the process with.
type exitError struct {
	Code    int
	Message string
	Err     error
}

func (e *exitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *exitError) Unwrap() error {
	return e.Err
}

func newExitError(code int, message string) *exitError {
	return &exitError{Code: code, Message: message}
}

func wrapExitError(code int, message string, err error) *exitError {
	return &exitError{Code: code, Message: message, Err: err}
}

// exitCode is the code for err; errors that don't say otherwise are failures.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return exitFailure
}

// response is what --format json prints.
type response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// formatter writes results as text or JSON.
type formatter struct {
	Format string
	Writer io.Writer
}

// emit writes data as a JSON envelope, or calls text to describe it.
func (f *formatter) emit(data interface{}, text func(io.Writer) error) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(response{Status: "ok", Data: data})
	}
	return text(f.Writer)
}

// width is the terminal width of w, or 0 when w is not a terminal.
func (f *formatter) width() int {
	file, ok := f.Writer.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// clip shortens s to n runes, marking the cut with "...". n <= 0 means no limit.
func clip(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
