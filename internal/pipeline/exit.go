package pipeline

import "errors"

// exitCoder is implemented by errors that carry a process exit code, such as
// *exec.ExitError.
type exitCoder interface {
	ExitCode() int
}

// ExitCode maps a run error to the process exit code: 0 for nil, the exit code
// of a failed external tool unchanged, and 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
