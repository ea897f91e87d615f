package cli

import "github.com/llehouerou/tunes/internal/errmsg"

// commandError is a failure already phrased for the user.
type commandError struct {
	op      errmsg.Op
	context string
	err     error
}

func (e *commandError) Error() string {
	return errmsg.FormatWith(e.op, e.context, e.err)
}

func (e *commandError) Unwrap() error { return e.err }

func fail(op errmsg.Op, err error) error {
	if err == nil {
		return nil
	}
	return &commandError{op: op, err: err}
}

func failWith(op errmsg.Op, context string, err error) error {
	if err == nil {
		return nil
	}
	return &commandError{op: op, context: context, err: err}
}
