// Package apps holds what the School Pulse front-ends share.
package apps

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrForbidden is returned when the selected role may not invoke an action.
var ErrForbidden = errors.New("action not permitted for role")

// ArgumentError reports a bad command line argument.
type ArgumentError struct {
	Flag string
	msg  string
}

func NewArgumentError(flag, msg string) *ArgumentError {
	return &ArgumentError{Flag: flag, msg: msg}
}

func (err *ArgumentError) Error() string {
	if err.Flag == "" {
		return err.msg
	}
	return fmt.Sprintf("--%s: %s", err.Flag, err.msg)
}
