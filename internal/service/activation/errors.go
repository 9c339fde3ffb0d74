package activation

import (
	"errors"
	"strings"
)

// Sentinel errors for the activation service layer.
var (
	ErrNotFound = errors.New("campaign not found")
	ErrConflict = errors.New("campaign was activated by a concurrent request")
)

// ValidationError describes one violated activation precondition.
type ValidationError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationErrors is the full set of violated preconditions for one
// activation attempt. All rules are checked; nothing short-circuits, so the
// caller sees every corrective action at once.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return "activation preconditions not met: " + strings.Join(msgs, "; ")
}

// AsValidation unwraps err into ValidationErrors if it is one.
func AsValidation(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
