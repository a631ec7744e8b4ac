package request

import (
	"fmt"
	"sort"
)

// ValidationError is one problem found in client input. Trace is the dotted
// or bracketed path to the offending key.
type ValidationError struct {
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

func (e ValidationError) Error() string {
	if e.Trace == "" {
		return e.Message
	}
	return e.Trace + ": " + e.Message
}

func newError(trace, format string, args ...any) ValidationError {
	return ValidationError{Trace: trace, Message: fmt.Sprintf(format, args...)}
}

// Messages renders errors the way they are returned to clients.
func Messages(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

// SortErrors orders errors by trace then message. Error order carries no
// meaning; this only makes responses stable.
func SortErrors(errs []ValidationError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Trace != errs[j].Trace {
			return errs[i].Trace < errs[j].Trace
		}
		return errs[i].Message < errs[j].Message
	})
}

func joinTrace(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	case key[0] == '[':
		return prefix + key
	}
	return prefix + "." + key
}
