package schedule

import (
	"fmt"
	"strings"
)

// Policy decides what happens when a task lists a dependency id that is not
// part of the task set.
type Policy int

const (
	// PolicyStrict fails the projection, so the edit that introduced the
	// reference can be rejected.
	PolicyStrict Policy = iota
	// PolicyLenient marks the task, and everything downstream of it, as
	// unresolved and leaves it out of the total duration.
	PolicyLenient
)

func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyLenient:
		return "lenient"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict", "reject":
		return PolicyStrict, nil
	case "lenient", "warn":
		return PolicyLenient, nil
	}
	return PolicyStrict, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}
