package domain

import (
	"fmt"
	"strings"
)

// RemovalPolicy decides what happens to the dependents of a removed task.
type RemovalPolicy string

const (
	// RemovalReject refuses to remove a task that others depend on.
	RemovalReject RemovalPolicy = "reject"
	// RemovalOrphan removes the task and leaves dangling references behind.
	RemovalOrphan RemovalPolicy = "orphan"
	// RemovalDetach removes the task and strips it from every dependency list.
	RemovalDetach RemovalPolicy = "detach"
)

func ParseRemovalPolicy(s string) (RemovalPolicy, error) {
	switch p := RemovalPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RemovalReject, RemovalOrphan, RemovalDetach:
		return p, nil
	case "":
		return RemovalReject, nil
	}
	return "", fmt.Errorf("unknown removal policy %q (want reject, orphan or detach)", s)
}
