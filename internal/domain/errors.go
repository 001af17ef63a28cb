package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidTask      = errors.New("invalid task")
	ErrHasDependents    = errors.New("task has dependents")
	ErrNoCurrentProject = errors.New("no current project set")
	ErrAmbiguous        = errors.New("ambiguous reference")
)
