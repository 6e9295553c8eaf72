// Package service holds the error types shared by the domain services.
// Every failure builds a fresh value so it can carry per-call context.
package service

import (
	"fmt"
	"time"

	"slotbook/backend/internal/store"
)

// ValidationError is a caller contract violation.
type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, msg: msg}
}

type ForbiddenError struct {
	msg string
}

func (e *ForbiddenError) Error() string {
	return e.msg
}

func Forbidden(msg string) error {
	return &ForbiddenError{msg: msg}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}

// OverlapError reports the candidate slot that collided. It matches
// store.ErrConflict under errors.Is.
type OverlapError struct {
	CategoryID int64
	Start      time.Time
	End        time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("slot %s to %s overlaps another event in category %d",
		e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339), e.CategoryID)
}

func (e *OverlapError) Is(target error) bool {
	return target == store.ErrConflict
}
