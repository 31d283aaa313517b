package domain

import (
	"errors"
	"time"
)

var (
	// ErrApplicationNotFound indicates that no application has the identifier.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrAlreadyResolved indicates the application already left the pending state.
	ErrAlreadyResolved = errors.New("application already resolved")
)

// ApplicationStatus is the lifecycle position of an application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationApproved || s == ApplicationRejected
}

// Application is a free-text request submitted by a user.
type Application struct {
	ID         int64
	UserID     int64
	Message    string
	Status     ApplicationStatus
	ResolvedBy *int64
	ResolvedAt *time.Time
	CreatedAt  time.Time
}
