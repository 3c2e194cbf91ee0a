package models

import "errors"

var (
	// ErrGroupNotFound indicates the referenced appointment group does not exist
	ErrGroupNotFound = errors.New("appointment group not found")

	// ErrServiceNotFound indicates the referenced service line item does not exist
	ErrServiceNotFound = errors.New("service not found")

	// ErrMixedClients indicates a checkout merge spans more than one client
	ErrMixedClients = errors.New("checkout groups belong to different clients")

	// ErrEmptyGroupSet indicates an operation that requires at least one group id
	ErrEmptyGroupSet = errors.New("group id set is empty")

	// ErrNoActiveSession indicates a checkout operation without an open session
	ErrNoActiveSession = errors.New("no active checkout session")
)
