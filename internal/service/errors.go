// Package service holds the storefront operations behind the HTTP handlers.
// Every mutation goes through a syncer.Synchronizer; reads prefer the
// collection's live view when it has data.
package service

import (
	"errors"
	"strings"

	"github.com/mindlab/cardshop/internal/store"
)

var (
	ErrValidation     = errors.New("validation")
	ErrNotFound       = store.ErrNotFound
	ErrTablesFull     = errors.New("tables full")
	ErrConfirmation   = errors.New("confirmation required")
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid email or password")
	ErrNotSignedIn    = errors.New("not signed in")
	ErrNotConfigured  = errors.New("not configured")
)

// Reason is the human part of an error built as "<reason>: <sentinel>".
func Reason(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrConfirmation} {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	return msg
}
