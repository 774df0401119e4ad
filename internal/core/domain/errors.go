package domain

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrAlreadyQueued    = errors.New("session already queued")
	ErrAlreadyPaired    = errors.New("session already paired")
	ErrNotPaired        = errors.New("session not paired")
	ErrNotDelivered     = errors.New("event not delivered")
	ErrNoCandidate      = errors.New("no compatible candidate")
	ErrBlocked          = errors.New("sender or recipient is blocked")
	ErrNotPartner       = errors.New("target session is not the caller's partner")
	ErrMessageRejected  = errors.New("message rejected by moderator")
	ErrSearchCancelled  = errors.New("search cancelled")
)
