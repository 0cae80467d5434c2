package domain

import "errors"

var (
	ErrNotEligible     = errors.New("visa workflow not enabled for employee")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("caller not permitted")
	ErrStorageFailure  = errors.New("file storage failure")
	ErrInvalidDocType  = errors.New("document type not in sequence")
	ErrInvalidDecision = errors.New("invalid review decision")
	ErrOutOfSequence   = errors.New("document type is not the current step")
	ErrAlreadyReviewed = errors.New("document already reviewed")
)
