package services

import "errors"

// Validation errors map to 400 at the HTTP layer.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidScore        = errors.New("score does not produce a winner for the match format")
	ErrInvalidStatusChange = errors.New("match status transition not allowed")
	ErrNotEnoughTeams      = errors.New("not enough teams for the requested format")
	ErrSelfMatch           = errors.New("a team cannot play against itself")
)

// Conflict errors map to 409.
var (
	ErrMatchNotLive        = errors.New("match is not live")
	ErrMatchCompleted      = errors.New("match already completed")
	ErrCorrectionForbidden = errors.New("result cannot be corrected after downstream effects")
)

// Integrity errors signal corrupted bracket state; they map to 500 and
// should page somebody.
var (
	ErrDuplicateSlotAssignment  = errors.New("bracket slot already occupied by another team")
	ErrAdvancementTargetMissing = errors.New("advancement edge points to a missing bracket node")
	ErrRatingLedgerCorrupt      = errors.New("rating ledger does not replay to the cached rating")
)

// Transient errors map to 503 and are safe to retry.
var (
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
	ErrPublishFailed      = errors.New("event publish failed")
)

var ErrNotFound = errors.New("not found")
