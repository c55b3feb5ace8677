package service

import "errors"

// ErrSubmissionNotFound indicates the submission was not located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrCriterionNotFound indicates the criterion does not belong to the ledger's exam.
var ErrCriterionNotFound = errors.New("criterion not found")

// ErrViolationNotFound indicates the violation was not located.
var ErrViolationNotFound = errors.New("violation not found")

// ErrScoreOutOfRange indicates a score outside [0, criterion max].
var ErrScoreOutOfRange = errors.New("score out of range")

// ErrScoreStep indicates a score that is not a multiple of 0.25.
var ErrScoreStep = errors.New("score must be a multiple of 0.25")

// ErrEntryCommitted indicates an edit attempt on a committed grade; callers
// must reopen the criterion first.
var ErrEntryCommitted = errors.New("grade is committed, reopen before editing")

// ErrNothingToCommit indicates a commit attempt on an unscored criterion.
var ErrNothingToCommit = errors.New("no score entered for criterion")

// ErrNotCommitted indicates a reopen attempt on a criterion that has no
// committed grade.
var ErrNotCommitted = errors.New("criterion has no committed grade")

// ErrRecalcInFlight indicates a second finish action raced a pending
// recalculation for the same submission.
var ErrRecalcInFlight = errors.New("recalculation already in flight")

// ErrModeratorConflict indicates the submission already has an active
// moderator assignment.
var ErrModeratorConflict = errors.New("moderator already assigned")

// ErrAlreadyApproved indicates a mutation attempt on an approved submission.
var ErrAlreadyApproved = errors.New("submission already approved")

// ErrUnknownViolationType indicates a violation type outside the penalty table.
var ErrUnknownViolationType = errors.New("unknown violation type")
