package services

import "errors"

// Shared sentinel errors, mapped to HTTP statuses in the handlers package.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business-rule errors
	ErrValidationFailed     = errors.New("validation failed")
	ErrPasswordTooShort     = errors.New("password is too short")
	ErrNicknameRequired     = errors.New("nickname is required")
	ErrMatchInvalidWinner   = errors.New("winner must be one of the match participants")
	ErrMatchNegativeScore   = errors.New("scores must be non-negative")
	ErrMatchMissingTeams    = errors.New("both teams must be assigned before the match can start")
	ErrMatchIsBye           = errors.New("bye matches are resolved automatically and take no score")
	ErrMatchNotBye          = errors.New("match is not a bye")
	ErrMessageEmpty         = errors.New("message must have a body or an image")
	ErrRoomKeyInvalid       = errors.New("room key is not well-formed")

	// Conflict errors
	ErrMatchAlreadyStarted   = errors.New("match has already been started")
	ErrMatchAlreadyCompleted = errors.New("match result has already been recorded")

	// Authentication errors
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")

	// Entity-specific not-found errors
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrTournamentNotFound = errors.New("tournament not found")
)
