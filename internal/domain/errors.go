package domain

import "errors"

var (
	// ErrDuplicateCompletion is returned when a user submits a lesson they were already credited for.
	ErrDuplicateCompletion = errors.New("lesson already completed")
	// ErrUserNotFound is returned when no progression record exists for a user.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when registering an ID that is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrLessonNotFound indicates the lesson content could not be loaded.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrInvalidName is returned when a user name is empty after trimming.
	ErrInvalidName = errors.New("name is required")
	// ErrInvalidProfile is returned for profile fields that fail validation.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrUnknownWorld indicates a world name that does not map to any World.
	ErrUnknownWorld = errors.New("unknown world")
	// ErrInvalidCoinAmount is returned for non-positive direct coin grants.
	ErrInvalidCoinAmount = errors.New("invalid coin amount")
	// ErrInvalidPagination is returned for a non-positive page size or negative page index.
	ErrInvalidPagination = errors.New("invalid pagination")
	// ErrConcurrentUpdate is returned when an optimistic commit kept losing to other writers.
	ErrConcurrentUpdate = errors.New("concurrent update, retry later")
)

// ErrNotRanked is returned when a user has no leaderboard standing (inactive or no entries).
var ErrNotRanked = errors.New("user is not ranked")
