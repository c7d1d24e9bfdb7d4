package model

import "errors"

var (
	// ErrDuplicateURL is returned when an active link with the same URL
	// already exists under a different id.
	ErrDuplicateURL = errors.New("an active link with this URL already exists")
	// ErrInvalidURL is returned for input that is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("not a valid http(s) URL")
	// ErrEmptyTitle is returned when a title edit trims to nothing.
	ErrEmptyTitle = errors.New("title cannot be empty")
	ErrNotFound   = errors.New("bookmark not found")
	// ErrArchived is returned for operations that archived items do not support.
	ErrArchived = errors.New("item is archived")
	// ErrInvalidMove is returned when a move target is not a group or lies
	// inside the item being moved.
	ErrInvalidMove = errors.New("invalid move target")
)
