package sessions

import "errors"

var (
	ErrNotFound  = errors.New("session not found")
	ErrNoInput   = errors.New("no text loaded")
	ErrJobActive = errors.New("analysis in progress")
	ErrNoResult  = errors.New("no analysis result")
)
