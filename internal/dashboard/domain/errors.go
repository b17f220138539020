package domain

import (
	"errors"

	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
)

var (
	ErrStorageUnavailable = disputedomain.ErrStorageUnavailable
	ErrInvalidWindow      = disputedomain.ErrInvalidWindow
	ErrTimeout            = disputedomain.ErrTimeout

	ErrInvalidMode  = errors.New("invalid_mode")
	ErrInvalidYear  = errors.New("invalid_year")
	ErrInvalidDays  = errors.New("invalid_days")
	ErrInvalidLimit = errors.New("invalid_limit")
)
