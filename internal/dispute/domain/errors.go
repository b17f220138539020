package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrStorageUnavailable = errors.New("storage_unavailable")
	ErrInvalidWindow      = errors.New("invalid_window")
	ErrTimeout            = errors.New("timeout")

	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidRecord    = errors.New("invalid_record")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrNotFound         = errors.New("not_found")
)

var taxonomy = []error{
	ErrStorageUnavailable,
	ErrInvalidWindow,
	ErrTimeout,
	ErrInvalidCategory,
	ErrInvalidRecord,
	ErrInvalidAmount,
	ErrInvalidID,
	ErrInvalidPageToken,
	ErrNotFound,
}

// ClassifyError maps a store failure onto the query error taxonomy. A lapsed
// deadline on ctx wins over whatever the driver reported.
func ClassifyError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range taxonomy {
		if errors.Is(err, known) {
			return err
		}
	}
	if ctx != nil {
		switch ctx.Err() {
		case context.DeadlineExceeded:
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		case context.Canceled:
			return context.Canceled
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
}
