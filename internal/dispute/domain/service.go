package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/disputeops/pkg/db/pagination"
)

type ListRequest struct {
	pagination.Pagination
	Category     Category
	StartDate    *time.Time
	EndDate      *time.Time
	AcquirerBank string
}

type ListResponse struct {
	pagination.PageInfo
	Category Category  `json:"category"`
	Records  []*Record `json:"records"`
}

// LinkStatus tells whether a record has a counterpart sharing its composite key.
type LinkStatus struct {
	ID          string       `json:"id"`
	Category    Category     `json:"category"`
	Counterpart Category     `json:"counterpart"`
	Key         CompositeKey `json:"key"`
	Linked      bool         `json:"linked"`
}

type Service interface {
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, category Category, id string) (*Record, error)
	LinkStatus(ctx context.Context, category Category, id string) (LinkStatus, error)
	Ingest(ctx context.Context, category Category, records []*Record) (int, error)
}
