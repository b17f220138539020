package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/observability/metrics"
	"github.com/smallbiznis/disputeops/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Config  config.Config
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	loc     *time.Location
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("dispute.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		loc:     p.Config.Location(),
		metrics: p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if !req.Category.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidCategory
	}

	filter := domain.Filter{AcquirerBank: req.AcquirerBank}
	if req.StartDate != nil || req.EndDate != nil {
		start, end := req.StartDate, req.EndDate
		if start == nil {
			start = end
		}
		if end == nil {
			end = start
		}
		window, err := domain.NewWindow(*start, *end, s.loc)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Window = &window
	}

	cursor, err := decodeRecordCursor(req.PageToken)
	if err != nil {
		return domain.ListResponse{}, err
	}
	filter.Cursor = cursor

	pageSize := req.Size()
	filter.Limit = pageSize + 1

	records, err := s.repo.Query(ctx, s.db, req.Category, filter)
	if err != nil {
		s.log.Warn("list dispute records failed",
			zap.String("category", string(req.Category)),
			zap.Error(err),
		)
		return domain.ListResponse{}, domain.ClassifyError(ctx, err)
	}

	page, pageInfo, err := pagination.BuildCursorPageInfo(records, pageSize, func(r *domain.Record) pagination.Cursor {
		return pagination.Cursor{
			ID:       r.ID.String(),
			Position: r.ProcessedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return domain.ListResponse{}, err
	}
	if page == nil {
		page = []*domain.Record{}
	}

	return domain.ListResponse{
		PageInfo: pageInfo,
		Category: req.Category,
		Records:  page,
	}, nil
}

func (s *Service) Get(ctx context.Context, category domain.Category, id string) (*domain.Record, error) {
	if !category.Valid() {
		return nil, domain.ErrInvalidCategory
	}
	recordID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.Get(ctx, s.db, category, recordID)
	if err != nil {
		return nil, domain.ClassifyError(ctx, err)
	}
	return record, nil
}

func (s *Service) LinkStatus(ctx context.Context, category domain.Category, id string) (domain.LinkStatus, error) {
	record, err := s.Get(ctx, category, id)
	if err != nil {
		return domain.LinkStatus{}, err
	}

	counterpart := category.Counterpart()
	key := record.Key()
	linked, err := s.repo.Exists(ctx, s.db, counterpart, key)
	if err != nil {
		return domain.LinkStatus{}, domain.ClassifyError(ctx, err)
	}

	return domain.LinkStatus{
		ID:          record.ID.String(),
		Category:    category,
		Counterpart: counterpart,
		Key:         key,
		Linked:      linked,
	}, nil
}

// Ingest validates and stores records, assigning ids and normalizing
// timestamps to UTC. Either every record is stored or none is.
func (s *Service) Ingest(ctx context.Context, category domain.Category, records []*domain.Record) (int, error) {
	if !category.Valid() {
		return 0, domain.ErrInvalidCategory
	}
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for _, record := range records {
		if record == nil {
			return 0, domain.ErrInvalidRecord
		}
		if err := record.Validate(); err != nil {
			return 0, err
		}
		if record.ID == 0 {
			record.ID = s.genID.Generate()
		}
		record.ProcessedAt = record.ProcessedAt.UTC()
		if record.TransactionAt != nil {
			at := record.TransactionAt.UTC()
			record.TransactionAt = &at
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.AcquirerBank = strings.TrimSpace(record.AcquirerBank)
		record.IssuerBank = strings.TrimSpace(record.IssuerBank)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, category, records)
	})
	if err != nil {
		s.log.Error("ingest dispute records failed",
			zap.String("category", string(category)),
			zap.Int("records", len(records)),
			zap.Error(err),
		)
		return 0, domain.ClassifyError(ctx, err)
	}

	s.metrics.RecordIngested(ctx, string(category), "service", len(records))
	s.log.Info("ingested dispute records",
		zap.String("category", string(category)),
		zap.Int("records", len(records)),
	)
	return len(records), nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func decodeRecordCursor(token string) (*domain.RecordCursor, error) {
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	if decoded == nil {
		return nil, nil
	}
	processedAt, err := time.Parse(time.RFC3339Nano, decoded.Position)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	id, err := parseID(decoded.ID)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	return &domain.RecordCursor{ID: id, ProcessedAt: processedAt}, nil
}
