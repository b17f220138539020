package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/disputeops/internal/dispute/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 200

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, category domain.Category, records []*domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	if !category.Valid() {
		return domain.ErrInvalidCategory
	}
	return db.WithContext(ctx).Table(category.Table()).CreateInBatches(records, insertBatchSize).Error
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, category domain.Category, id snowflake.ID) (*domain.Record, error) {
	if !category.Valid() {
		return nil, domain.ErrInvalidCategory
	}
	var record domain.Record
	err := db.WithContext(ctx).Table(category.Table()).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) Query(ctx context.Context, db *gorm.DB, category domain.Category, filter domain.Filter) ([]*domain.Record, error) {
	stmt, err := r.scope(ctx, db, category, filter)
	if err != nil {
		return nil, err
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(processed_at < ?) OR (processed_at = ? AND id < ?)",
			filter.Cursor.ProcessedAt.UTC(),
			filter.Cursor.ProcessedAt.UTC(),
			filter.Cursor.ID,
		)
	}
	stmt = stmt.Order("processed_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		stmt = stmt.Offset(filter.Offset)
	}

	var records []*domain.Record
	if err := stmt.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, category domain.Category, filter domain.Filter) (int64, error) {
	stmt, err := r.scope(ctx, db, category, filter)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB, category domain.Category, filter domain.Filter) (domain.Totals, error) {
	stmt, err := r.scope(ctx, db, category, filter)
	if err != nil {
		return domain.Totals{}, err
	}
	var row domain.Totals
	err = stmt.Select(
		`COUNT(*) AS count,
		 COALESCE(SUM(amount_presented), 0) AS amount_presented,
		 COALESCE(SUM(amount_original), 0) AS amount_original`,
	).Scan(&row).Error
	if err != nil {
		return domain.Totals{}, err
	}
	// Drivers without a native decimal type sum through float64.
	row.AmountPresented = domain.NewAmount(row.AmountPresented.Decimal)
	row.AmountOriginal = domain.NewAmount(row.AmountOriginal.Decimal)
	return row, nil
}

func (r *repo) GroupTotals(ctx context.Context, db *gorm.DB, category domain.Category, filter domain.Filter, grouping domain.Grouping) ([]domain.GroupTotal, error) {
	var bankColumn, attributeColumn string
	switch grouping {
	case domain.GroupByIssuer:
		bankColumn, attributeColumn = "issuer_bank", "issuer_name"
	case domain.GroupByAcquirer:
		bankColumn, attributeColumn = "acquirer_bank", "acquirer_reference"
	default:
		return nil, errors.New("unsupported grouping")
	}

	stmt, err := r.scope(ctx, db, category, filter)
	if err != nil {
		return nil, err
	}
	var rows []domain.GroupTotal
	err = stmt.Select(
		bankColumn+` AS bank, `+attributeColumn+` AS attribute,
		 COUNT(*) AS count,
		 COALESCE(SUM(amount_presented), 0) AS volume`,
	).Group(bankColumn + ", " + attributeColumn).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Volume = rows[i].Volume.Round(domain.AmountScale)
	}
	return rows, nil
}

func (r *repo) Keys(ctx context.Context, db *gorm.DB, category domain.Category, filter domain.Filter) ([]domain.CompositeKey, error) {
	stmt, err := r.scope(ctx, db, category, filter)
	if err != nil {
		return nil, err
	}
	var keys []domain.CompositeKey
	err = stmt.Select("affiliation_number, agency, account, authorization_code, acquirer_reference").
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, category domain.Category, key domain.CompositeKey) (bool, error) {
	if !category.Valid() {
		return false, domain.ErrInvalidCategory
	}
	var ids []int64
	err := db.WithContext(ctx).Table(category.Table()).
		Where("affiliation_number = ?", key.AffiliationNumber).
		Where("agency = ?", key.Agency).
		Where("account = ?", key.Account).
		Where("authorization_code = ?", key.AuthorizationCode).
		Where("acquirer_reference = ?", key.AcquirerReference).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (r *repo) scope(ctx context.Context, db *gorm.DB, category domain.Category, filter domain.Filter) (*gorm.DB, error) {
	if !category.Valid() {
		return nil, domain.ErrInvalidCategory
	}
	stmt := db.WithContext(ctx).Table(category.Table())
	if filter.Window != nil {
		start, end := filter.Window.Bounds()
		stmt = stmt.Where("processed_at >= ? AND processed_at < ?", start, end)
	}
	if bank := filter.BankFilter(); bank != "" {
		stmt = stmt.Where("acquirer_bank = ?", bank)
	}
	return stmt, nil
}
