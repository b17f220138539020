package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, category Category, records []*Record) error
	Get(ctx context.Context, db *gorm.DB, category Category, id snowflake.ID) (*Record, error)
	Query(ctx context.Context, db *gorm.DB, category Category, filter Filter) ([]*Record, error)
	Count(ctx context.Context, db *gorm.DB, category Category, filter Filter) (int64, error)
	Totals(ctx context.Context, db *gorm.DB, category Category, filter Filter) (Totals, error)
	GroupTotals(ctx context.Context, db *gorm.DB, category Category, filter Filter, grouping Grouping) ([]GroupTotal, error)
	Keys(ctx context.Context, db *gorm.DB, category Category, filter Filter) ([]CompositeKey, error)
	Exists(ctx context.Context, db *gorm.DB, category Category, key CompositeKey) (bool, error)
}
