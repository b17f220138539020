package ranking

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/dashboard/domain"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DefaultLimit is the number of groups returned when no limit is configured.
const DefaultLimit = 5

type groupKey struct {
	bank      string
	attribute string
}

// Merge sums groups sharing the same bank and display attribute. Groups that
// differ only in spelling stay apart.
func Merge(sets ...[]disputedomain.GroupTotal) []disputedomain.GroupTotal {
	index := make(map[groupKey]int)
	var merged []disputedomain.GroupTotal
	for _, set := range sets {
		for _, group := range set {
			k := groupKey{bank: group.Bank, attribute: group.Attribute}
			if i, ok := index[k]; ok {
				merged[i].Count += group.Count
				merged[i].Volume = merged[i].Volume.Add(group.Volume)
				continue
			}
			index[k] = len(merged)
			merged = append(merged, group)
		}
	}
	return merged
}

// Top orders groups by presented volume descending and keeps the first
// limit. Ties break on bank, then attribute, then count descending.
func Top(groups []disputedomain.GroupTotal, limit int) []disputedomain.GroupTotal {
	if limit <= 0 || len(groups) == 0 {
		return []disputedomain.GroupTotal{}
	}

	sorted := make([]disputedomain.GroupTotal, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if cmp := a.Volume.Cmp(b.Volume); cmp != 0 {
			return cmp > 0
		}
		if a.Bank != b.Bank {
			return a.Bank < b.Bank
		}
		if a.Attribute != b.Attribute {
			return a.Attribute < b.Attribute
		}
		return a.Count > b.Count
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func TopIssuers(groups []disputedomain.GroupTotal, limit int) []domain.TopIssuer {
	top := Top(groups, limit)
	issuers := make([]domain.TopIssuer, 0, len(top))
	for _, g := range top {
		issuers = append(issuers, domain.TopIssuer{
			IssuerBank:  g.Bank,
			DisplayName: g.Attribute,
			Volume:      volume(g.Volume),
			Count:       g.Count,
		})
	}
	return issuers
}

func TopAcquirers(groups []disputedomain.GroupTotal, limit int) []domain.TopAcquirer {
	top := Top(groups, limit)
	acquirers := make([]domain.TopAcquirer, 0, len(top))
	for _, g := range top {
		acquirers = append(acquirers, domain.TopAcquirer{
			AcquirerBank:      g.Bank,
			AcquirerReference: g.Attribute,
			Volume:            volume(g.Volume),
			Count:             g.Count,
		})
	}
	return acquirers
}

// ScopeCategories returns the categories feeding the rankings for scope.
func ScopeCategories(scope string) []disputedomain.Category {
	if scope == config.RankingScopeReceivedChargebacks {
		return []disputedomain.Category{disputedomain.CategoryReceivedChargeback}
	}
	return disputedomain.Categories
}

func volume(v decimal.Decimal) disputedomain.Amount {
	return disputedomain.NewAmount(v)
}

type Params struct {
	fx.In

	DB   *gorm.DB
	Repo disputedomain.Repository
}

type Engine struct {
	db   *gorm.DB
	repo disputedomain.Repository
}

func NewEngine(p Params) *Engine {
	return &Engine{
		db:   p.DB,
		repo: p.Repo,
	}
}

// Groups loads the grouped totals of every category concurrently, keyed by
// category.
func (e *Engine) Groups(ctx context.Context, window disputedomain.Window, grouping disputedomain.Grouping, categories []disputedomain.Category) (map[disputedomain.Category][]disputedomain.GroupTotal, error) {
	results := make([][]disputedomain.GroupTotal, len(categories))
	filter := disputedomain.Filter{Window: &window}

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			rows, err := e.repo.GroupTotals(gctx, e.db, category, filter, grouping)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	grouped := make(map[disputedomain.Category][]disputedomain.GroupTotal, len(categories))
	for i, category := range categories {
		grouped[category] = results[i]
	}
	return grouped, nil
}

// Collect loads the groups of categories and merges them into one set.
func (e *Engine) Collect(ctx context.Context, window disputedomain.Window, grouping disputedomain.Grouping, categories []disputedomain.Category) ([]disputedomain.GroupTotal, error) {
	grouped, err := e.Groups(ctx, window, grouping, categories)
	if err != nil {
		return nil, err
	}
	sets := make([][]disputedomain.GroupTotal, 0, len(categories))
	for _, category := range categories {
		sets = append(sets, grouped[category])
	}
	return Merge(sets...), nil
}
