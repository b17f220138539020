package matching

import (
	"context"

	"github.com/shopspring/decimal"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Linkage is the semi-join cardinality of a debit collection against its
// credit collection.
type Linkage struct {
	Linked int64 `json:"linked"`
	Total  int64 `json:"total"`
}

// Pair names a chargeback category and the representment category that
// answers it.
type Pair struct {
	Debit  disputedomain.Category
	Credit disputedomain.Category
}

var (
	ReceivedChargebacks = Pair{
		Debit:  disputedomain.CategoryReceivedChargeback,
		Credit: disputedomain.CategoryIssuedRepresentment,
	}
	IssuedChargebacks = Pair{
		Debit:  disputedomain.CategoryIssuedChargeback,
		Credit: disputedomain.CategoryReceivedRepresentment,
	}
)

// CountLinked counts the debit keys that have at least one equal key on the
// credit side. Each debit key counts once however many credits match it.
func CountLinked(debit, credit []disputedomain.CompositeKey) Linkage {
	result := Linkage{Total: int64(len(debit))}
	if len(debit) == 0 || len(credit) == 0 {
		return result
	}

	index := make(map[disputedomain.CompositeKey]struct{}, len(credit))
	for _, key := range credit {
		index[key] = struct{}{}
	}
	for _, key := range debit {
		if _, ok := index[key]; ok {
			result.Linked++
		}
	}
	return result
}

// Rate returns the linked share in percent rounded to two places, or 0 for
// an empty debit side.
func Rate(l Linkage) float64 {
	if l.Total <= 0 {
		return 0
	}
	rate := decimal.NewFromInt(l.Linked).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(l.Total)).
		Round(2)
	return rate.InexactFloat64()
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

// CountLinked loads both key projections concurrently and joins them in
// memory. A nil window covers all records.
func (e *Engine) CountLinked(ctx context.Context, pair Pair, window *disputedomain.Window) (Linkage, error) {
	filter := disputedomain.Filter{Window: window}

	var debit, credit []disputedomain.CompositeKey
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keys, err := e.repo.Keys(gctx, e.db, pair.Debit, filter)
		if err != nil {
			return err
		}
		debit = keys
		return nil
	})
	g.Go(func() error {
		keys, err := e.repo.Keys(gctx, e.db, pair.Credit, filter)
		if err != nil {
			return err
		}
		credit = keys
		return nil
	})
	if err := g.Wait(); err != nil {
		return Linkage{}, err
	}

	return CountLinked(debit, credit), nil
}
