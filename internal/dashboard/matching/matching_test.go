package matching

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/disputeops/internal/dispute/disputetest"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/dispute/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(auth string) disputedomain.CompositeKey {
	return disputedomain.CompositeKey{
		AffiliationNumber: "1234567",
		Agency:            "00123",
		Account:           "000123456789",
		AuthorizationCode: auth,
		AcquirerReference: "WL001",
	}
}

func TestCountLinked(t *testing.T) {
	tests := []struct {
		name   string
		debit  []disputedomain.CompositeKey
		credit []disputedomain.CompositeKey
		want   Linkage
	}{
		{name: "empty", want: Linkage{}},
		{name: "no credits", debit: []disputedomain.CompositeKey{key("A")}, want: Linkage{Linked: 0, Total: 1}},
		{
			name:   "single match",
			debit:  []disputedomain.CompositeKey{key("A")},
			credit: []disputedomain.CompositeKey{key("A")},
			want:   Linkage{Linked: 1, Total: 1},
		},
		{
			name:   "differing authorization code",
			debit:  []disputedomain.CompositeKey{key("A")},
			credit: []disputedomain.CompositeKey{key("B")},
			want:   Linkage{Linked: 0, Total: 1},
		},
		{
			name:   "many credits count once",
			debit:  []disputedomain.CompositeKey{key("A"), key("C")},
			credit: []disputedomain.CompositeKey{key("A"), key("A"), key("A")},
			want:   Linkage{Linked: 1, Total: 2},
		},
		{
			name:   "duplicate debits each count",
			debit:  []disputedomain.CompositeKey{key("A"), key("A")},
			credit: []disputedomain.CompositeKey{key("A")},
			want:   Linkage{Linked: 2, Total: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountLinked(tt.debit, tt.credit)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got.Linked, got.Total)
		})
	}
}

func TestCountLinkedRequiresEveryKeyPart(t *testing.T) {
	base := key("A")
	variants := []func(k *disputedomain.CompositeKey){
		func(k *disputedomain.CompositeKey) { k.AffiliationNumber = "x" },
		func(k *disputedomain.CompositeKey) { k.Agency = "x" },
		func(k *disputedomain.CompositeKey) { k.Account = "x" },
		func(k *disputedomain.CompositeKey) { k.AuthorizationCode = "x" },
		func(k *disputedomain.CompositeKey) { k.AcquirerReference = "x" },
	}
	for i, mutate := range variants {
		credit := base
		mutate(&credit)
		got := CountLinked([]disputedomain.CompositeKey{base}, []disputedomain.CompositeKey{credit})
		if got.Linked != 0 {
			t.Fatalf("variant %d: expected no link, got %d", i, got.Linked)
		}
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, 0.0, Rate(Linkage{}))
	assert.Equal(t, 0.0, Rate(Linkage{Linked: 0, Total: 4}))
	assert.Equal(t, 50.0, Rate(Linkage{Linked: 2, Total: 4}))
	assert.Equal(t, 33.33, Rate(Linkage{Linked: 1, Total: 3}))
	assert.Equal(t, 100.0, Rate(Linkage{Linked: 3, Total: 3}))
}

func TestEngineCountLinked(t *testing.T) {
	conn := disputetest.NewDB(t)
	day := time.Date(2024, 12, 9, 10, 30, 0, 0, time.UTC)

	linked := disputetest.Record(day, "1250.50")
	unlinked := disputetest.Record(day, "875.25")
	unlinked.AuthorizationCode = "AUTH99"
	disputetest.Insert(t, conn, disputedomain.CategoryReceivedChargeback, linked, unlinked)

	answer := disputetest.Record(day.AddDate(0, 0, 2), "1250.50")
	disputetest.Insert(t, conn, disputedomain.CategoryIssuedRepresentment, answer)

	engine := NewEngine(Params{DB: conn, Repo: repository.Provide()})

	got, err := engine.CountLinked(context.Background(), ReceivedChargebacks, nil)
	require.NoError(t, err)
	assert.Equal(t, Linkage{Linked: 1, Total: 2}, got)

	window := disputedomain.DayWindow(day, time.UTC)
	got, err = engine.CountLinked(context.Background(), ReceivedChargebacks, &window)
	require.NoError(t, err)
	assert.Equal(t, Linkage{Linked: 0, Total: 2}, got)

	got, err = engine.CountLinked(context.Background(), IssuedChargebacks, nil)
	require.NoError(t, err)
	assert.Equal(t, Linkage{}, got)
}
