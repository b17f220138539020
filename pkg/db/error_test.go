package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm", err: gorm.ErrDuplicatedKey, want: true},
		{name: "postgres", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: users.email"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDuplicateKeyErr(tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDialectRejectsUnknownType(t *testing.T) {
	if _, err := Dialect(Config{Type: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
