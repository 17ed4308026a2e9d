package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"payrelay/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	other := errors.New("boom")
	fkErr := &pgconn.PgError{Code: "23503", ConstraintName: idxTransactionReference}

	var tests = []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, repositories.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), repositories.ErrNotFound},
		{"pending index", &pgconn.PgError{Code: uniqueViolation, ConstraintName: idxOnePendingPerOrder}, repositories.ErrDuplicatePending},
		{"reference index", &pgconn.PgError{Code: uniqueViolation, ConstraintName: idxTransactionReference}, repositories.ErrDuplicateReference},
		{"other constraint", fkErr, fkErr},
		{"passthrough", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil {
				require.NoError(t, got)
				return
			}
			require.ErrorIs(t, got, tt.want)
		})
	}
}

func TestMigrationsDeclareUniqueIndexes(t *testing.T) {
	var all string
	for _, m := range migrations {
		all += m
	}
	require.Contains(t, all, idxOnePendingPerOrder)
	require.Contains(t, all, idxTransactionReference)
	require.Contains(t, all, "WHERE status = 'pending'")
}

func TestFindByID_MalformedIDIsNotFound(t *testing.T) {
	repo := NewPaymentRepository(nil)

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}
