package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agendly/internal/types"
)

func countRow(n int) *mockRow {
	return &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*int) = n
		return nil
	}}
}

func TestUsageRepo_CountAppointments_PassesWindow(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewUsageRepo(dbx)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"),
		[]any{"user-1", from, to}).
		Return(countRow(17))

	n, err := repo.CountAppointments(context.Background(), "user-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 17, n)
	dbx.AssertExpectations(t)
}

func TestUsageRepo_UnscopedCounts(t *testing.T) {
	tests := []struct {
		name  string
		count func(repo *UsageRepo, ctx context.Context) (int, error)
		want  int
	}{
		{"services", func(r *UsageRepo, ctx context.Context) (int, error) {
			return r.CountServices(ctx, "user-1")
		}, 4},
		{"employees", func(r *UsageRepo, ctx context.Context) (int, error) {
			return r.CountEmployees(ctx, "user-1")
		}, 2},
		{"bio_links", func(r *UsageRepo, ctx context.Context) (int, error) {
			return r.CountBioLinks(ctx, "user-1")
		}, 1},
		{"testimonials", func(r *UsageRepo, ctx context.Context) (int, error) {
			return r.CountTestimonials(ctx, "user-1")
		}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbx := new(mockDBTX)
			repo := NewUsageRepo(dbx)

			dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"user-1"}).
				Return(countRow(tt.want))

			n, err := tt.count(repo, context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestUsageRepo_CountError(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewUsageRepo(dbx)

	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("relation does not exist")})

	_, err := repo.CountServices(context.Background(), "user-1")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
