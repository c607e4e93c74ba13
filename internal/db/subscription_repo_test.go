package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agendly/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

func testSubscription() *types.Subscription {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return &types.Subscription{
		UserID:             "user-1",
		Plan:               types.PlanPro,
		Status:             types.SubStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(30 * 24 * time.Hour),
		LastEventAt:        now,
		UpdatedAt:          now,
	}
}

// --- SubscriptionRepo Tests ---

func TestSubscriptionRepo_Apply_Inserted(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewSubscriptionRepo(dbx, nil)

	dbx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	applied, err := repo.Apply(context.Background(), testSubscription())
	require.NoError(t, err)
	assert.True(t, applied)
	dbx.AssertExpectations(t)
}

func TestSubscriptionRepo_Apply_SuppressedByOrderingGuard(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewSubscriptionRepo(dbx, nil)

	// Conditional upsert fired zero rows: the stored event is newer.
	dbx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)

	applied, err := repo.Apply(context.Background(), testSubscription())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestSubscriptionRepo_Apply_DBError(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewSubscriptionRepo(dbx, nil)

	dbx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	_, err := repo.Apply(context.Background(), testSubscription())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestSubscriptionRepo_GetByUserID_Found(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewSubscriptionRepo(dbx, nil)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "user-1"
		*dest[1].(*types.PlanTier) = types.PlanPremium
		*dest[2].(*types.SubscriptionStatus) = types.SubStatusActive
		*dest[3].(*time.Time) = now
		*dest[4].(*time.Time) = now.Add(360 * 24 * time.Hour)
		*dest[5].(*time.Time) = now
		*dest[6].(*time.Time) = now
		return nil
	}}

	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(row)

	sub, err := repo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, types.PlanPremium, sub.Plan)
	assert.True(t, sub.IsActive())
}

func TestSubscriptionRepo_GetByUserID_NotFound(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewSubscriptionRepo(dbx, nil)

	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	sub, err := repo.GetByUserID(context.Background(), "user-unknown")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriptionRepo_GetByUserID_DBError(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewSubscriptionRepo(dbx, nil)

	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("broken pipe")})

	_, err := repo.GetByUserID(context.Background(), "user-1")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
