package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cartCols = []string{"id", "user_id", "session_key", "created_at", "updated_at"}

func TestRepository_GetByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("Account", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM carts WHERE user_id = \\$1").
			WithArgs(uint(7)).
			WillReturnRows(sqlmock.NewRows(cartCols).AddRow(3, 7, nil, time.Now(), time.Now()))

		c, err := repo.GetByOwner(ctx, AccountOwner(7))
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, uint(3), c.ID)
		require.NotNil(t, c.UserID)
		assert.Equal(t, uint(7), *c.UserID)
		assert.Nil(t, c.SessionKey)
	})

	t.Run("Guest", func(t *testing.T) {
		mock.ExpectQuery("FROM carts WHERE session_key = \\$1 AND user_id IS NULL").
			WithArgs("sess-1").
			WillReturnRows(sqlmock.NewRows(cartCols).AddRow(4, nil, "sess-1", time.Now(), time.Now()))

		c, err := repo.GetByOwner(ctx, GuestOwner("sess-1"))
		require.NoError(t, err)
		require.NotNil(t, c.SessionKey)
		assert.Equal(t, "sess-1", *c.SessionKey)
		assert.Nil(t, c.UserID)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("FROM carts WHERE session_key").
			WillReturnRows(sqlmock.NewRows(cartCols))

		c, err := repo.GetByOwner(ctx, GuestOwner("missing"))
		assert.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery("FROM carts WHERE user_id").
			WillReturnError(errors.New("db error"))

		_, err := repo.GetByOwner(ctx, AccountOwner(7))
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO carts").
			WithArgs(nil, "sess-1").
			WillReturnRows(sqlmock.NewRows(cartCols).AddRow(5, nil, "sess-1", time.Now(), time.Now()))

		c, err := repo.Create(ctx, GuestOwner("sess-1"))
		require.NoError(t, err)
		assert.Equal(t, uint(5), c.ID)
	})

	t.Run("Unique violation reloads existing cart", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO carts").
			WithArgs(uint(9), nil).
			WillReturnError(&pq.Error{Code: pq.ErrorCode(PgUniqueViolation)})
		mock.ExpectQuery("FROM carts WHERE user_id = \\$1").
			WithArgs(uint(9)).
			WillReturnRows(sqlmock.NewRows(cartCols).AddRow(6, 9, nil, time.Now(), time.Now()))

		c, err := repo.Create(ctx, AccountOwner(9))
		require.NoError(t, err)
		assert.Equal(t, uint(6), c.ID)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO carts").
			WillReturnError(errors.New("db error"))

		_, err := repo.Create(ctx, GuestOwner("sess-2"))
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetLines(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	cols := []string{"id", "cart_id", "product_id", "title", "qty", "unit_price_snapshot", "created_at", "updated_at"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("FROM cart_items ci JOIN products p").
			WithArgs(uint(1)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(1, 1, 10, "Mug", 2, "12.50", time.Now(), time.Now()).
				AddRow(2, 1, 11, "Plate", 1, "5.00", time.Now(), time.Now()))

		lines, err := repo.GetLines(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, "Mug", lines[0].Title)
		assert.True(t, lines[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
		assert.Equal(t, 1, lines[1].Quantity)
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery("FROM cart_items ci").
			WillReturnRows(sqlmock.NewRows(cols))

		lines, err := repo.GetLines(context.Background(), 2)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery("FROM cart_items ci").
			WillReturnError(errors.New("db error"))

		_, err := repo.GetLines(context.Background(), 3)
		assert.Error(t, err)
	})
}

func TestRepository_GetLineByProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	cols := []string{"id", "cart_id", "product_id", "qty", "unit_price_snapshot", "created_at", "updated_at"}

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("FROM cart_items WHERE cart_id = \\$1 AND product_id = \\$2").
			WithArgs(uint(1), uint(10)).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(4, 1, 10, 3, "2.00", time.Now(), time.Now()))

		l, err := repo.GetLineByProduct(context.Background(), 1, 10)
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.Equal(t, 3, l.Quantity)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("FROM cart_items WHERE cart_id").
			WillReturnRows(sqlmock.NewRows(cols))

		l, err := repo.GetLineByProduct(context.Background(), 1, 11)
		assert.NoError(t, err)
		assert.Nil(t, l)
	})
}

func TestRepository_CreateLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	params := CreateLineParams{CartID: 1, ProductID: 10, Quantity: 2, UnitPrice: decimal.RequireFromString("4.25")}
	cols := []string{"id", "cart_id", "product_id", "qty", "unit_price_snapshot", "created_at", "updated_at"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO cart_items").
			WithArgs(params.CartID, params.ProductID, params.Quantity, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(8, 1, 10, 2, "4.25", time.Now(), time.Now()))

		l, err := repo.CreateLine(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, uint(8), l.ID)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO cart_items").
			WillReturnError(errors.New("db error"))

		_, err := repo.CreateLine(context.Background(), params)
		assert.Error(t, err)
	})
}

func TestRepository_UpdateLineQuantity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE cart_items SET qty = \\$1").
			WithArgs(5, uint(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateLineQuantity(context.Background(), 2, 5))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE cart_items").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateLineQuantity(context.Background(), 99, 5)
		assert.ErrorIs(t, err, ErrCartItemNotFound)
	})

	t.Run("Invalid quantity", func(t *testing.T) {
		err := repo.UpdateLineQuantity(context.Background(), 2, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestRepository_DeleteAndClear(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("DeleteLine", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM cart_items WHERE id = \\$1 AND cart_id = \\$2").
			WithArgs(uint(3), uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.DeleteLine(context.Background(), 1, 3))
	})

	t.Run("DeleteLine other cart", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM cart_items").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.DeleteLine(context.Background(), 2, 3), ErrCartItemNotFound)
	})

	t.Run("ClearLines on empty cart", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM cart_items WHERE cart_id = \\$1").
			WithArgs(uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.ClearLines(context.Background(), 1))
	})
}

func TestRepository_Merge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO cart_items .* ON CONFLICT \\(cart_id, product_id\\)").
			WithArgs(uint(2), uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("DELETE FROM carts WHERE id = \\$1").
			WithArgs(uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Merge(context.Background(), 1, 2))
	})

	t.Run("Rollback on failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO cart_items").
			WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		assert.Error(t, repo.Merge(context.Background(), 1, 2))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
