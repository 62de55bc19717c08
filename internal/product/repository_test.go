package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetProductByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	columns := []string{"id", "title", "price", "currency", "in_stock", "is_published", "created_at", "updated_at"}

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow(3, "iPhone 13 128GB", "1250.00", "GEL", 4, true, time.Now(), time.Now())

		mock.ExpectQuery(`SELECT id, title, price, .* FROM products WHERE id = \$1 AND is_published = TRUE`).
			WithArgs(uint(3)).
			WillReturnRows(rows)

		p, err := repo.GetProductByID(context.Background(), GetProductOptions{ProductID: 3, OnlyPublished: true})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "iPhone 13 128GB", p.Title)
		assert.Equal(t, "1250.00", p.Price.StringFixed(2))
		assert.Equal(t, 4, p.InStock)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM products WHERE id = \$1`).
			WithArgs(uint(99)).
			WillReturnRows(sqlmock.NewRows(columns))

		p, err := repo.GetProductByID(context.Background(), GetProductOptions{ProductID: 99})
		assert.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM products`).
			WillReturnError(errors.New("db error"))

		_, err := repo.GetProductByID(context.Background(), GetProductOptions{ProductID: 1})
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
