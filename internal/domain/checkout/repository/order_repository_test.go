package repository

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"pix_checkout/internal/domain/checkout/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (OrderRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewOrderRepository(db), mock
}

func TestCreateOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	order := &model.Order{
		ExternalID:  "abc123",
		Type:        model.TypeSubscription,
		AmountCents: 2990,
		Status:      model.OrderStatusPending,
	}

	// postgres 驱动对带默认值的列 (id/type/status) 追加 RETURNING
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "status"}).
			AddRow("order-1", model.TypeSubscription, model.OrderStatusPending))
	mock.ExpectCommit()

	err := repo.Create(order)

	assert.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByExternalID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "deleted_at", "external_id", "type", "amount_cents", "status", "provider_payload", "paid_at"}).
		AddRow("order-1", now, now, nil, "abc123", "subscription", 2990, "pending", nil, nil)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE external_id = `).
		WithArgs("abc123", 1).
		WillReturnRows(rows)

	order, err := repo.GetByExternalID("abc123")

	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, 2990, order.AmountCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusByExternalID(t *testing.T) {
	t.Run("Terminal update overwrites unconditionally and reports rows", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		payload := json.RawMessage(`{"hash":"abc123","status":"paid"}`)
		amount := 15000

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "orders" SET .* WHERE external_id = `).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rows, err := repo.UpdateStatusByExternalID("abc123", model.OrderStatusPaid, &amount, payload)

		assert.NoError(t, err)
		assert.Equal(t, int64(1), rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Pending update is guarded against demoting terminal orders", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		// pending 只允许覆盖 pending
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`external_id = $`) + `\d+ AND status = `).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		rows, err := repo.UpdateStatusByExternalID("abc123", model.OrderStatusPending, nil, nil)

		assert.NoError(t, err)
		assert.Equal(t, int64(0), rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown external id affects zero rows without error", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "orders"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		rows, err := repo.UpdateStatusByExternalID("ghost", model.OrderStatusPaid, nil, nil)

		assert.NoError(t, err)
		assert.Equal(t, int64(0), rows)
	})
}
