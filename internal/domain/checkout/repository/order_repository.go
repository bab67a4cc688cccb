package repository

import (
	"encoding/json"
	"time"

	"pix_checkout/internal/domain/checkout/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(order *model.Order) error
	GetByID(id string) (*model.Order, error)
	GetByExternalID(externalID string) (*model.Order, error)

	// UpdateStatusByExternalID 按 external_id 覆盖更新状态，返回影响行数。
	// 没有匹配行时影响 0 行（回调先于订单落库的竞态，静默 no-op，不创建订单）。
	// pending 不会覆盖已达终态的订单；终态的重复投递是幂等覆盖。
	UpdateStatusByExternalID(externalID, status string, amountCents *int, payload json.RawMessage) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id string) (*model.Order, error) {
	var order model.Order
	if err := r.db.Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByExternalID(externalID string) (*model.Order, error) {
	var order model.Order
	if err := r.db.Where("external_id = ?", externalID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatusByExternalID(externalID, status string, amountCents *int, payload json.RawMessage) (int64, error) {
	updates := map[string]interface{}{
		"status": status,
	}
	if amountCents != nil {
		updates["amount_cents"] = *amountCents
	}
	if payload != nil {
		updates["provider_payload"] = payload
	}
	if status == model.OrderStatusPaid {
		now := time.Now()
		updates["paid_at"] = now
	}

	tx := r.db.Model(&model.Order{}).Where("external_id = ?", externalID)
	if !model.IsTerminal(status) {
		// 终态单向：pending 只能覆盖 pending
		tx = tx.Where("status = ?", model.OrderStatusPending)
	}

	result := tx.Updates(updates)
	return result.RowsAffected, result.Error
}
