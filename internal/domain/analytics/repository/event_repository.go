package repository

import (
	"pix_checkout/internal/domain/analytics/model"

	"gorm.io/gorm"
)

type EventRepository interface {
	Create(event *model.AnalyticsEvent) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(event *model.AnalyticsEvent) error {
	return r.db.Create(event).Error
}
