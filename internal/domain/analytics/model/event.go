package model

import (
	baseModel "pix_checkout/pkg/model"
)

// AnalyticsEvent 页面埋点事件 (visit、购买按钮点击等)
type AnalyticsEvent struct {
	baseModel.BaseModel
	EventType string `gorm:"not null;index" json:"event_type"`
}

// TableName gorm 默认会生成 analytics_event，与既有表名对齐
func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}

const (
	EventVisit             = "visit"
	EventSubscriptionClick = "subscription_click"
	EventWhatsappClick     = "whatsapp_click"
)
