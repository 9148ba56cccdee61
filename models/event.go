package models

import "time"

// Lifecycle event types published to the promotions SNS topic.
const (
	EventCouponCreated  = "coupon_created"
	EventCouponClaimed  = "coupon_claimed"
	EventCouponRejected = "coupon_rejected"
	EventCouponDeleted  = "coupon_deleted"
	EventAdCreated      = "ad_created"
	EventAdDeleted      = "ad_deleted"
)

// LifecycleEvent is the message published whenever a coupon or advertisement
// changes state. Downstream consumers key off event_type.
type LifecycleEvent struct {
	EventType string    `json:"event_type"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Title     string    `json:"title,omitempty"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"created_by,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
