// Package events fans domain events out to the notification queue and the
// websocket feed. Both sinks are fire-and-forget.
package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/queue"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/ws"
)

type Sink struct {
	Queue  *queue.Client
	WS     *ws.Server
	Logger *zap.Logger
}

type planUpdatedEvent struct {
	Type        string           `json:"type"`
	OrderID     string           `json:"orderId"`
	PlanID      string           `json:"planId"`
	OrderDetail plan.OrderDetail `json:"orderDetail"`
}

func (s *Sink) PlanUpdated(ctx context.Context, orderID, planID string, detail plan.OrderDetail) {
	event := planUpdatedEvent{
		Type:        queue.RoutingKeyPlanUpdated,
		OrderID:     orderID,
		PlanID:      planID,
		OrderDetail: detail,
	}
	if s.WS != nil {
		s.WS.BroadcastPlanUpdate(planID, event)
	}
	s.publish(ctx, queue.RoutingKeyPlanUpdated, event)
}

// Publish forwards an arbitrary event to the notification exchange.
func (s *Sink) Publish(ctx context.Context, routingKey string, payload any) {
	s.publish(ctx, routingKey, payload)
}

func (s *Sink) publish(ctx context.Context, routingKey string, payload any) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.PublishJSON(ctx, routingKey, payload); err != nil {
		s.Logger.Warn("event publish failed",
			zap.String("routingKey", routingKey), zap.Error(err))
	}
}
