package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/procureflow/internal/clock"
	"github.com/viant/procureflow/internal/idgen"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/criteria"
	"github.com/viant/procureflow/service/dao/store"
)

// ArtifactCreator creates the downstream artifact for one partition and
// returns its id.
type ArtifactCreator interface {
	Create(ctx context.Context, request *Request, partition *Partition) (string, error)
}

// AggregateOrder is the purchase order created for one fulfillment partner.
type AggregateOrder struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tenantId"`
	PartnerID         string    `json:"partnerId"`
	RecordIDs         []string  `json:"recordIds"`
	ExternalRefNumber string    `json:"externalRefNumber"`
	ExternalRefDate   time.Time `json:"externalRefDate"`
	CreatedBy         string    `json:"createdBy"`
	CreatedAt         time.Time `json:"createdAt"`
}

// OrderCreator persists one AggregateOrder per partition.
type OrderCreator struct {
	orders dao.Service[string, AggregateOrder]
}

// Create stores an aggregate order for partition.
func (c *OrderCreator) Create(ctx context.Context, request *Request, partition *Partition) (string, error) {
	order := &AggregateOrder{
		ID:                idgen.WithPrefix("PO"),
		TenantID:          request.TenantID,
		PartnerID:         partition.PartnerID,
		RecordIDs:         append([]string{}, partition.RecordIDs...),
		ExternalRefNumber: request.ExternalRefNumber,
		ExternalRefDate:   request.ExternalRefDate,
		CreatedBy:         request.Actor.ID,
		CreatedAt:         clock.Now(),
	}
	if err := c.orders.Save(ctx, order); err != nil {
		return "", fmt.Errorf("failed to create order for partner %s: %w", partition.PartnerID, err)
	}
	return order.ID, nil
}

// Orders returns the order store.
func (c *OrderCreator) Orders() dao.Service[string, AggregateOrder] {
	return c.orders
}

// NewOrderCreator creates an order creator backed by orders, or by an
// in-memory store when orders is nil.
func NewOrderCreator(orders dao.Service[string, AggregateOrder]) *OrderCreator {
	if orders == nil {
		orders = store.NewMemoryStore[string, AggregateOrder](
			func(order *AggregateOrder) string { return order.ID },
			store.WithFields[string, AggregateOrder](orderFields),
		)
	}
	return &OrderCreator{orders: orders}
}

func orderFields(order *AggregateOrder) criteria.Field {
	return func(name string) (string, bool) {
		switch name {
		case dao.ParamTenantID:
			return order.TenantID, true
		case dao.ParamPartnerID:
			return order.PartnerID, true
		}
		return "", false
	}
}
