// Package logistics consumes an external shipment capability after approvals
// commit. It never alters approval state; it only advances fulfillment.
package logistics

import (
	"context"
	"time"
)

// ShipmentStatus is the carrier-side status of a shipment.
type ShipmentStatus string

const (
	ShipmentCreated   ShipmentStatus = "created"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentCancelled ShipmentStatus = "cancelled"
)

// ShipmentRequest asks a provider to ship an approved record.
type ShipmentRequest struct {
	RecordID   string `json:"recordId"`
	TenantID   string `json:"tenantId"`
	PartnerID  string `json:"partnerId"`
	ArtifactID string `json:"artifactId,omitempty"`
}

// Shipment is a created shipment.
type Shipment struct {
	ID        string         `json:"id"`
	RecordID  string         `json:"recordId"`
	Status    ShipmentStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Provider is the external logistics capability.
type Provider interface {
	CreateShipment(ctx context.Context, request *ShipmentRequest) (*Shipment, error)
	GetStatus(ctx context.Context, shipmentID string) (ShipmentStatus, error)
	Cancel(ctx context.Context, shipmentID string) error
	CheckServiceability(ctx context.Context, partnerID string) (bool, error)
}
