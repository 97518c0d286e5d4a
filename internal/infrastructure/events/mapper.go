package events

import (
	"context"
	"fmt"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/kafka"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/outbox"
)

// AggregateTypeSale is the aggregate type written on sale outbox events
const AggregateTypeSale = "Sale"

// SaleOutboxEvents converts the sale's pending domain events into outbox events for the sales topic
func SaleOutboxEvents(ctx context.Context, factory *cloudevents.EventFactory, sale *domain.Sale) ([]*outbox.OutboxEvent, error) {
	pending := sale.GetDomainEvents()
	if len(pending) == 0 {
		return nil, nil
	}

	result := make([]*outbox.OutboxEvent, 0, len(pending))
	for _, event := range pending {
		var cloudEvent *cloudevents.POSCloudEvent
		switch e := event.(type) {
		case *domain.SaleCompletedEvent:
			cloudEvent = factory.CreateSaleCompletedEvent(ctx, e.TenantID, cloudevents.SaleCompletedData{
				SaleID:        e.SaleID,
				StudioID:      e.StudioID,
				ClientID:      e.ClientID,
				SellerID:      e.SellerID,
				PaymentMethod: e.PaymentMethod,
				TotalAmount:   e.TotalAmount,
				LedgerEntryID: e.LedgerEntryID,
				ItemCount:     e.ItemCount,
				CompletedAt:   e.CompletedAt,
			})
		default:
			continue
		}

		cloudEvent.CorrelationID = logging.CorrelationID(ctx)

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(sale.SaleID, AggregateTypeSale, kafka.Topics.Sales, cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		result = append(result, outboxEvent)
	}

	return result, nil
}
