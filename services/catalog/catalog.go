package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// TicketType is a price of an event as offered by the event catalog.
type TicketType struct {
	EventUID  string `json:"eventId"`
	PriceUID  string `json:"priceId"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	Available int    `json:"available"`
}

func (tt TicketType) Amount() (decimal.Decimal, error) {
	return decimal.NewFromString(tt.Price)
}

// Catalog is the read-only view on the external event catalog.
//
//go:generate mockgen -source=catalog.go -package catalog -destination catalog_mock.go Catalog
type Catalog interface {
	GetTicketType(c context.Context, eventUID string, priceUID string) (TicketType, bool, error)
}

func ticketTypeKey(eventUID string, priceUID string) string {
	return eventUID + "/" + priceUID
}
