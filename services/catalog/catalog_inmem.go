package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/MarcGrol/ticketshop/lib/mystore"
)

type InMemoryCatalog struct {
	store *mystore.InMemoryStore[TicketType]
}

func NewInMemoryCatalog(c context.Context, ticketTypes ...TicketType) (*InMemoryCatalog, error) {
	store, _, err := mystore.NewInMemoryStore[TicketType](c)
	if err != nil {
		return nil, err
	}
	cat := &InMemoryCatalog{
		store: store,
	}
	for _, tt := range ticketTypes {
		err := cat.Put(c, tt)
		if err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// NewInMemoryCatalogFromFile loads a json array of ticket types.
func NewInMemoryCatalogFromFile(c context.Context, filename string) (*InMemoryCatalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog file %s: %s", filename, err)
	}
	ticketTypes := []TicketType{}
	err = json.Unmarshal(data, &ticketTypes)
	if err != nil {
		return nil, fmt.Errorf("error parsing catalog file %s: %s", filename, err)
	}
	return NewInMemoryCatalog(c, ticketTypes...)
}

func (cat *InMemoryCatalog) Put(c context.Context, tt TicketType) error {
	_, err := tt.Amount()
	if err != nil {
		return fmt.Errorf("invalid price '%s' for %s: %s", tt.Price, ticketTypeKey(tt.EventUID, tt.PriceUID), err)
	}
	return cat.store.Put(c, ticketTypeKey(tt.EventUID, tt.PriceUID), tt)
}

func (cat *InMemoryCatalog) GetTicketType(c context.Context, eventUID string, priceUID string) (TicketType, bool, error) {
	return cat.store.Get(c, ticketTypeKey(eventUID, priceUID))
}
