package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarcGrol/ticketshop/lib/myhttpclient"
)

type httpCatalog struct {
	baseURL string
	sender  myhttpclient.HTTPSender
}

// NewHTTPCatalog talks to a catalog service exposing GET /events/{eventId}/prices/{priceId}.
func NewHTTPCatalog(baseURL string, sender myhttpclient.HTTPSender) *httpCatalog {
	return &httpCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		sender:  sender,
	}
}

func (cat *httpCatalog) GetTicketType(c context.Context, eventUID string, priceUID string) (TicketType, bool, error) {
	u := fmt.Sprintf("%s/events/%s/prices/%s", cat.baseURL, url.PathEscape(eventUID), url.PathEscape(priceUID))

	status, body, err := cat.sender.Send(c, http.MethodGet, u, nil)
	if err != nil {
		return TicketType{}, false, fmt.Errorf("error fetching ticket type %s: %s", ticketTypeKey(eventUID, priceUID), err)
	}

	switch status {
	case http.StatusOK:
		tt := TicketType{}
		err = json.Unmarshal(body, &tt)
		if err != nil {
			return TicketType{}, false, fmt.Errorf("error parsing ticket type %s: %s", ticketTypeKey(eventUID, priceUID), err)
		}
		return tt, true, nil
	case http.StatusNotFound:
		return TicketType{}, false, nil
	default:
		return TicketType{}, false, fmt.Errorf("catalog returned status %d for %s", status, ticketTypeKey(eventUID, priceUID))
	}
}
