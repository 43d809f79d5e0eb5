package checkout

import (
	"github.com/MarcGrol/ticketshop/lib/mylock"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mypublisher"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/lib/myuuid"
	"github.com/MarcGrol/ticketshop/services/catalog"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/paymentgateway"
	"github.com/MarcGrol/ticketshop/services/tickets"
)

type service struct {
	cfg               Config
	sessionStore      mystore.Store[checkoutapi.CheckoutSession]
	paymentEventStore mystore.Store[PaymentEvent]
	catalog           catalog.Catalog
	gateway           paymentgateway.Gateway
	issuer            *tickets.Issuer
	locker            mylock.Locker
	publisher         mypublisher.Publisher
	nower             mytime.Nower
	uuider            myuuid.UUIDer
	logger            mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(cfg Config, sessionStore mystore.Store[checkoutapi.CheckoutSession], paymentEventStore mystore.Store[PaymentEvent],
	cat catalog.Catalog, gateway paymentgateway.Gateway, issuer *tickets.Issuer, locker mylock.Locker,
	pub mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		cfg:               cfg,
		sessionStore:      sessionStore,
		paymentEventStore: paymentEventStore,
		catalog:           cat,
		gateway:           gateway,
		issuer:            issuer,
		locker:            locker,
		publisher:         pub,
		nower:             nower,
		uuider:            uuider,
		logger:            logger,
	}
}
