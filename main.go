package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/MarcGrol/ticketshop/lib/myconfig"
	"github.com/MarcGrol/ticketshop/lib/myhttpclient"
	"github.com/MarcGrol/ticketshop/lib/mylock"
	"github.com/MarcGrol/ticketshop/lib/mymetrics"
	"github.com/MarcGrol/ticketshop/lib/mypublisher"
	"github.com/MarcGrol/ticketshop/lib/mypubsub"
	"github.com/MarcGrol/ticketshop/lib/mypush"
	"github.com/MarcGrol/ticketshop/lib/myqueue"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/lib/myuuid"
	"github.com/MarcGrol/ticketshop/lib/myvault"
	"github.com/MarcGrol/ticketshop/services/catalog"
	"github.com/MarcGrol/ticketshop/services/checkout"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/checkoutevents"
	"github.com/MarcGrol/ticketshop/services/paymentgateway"
	"github.com/MarcGrol/ticketshop/services/sessionpush"
	"github.com/MarcGrol/ticketshop/services/staff"
	"github.com/MarcGrol/ticketshop/services/ticketevents"
	"github.com/MarcGrol/ticketshop/services/tickets"
	"github.com/MarcGrol/ticketshop/services/warmup"
)

func main() {
	c := context.Background()

	cfg := myconfig.Load()
	err := cfg.Validate()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}
	router := mux.NewRouter()
	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating task queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	locker, lockerCleanup, err := newLocker(c, cfg, uuider)
	if err != nil {
		log.Fatalf("Error creating locker: %s", err)
	}
	defer lockerCleanup()

	gateway, err := newGateway(cfg, nower, uuider)
	if err != nil {
		log.Fatalf("Error creating payment gateway: %s", err)
	}

	cat, err := newCatalog(c, cfg)
	if err != nil {
		log.Fatalf("Error creating catalog: %s", err)
	}

	sessionStore, sessionStoreCleanup, err := mystore.New[checkoutapi.CheckoutSession](c)
	if err != nil {
		log.Fatalf("Error creating session store: %s", err)
	}
	defer sessionStoreCleanup()

	paymentEventStore, paymentEventStoreCleanup, err := mystore.New[checkout.PaymentEvent](c)
	if err != nil {
		log.Fatalf("Error creating payment event store: %s", err)
	}
	defer paymentEventStoreCleanup()

	ticketStore, ticketStoreCleanup, err := mystore.New[tickets.Ticket](c)
	if err != nil {
		log.Fatalf("Error creating ticket store: %s", err)
	}
	defer ticketStoreCleanup()

	vault, vaultCleanup, err := myvault.New(c)
	if err != nil {
		log.Fatalf("Error creating vault: %s", err)
	}
	defer vaultCleanup()

	staffService := staff.NewService(vault, nower, bcrypt.DefaultCost)
	if cfg.StaffSeed != "" {
		err = staffService.Seed(c, cfg.StaffSeed)
		if err != nil {
			log.Fatalf("Error seeding staff credentials: %s", err)
		}
	}

	issuer := tickets.NewIssuer(ticketStore, nower, publisher)

	checkoutService := checkout.NewWebService(checkout.Config{
		SessionTTL:           cfg.SessionTTL,
		SessionRetention:     cfg.SessionRetention,
		MaxTicketsPerSession: cfg.MaxTicketsPerSession,
		StorefrontURL:        cfg.StorefrontURL,
	}, sessionStore, paymentEventStore, cat, gateway, issuer, locker, nower, uuider, publisher)
	err = checkoutService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering checkout endpoints: %s", err)
	}
	checkoutService.StartReaper(c, cfg.ReaperInterval)

	ticketService := tickets.NewWebService(ticketStore, locker, staffService, nower, publisher)
	err = ticketService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering ticket endpoints: %s", err)
	}

	sessionPushService := sessionpush.NewService(pubsub, newPusher(cfg))
	sessionPushService.RegisterEndpoints(c, router)
	err = sessionPushService.Subscribe(c)
	if err != nil {
		log.Fatalf("Error subscribing session push: %s", err)
	}

	warmup.NewService(vault, locker, publisher, checkoutevents.TopicName, ticketevents.TopicName).RegisterEndpoints(c, router)

	mymetrics.RegisterEndpoints(router)

	startWebServerBlocking(router, cfg.Port)
}

func newLocker(c context.Context, cfg *myconfig.Config, uuider myuuid.UUIDer) (mylock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return mylock.NewInMemoryLocker(), func() {}, nil
	}

	client, cleanup, err := mylock.NewRedisClient(c, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return mylock.NewRedisLocker(client, uuider), cleanup, nil
}

func newGateway(cfg *myconfig.Config, nower mytime.Nower, uuider myuuid.UUIDer) (paymentgateway.Gateway, error) {
	switch cfg.PaymentProvider {
	case "stripe":
		if cfg.StripeAPIKey == "" || cfg.StripeWebhookSecret == "" {
			return nil, fmt.Errorf("STRIPE_API_KEY and STRIPE_WEBHOOK_SECRET are mandatory for provider stripe")
		}
		return paymentgateway.NewStripeGateway(cfg.StripeAPIKey, cfg.StripeWebhookSecret, nower), nil
	case "mollie":
		payer, err := paymentgateway.NewMolliePayer(cfg.MollieAPIKey, cfg.MollieTestMode)
		if err != nil {
			return nil, err
		}
		return paymentgateway.NewMollieGateway(payer), nil
	case "fake":
		return paymentgateway.NewFakeGateway(cfg.FakeGatewaySecret, uuider), nil
	default:
		return nil, fmt.Errorf("unknown payment provider '%s'", cfg.PaymentProvider)
	}
}

func newCatalog(c context.Context, cfg *myconfig.Config) (catalog.Catalog, error) {
	if cfg.CatalogURL != "" {
		return catalog.NewHTTPCatalog(cfg.CatalogURL, myhttpclient.New(5*time.Second)), nil
	}
	if cfg.CatalogFile != "" {
		return catalog.NewInMemoryCatalogFromFile(c, cfg.CatalogFile)
	}
	return catalog.NewInMemoryCatalog(c, catalog.TicketType{
		EventUID:  "demo-event",
		PriceUID:  "general-admission",
		Name:      "General admission",
		Price:     "25.00",
		Currency:  "EUR",
		Available: 1000,
	})
}

func newPusher(cfg *myconfig.Config) mypush.Pusher {
	if cfg.PubNubPublishKey == "" || cfg.PubNubSubscribeKey == "" {
		return mypush.NewLogPusher()
	}
	return mypush.NewPubNubPusher(cfg.PubNubPublishKey, cfg.PubNubSubscribeKey, "ticketshop-backend")
}

func startWebServerBlocking(router *mux.Router, port string) {
	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
