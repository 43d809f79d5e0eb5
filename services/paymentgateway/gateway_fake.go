package paymentgateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MarcGrol/ticketshop/lib/myuuid"
)

const fakeSignatureHeader = "X-Signature"

type fakeNotification struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId"`
	Status    PaymentStatus `json:"status"`
}

// FakeGateway approves nothing by itself; notifications are posted by tests or local tooling,
// signed with the shared secret.
type FakeGateway struct {
	sync.Mutex
	secret  []byte
	uuider  myuuid.UUIDer
	intents map[string]IntentRequest
	failing bool
}

func NewFakeGateway(secret string, uuider myuuid.UUIDer) *FakeGateway {
	return &FakeGateway{
		secret:  []byte(secret),
		uuider:  uuider,
		intents: map[string]IntentRequest{},
	}
}

func (g *FakeGateway) Name() string {
	return "fake"
}

func (g *FakeGateway) SignatureHeader() string {
	return fakeSignatureHeader
}

// FailNextIntents makes CreateIntent fail until reset.
func (g *FakeGateway) FailNextIntents(failing bool) {
	g.Lock()
	defer g.Unlock()
	g.failing = failing
}

func (g *FakeGateway) CreateIntent(c context.Context, req IntentRequest) (Intent, error) {
	g.Lock()
	defer g.Unlock()

	if g.failing {
		return Intent{}, fmt.Errorf("%w: fake gateway unavailable", ErrGateway)
	}

	intentUID := "pay_" + g.uuider.Create()
	g.intents[intentUID] = req

	return Intent{
		UID:         intentUID,
		RedirectURL: req.SuccessURL,
	}, nil
}

func (g *FakeGateway) Intents() map[string]IntentRequest {
	g.Lock()
	defer g.Unlock()

	intents := map[string]IntentRequest{}
	for k, v := range g.intents {
		intents[k] = v
	}
	return intents
}

func (g *FakeGateway) VerifyWebhookSignature(c context.Context, payload []byte, signatureHeader string) bool {
	expected, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, g.sign(payload))
}

func (g *FakeGateway) ParseNotification(c context.Context, payload []byte) (Notification, error) {
	n := fakeNotification{}
	err := json.Unmarshal(payload, &n)
	if err != nil {
		return Notification{}, fmt.Errorf("%w: %s", ErrMalformedNotification, err)
	}
	if n.ID == "" || n.SessionID == "" {
		return Notification{}, fmt.Errorf("%w: missing id or sessionId", ErrMalformedNotification)
	}
	switch n.Status {
	case PaymentStatusApproved, PaymentStatusPending, PaymentStatusRejected:
	default:
		return Notification{}, fmt.Errorf("%w: unknown status '%s'", ErrMalformedNotification, n.Status)
	}

	return Notification{
		ExternalPaymentUID: n.ID,
		SessionUID:         n.SessionID,
		Status:             n.Status,
	}, nil
}

// NewNotification returns a payload and matching signature as the fake provider would send them.
func (g *FakeGateway) NewNotification(externalPaymentUID string, sessionUID string, status PaymentStatus) ([]byte, string) {
	payload, _ := json.Marshal(fakeNotification{
		ID:        externalPaymentUID,
		SessionID: sessionUID,
		Status:    status,
	})
	return payload, hex.EncodeToString(g.sign(payload))
}

func (g *FakeGateway) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
