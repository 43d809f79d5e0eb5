package mypubsub

import (
	"context"
	"os"
	"sync"

	"github.com/MarcGrol/ticketshop/lib/mylog"
)

// FakePubSub keeps everything in memory and remembers what was published per topic.
type FakePubSub struct {
	sync.Mutex
	logger        mylog.Logger
	subscriptions map[string][]string
	published     map[string][]string
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newFakePubSub
	}
}

func newFakePubSub(c context.Context) (PubSub, func(), error) {
	return NewFake(), func() {}, nil
}

func NewFake() *FakePubSub {
	return &FakePubSub{
		logger:        mylog.New("pubsub"),
		subscriptions: map[string][]string{},
		published:     map[string][]string{},
	}
}

func (ps *FakePubSub) Subscribe(c context.Context, topic string, urlToPostTo string) error {
	ps.Lock()
	defer ps.Unlock()

	ps.subscriptions[topic] = append(ps.subscriptions[topic], urlToPostTo)
	ps.logger.Log(c, topic, mylog.SeverityInfo, "Subscribed %s to topic %s", urlToPostTo, topic)
	return nil
}

func (ps *FakePubSub) CreateTopic(c context.Context, topic string) error {
	return nil
}

func (ps *FakePubSub) Publish(c context.Context, topic string, data string) error {
	ps.Lock()
	defer ps.Unlock()

	ps.published[topic] = append(ps.published[topic], data)
	ps.logger.Log(c, topic, mylog.SeverityDebug, "Published %d bytes on topic %s", len(data), topic)
	return nil
}

func (ps *FakePubSub) Published(topic string) []string {
	ps.Lock()
	defer ps.Unlock()

	return append([]string{}, ps.published[topic]...)
}
