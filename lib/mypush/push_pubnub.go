package mypush

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"

	"github.com/MarcGrol/ticketshop/lib/mylog"
)

type pubnubPusher struct {
	pn     *pubnub.PubNub
	logger mylog.Logger
}

func NewPubNubPusher(publishKey string, subscribeKey string, userID string) Pusher {
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	pnConfig.PublishKey = publishKey
	pnConfig.SubscribeKey = subscribeKey

	return &pubnubPusher{
		pn:     pubnub.NewPubNub(pnConfig),
		logger: mylog.New("pubnub"),
	}
}

func (p *pubnubPusher) Push(c context.Context, channel string, message any) error {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		return fmt.Errorf("error pushing to channel %s: %s", channel, err)
	}

	p.logger.Log(c, channel, mylog.SeverityDebug, "Pushed message to channel %s", channel)

	return nil
}
