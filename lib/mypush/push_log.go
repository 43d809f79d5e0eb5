package mypush

import (
	"context"

	"github.com/MarcGrol/ticketshop/lib/mylog"
)

// logPusher is used when no push keys are configured.
type logPusher struct {
	logger mylog.Logger
}

func NewLogPusher() Pusher {
	return &logPusher{
		logger: mylog.New("push"),
	}
}

func (p *logPusher) Push(c context.Context, channel string, message any) error {
	p.logger.Log(c, channel, mylog.SeverityInfo, "Push to %s: %+v", channel, message)
	return nil
}
