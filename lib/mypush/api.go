package mypush

import "context"

//go:generate mockgen -source=api.go -package mypush -destination pusher_mock.go Pusher
type Pusher interface {
	Push(c context.Context, channel string, message any) error
}
