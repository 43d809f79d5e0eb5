package myuuid

import "github.com/google/uuid"

//go:generate mockgen -source=uuid.go -package myuuid -destination uuid_mock.go UUIDer
type UUIDer interface {
	Create() string
}

type RealUUIDer struct{}

func (u RealUUIDer) Create() string {
	return uuid.New().String()
}

var namespace = uuid.MustParse("6f1c2a4e-7d0b-4f43-9d55-2c6b0f3a9e11")

// Derive returns the same identifier for the same name, every time.
func Derive(name string) string {
	return uuid.NewSHA1(namespace, []byte(name)).String()
}
