// Package service bundles the application services behind one constructor so
// the transport layer takes a single dependency.
package service

import (
	"log/slog"

	"github.com/bulldogcinemas/cinema-go/internal/notify"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
	redisrepo "github.com/bulldogcinemas/cinema-go/internal/repository/redis"
	"github.com/bulldogcinemas/cinema-go/internal/service/booking"
	"github.com/bulldogcinemas/cinema-go/internal/service/catalog"
	"github.com/bulldogcinemas/cinema-go/internal/service/hold"
	"github.com/bulldogcinemas/cinema-go/internal/service/purchase"
	"github.com/bulldogcinemas/cinema-go/internal/service/query"
)

type Services struct {
	Hold     *hold.Service
	Purchase *purchase.Service
	Booking  *booking.Service
	Catalog  *catalog.Service
	Query    *query.Service
}

// Deps carries the optional infrastructure. Cache, pubsub, limiter, and
// notifier may all be nil; the services degrade to direct storage access.
type Deps struct {
	Store    repository.Store
	Cache    *redisrepo.Cache
	PubSub   *redisrepo.ShowtimesPubSub
	Limiter  *redisrepo.SlidingWindowLimiter
	Notifier notify.Notifier
	Logger   *slog.Logger
	HoldCfg  hold.Config
}

func NewServices(d Deps) *Services {
	return &Services{
		Hold:     hold.New(d.Store, d.Cache, d.PubSub, d.Limiter, d.Logger, d.HoldCfg),
		Purchase: purchase.New(d.Store, d.Cache, d.PubSub, d.Notifier, d.Logger),
		Booking:  booking.New(d.Store, d.Cache, d.PubSub),
		Catalog:  catalog.New(d.Store),
		Query:    query.New(d.Store, d.Cache),
	}
}
