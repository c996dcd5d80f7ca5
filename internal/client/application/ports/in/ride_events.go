package in

import "cabconnect/internal/client/domain"

// RideEvents: поток push-уведомлений о поездках. Subscribers are called from
// the feed's goroutine and must hand work to the event loop themselves.
type RideEvents interface {
	Subscribe(fn func(domain.RideEvent)) (unsubscribe func())
}
