package tether

// Source is a push-based producer of values over time.
//
// Subscribe registers fn to receive every value the source produces from
// this call onward, and returns a cancel function that terminates the
// registration. Cancel must be safe to call more than once. Subscribe
// returns an error when the source cannot accept subscribers (closed,
// unreachable, exhausted); in that case no registration exists and cancel
// is not returned.
//
// A source is owned by its creator and may be shared by any number of
// binders; each binder holds its own registration. The binder detects
// source replacement by interface identity, so implementations should be
// pointer-shaped (a *T implementing Source[V]) to make that comparison
// well defined.
//
// Emissions may be delivered from any goroutine. The binder serializes
// what it does with them; the source does not need to.
type Source[T any] interface {
	Subscribe(fn func(T)) (cancel func(), err error)
}
