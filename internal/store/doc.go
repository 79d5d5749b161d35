// Package store is the shared record store every auth context reads and
// writes.
//
// A Store is one context's handle on a Backend that all contexts share
// (a SQLite file in production). Writes go to the backend and are then
// announced through a Notifier (MQTT in production). Every Store drops
// announcements carrying its own origin, so Watch callbacks fire only
// for changes made by some other context, never for the caller's own
// writes:
//
//	users, err := st.Read(ctx, "app_users_v1")
//	...
//	cancel := st.Watch(func(record string) {
//	    // another context changed record; re-read it
//	})
//	defer cancel()
//
// Watch callbacks run on a single goroutine per Store. Changes that
// arrive while callbacks are running are coalesced per record and
// delivered once afterwards, so a callback that reacts by writing can
// never re-trigger itself.
package store
