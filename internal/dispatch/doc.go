// Package dispatch routes inbound events through duplicate detection,
// rate limiting, and per-identity session locking before handing them
// to the conversation engine. It is the only code that talks to the
// session store on the event path, and it guarantees all-or-nothing
// session persistence per event.
package dispatch
