// Package codec translates between feed wire frames and typed events.
//
// Outbound frames are JSON requests of the form
//
//	{"action": "subscribe" | "unsubscribe" | "ping", "symbol": "...", "market": "..."}
//
// Inbound frames carry a "type" discriminator and decode into one of the
// Event implementations. Decode never returns an error: malformed frames
// become DecodeError events so one bad frame cannot tear down a connection.
package codec
