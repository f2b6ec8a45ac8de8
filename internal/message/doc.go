// Package message defines the boundary types exchanged with the
// transport layer: inbound Events and outbound Replies.
package message
