// Package ratelimit gates inbound events per user identity using a
// fixed window, with in-memory and Redis-backed implementations.
package ratelimit
