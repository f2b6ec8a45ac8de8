// Package dedupe provides a TTL cache over transport event IDs so that
// redelivered webhook events are processed at most once per window.
package dedupe
