// Package server assembles the study assistant from configuration and
// serves its HTTP intake: a webhook-style event endpoint plus a health
// probe. Transport adapters (WhatsApp relays, test harnesses) POST
// normalized events here and deliver the returned replies themselves.
package server
