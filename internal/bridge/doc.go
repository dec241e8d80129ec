// Package bridge implements the event broadcast bridge: it ingests one
// inbound webhook stream and fans it out to N concurrent SSE listeners in
// real time.
//
// # Overview
//
// Inbound updates arrive at POST /webhook. The handler extracts a message
// with a non-empty text field and a best-effort sender identity, queues it
// centrally, and optionally persists it and launches the agent trigger.
// A single broadcast loop dequeues events and delivers each one to every
// live subscriber channel.
//
// # Subscriber lifecycle
//
// GET /events registers a subscriber and streams its events as
// server-sent-event records:
//
//	data: {"query":"<text>"}
//
// Each subscriber owns a bounded channel (capacity 10) for its connection
// lifetime. De-registration is guaranteed on every exit path, including
// client disconnection mid-delivery.
//
// # Ordering and backpressure
//
// Per-subscriber delivery order matches ingest order; the single consumer
// loop is what serializes deliveries. Delivery to a full subscriber
// channel blocks the whole fan-out pass, so one stalled subscriber delays
// every other subscriber. The trade is deliberate: strict ordering and an
// at-least-one-relay guarantee over per-subscriber isolation. Events
// ingested while no subscriber is connected are dropped, never replayed.
package bridge
