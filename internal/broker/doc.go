// Package broker distributes run events between agents, executors, and
// observers through named topics. Two implementations are provided: an
// in-process broker built on haxmap, and a NATS-backed broker that serializes
// events with the events package codecs for cross-process fan-out.
//
// Subscriptions carry a ResultHook so the final run result reaches
// subscribers alongside the message-level events. Slow local subscribers are
// unsubscribed rather than allowed to block publishers.
package broker
