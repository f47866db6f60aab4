// Package messages defines the typed message vocabulary exchanged between
// users, agents and tools during a crew run.
//
// Every payload type implements ModelMessage; requests (user prompts, tool
// responses) and responses (assistant messages, tool calls) are further
// distinguished by marker interfaces so that generic containers can constrain
// what they accept. The Message envelope adds run/turn identity, sender and
// timestamp to a payload.
//
// Payloads serialize with custom JSON codecs so that multi-part content
// (plain text, image references, refusals) round-trips a single compact
// representation: a bare string when the content is only text, an array of
// type-tagged parts otherwise.
package messages
