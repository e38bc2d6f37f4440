// Package validate implements the per-message validation pipeline.
//
// Every inbound publication runs through five checks in a fixed order:
//
//	parse/schema -> identity -> freshness -> replay -> signature
//
// The first failing check terminates the pipeline and names the reject
// reason; when several checks would fail, the earliest one wins. Cheap
// structural checks run first; freshness precedes replay so stale
// messages never pollute the cache; the signature check runs last because
// it is the most expensive and needs a secret lookup.
//
// The replay cache is mutated before the signature check. A message with
// a bad signature therefore still claims its message ID; replaying the
// original signed bytes afterwards is rejected as a replay. This bounds
// CPU cost under attack: an identifier is never verified twice.
package validate
