package domain

// Event is an opaque tenant-scoped record from the append-only event log.
// Only "type" and "email" have engine-level meaning; everything else is
// carried through for segment filters.
type Event map[string]interface{}

// EventUnsubscribe is the event type that suppresses future delivery to
// the address in the event's email field.
const EventUnsubscribe = "email_unsubscribe"

// Type returns the event's type field, or "" when absent.
func (e Event) Type() string {
	s, _ := e["type"].(string)
	return s
}

// Email returns the event's email field when it is a string. Events with
// missing or non-string email fields report ok=false and are ignored by
// unsubscribe filtering and segment membership.
func (e Event) Email() (string, bool) {
	s, ok := e["email"].(string)
	return s, ok && s != ""
}
