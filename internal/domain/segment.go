package domain

// SegmentFilter is one field/value predicate against a behavioral event.
type SegmentFilter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Segment is a named, filter-defined dynamic audience. Every filter must
// match (logical AND) for an event to contribute its email address.
type Segment struct {
	ID      string          `json:"id"`
	Filters []SegmentFilter `json:"filters"`
}

// Matches reports whether every filter matches the event's fields.
func (s *Segment) Matches(e Event) bool {
	for _, f := range s.Filters {
		v, ok := e[f.Field]
		if !ok {
			return false
		}
		str, ok := v.(string)
		if !ok || str != f.Value {
			return false
		}
	}
	return true
}
