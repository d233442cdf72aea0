package models

// EntitySnapshot is an opaque view of a versioned server entity (comment,
// post) at a point in time. Values come from JSON decoding, so numbers may
// arrive as float64; the typed accessors normalize that.
type EntitySnapshot map[string]any

// Int reads an integer field, accepting the numeric types JSON decoding
// and in-process construction can produce.
func (s EntitySnapshot) Int(key string) (int, bool) {
	switch v := s[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// String reads a string field.
func (s EntitySnapshot) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// Bool reads a boolean field.
func (s EntitySnapshot) Bool(key string) (bool, bool) {
	v, ok := s[key].(bool)
	return v, ok
}

// Version returns the optimistic-concurrency version tag, 0 when absent.
func (s EntitySnapshot) Version() int {
	v, _ := s.Int("version")
	return v
}

// Content returns the comment content field.
func (s EntitySnapshot) Content() (string, bool) {
	return s.String("content")
}

// Deleted reports whether the server marked the entity deleted.
func (s EntitySnapshot) Deleted() bool {
	v, _ := s.Bool("deleted")
	return v
}

// HasReactionFlags reports whether the snapshot carries like/dislike state.
func (s EntitySnapshot) HasReactionFlags() bool {
	_, liked := s["is_liked"]
	_, disliked := s["is_disliked"]
	return liked || disliked
}

// Liked returns the is_liked flag, false when absent.
func (s EntitySnapshot) Liked() bool {
	v, _ := s.Bool("is_liked")
	return v
}

// Disliked returns the is_disliked flag, false when absent.
func (s EntitySnapshot) Disliked() bool {
	v, _ := s.Bool("is_disliked")
	return v
}

// Clone returns a shallow copy of the snapshot.
func (s EntitySnapshot) Clone() EntitySnapshot {
	out := make(EntitySnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
