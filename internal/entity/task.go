package entity

// Metadata carries request context alongside a task: client ip, user agent,
// path and method, plus annotations added by the worker. Values must be JSON
// primitives.
type Metadata map[string]any

// With returns a copy of m with key set to value.
func (m Metadata) With(key string, value any) Metadata {
	out := make(Metadata, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

// Task is the queue message body.
type Task struct {
	PhoneNumber string   `json:"phone_number"`
	Metadata    Metadata `json:"metadata"`
}
