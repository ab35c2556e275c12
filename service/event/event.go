package event

import "time"

// Context identifies what an event is about.
type Context struct {
	TenantID  string `json:"tenantId"`
	RecordID  string `json:"recordId,omitempty"`
	EventType string `json:"eventType"`
	ActorID   string `json:"actorId,omitempty"`
}

// Event is the envelope published for every committed change.
type Event[T any] struct {
	ID        string                 `json:"id"`
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:  context,
		Metadata: make(map[string]interface{}),
		Data:     data,
	}
}
