package driven

import "context"

// ConfigUpdate is the payload published when a config value changes. Value
// is empty for encrypted entries.
type ConfigUpdate struct {
	Name      string `json:"name"`
	Value     string `json:"value,omitempty"`
	Encrypted bool   `json:"encrypted"`
}

// ConfigNotifier broadcasts config-change events to subscribers. Publish is
// fire-and-forget; implementations log delivery failures instead of returning them.
type ConfigNotifier interface {
	Publish(ctx context.Context, topic string, update ConfigUpdate)
}
