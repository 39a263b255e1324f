package eventbus

// DeliveryStrategy determines behaviour when a subscriber's channel is full.
type DeliveryStrategy string

const (
	// StrategyDropOldest removes the oldest event from the channel and enqueues the new one.
	StrategyDropOldest DeliveryStrategy = "drop-oldest"
	// StrategyDropNewest discards the incoming event when the channel is full.
	StrategyDropNewest DeliveryStrategy = "drop-newest"
)

// DeliveryPolicy controls how a topic handles backpressure.
type DeliveryPolicy struct {
	Strategy DeliveryStrategy
}

var defaultPolicy = DeliveryPolicy{Strategy: StrategyDropOldest}

// defaultPolicies maps known topics to their delivery policies. Layout
// notifications are high-volume and self-correcting on the next event, so
// dropping the oldest is always safe. Mode flips and joins are rare; a
// deep enough default buffer (see defaultBuffers) keeps them lossless in
// practice.
var defaultPolicies = map[Topic]DeliveryPolicy{
	TopicLayoutChanged:       {Strategy: StrategyDropOldest},
	TopicConferenceJoined:    {Strategy: StrategyDropOldest},
	TopicConferenceAudioOnly: {Strategy: StrategyDropOldest},
	TopicConferencePin:       {Strategy: StrategyDropOldest},
	TopicPipModeChanged:      {Strategy: StrategyDropOldest},
	TopicPipRequested:        {Strategy: StrategyDropOldest},

	// Informational; stale connect/disconnect notices are worthless.
	TopicHostsLifecycle: {Strategy: StrategyDropNewest},
}

// policyFor returns the delivery policy for a topic, falling back to defaultPolicy.
func policyFor(topic Topic, overrides map[Topic]DeliveryPolicy) DeliveryPolicy {
	if overrides != nil {
		if p, ok := overrides[topic]; ok {
			return p
		}
	}
	if p, ok := defaultPolicies[topic]; ok {
		return p
	}
	return defaultPolicy
}
