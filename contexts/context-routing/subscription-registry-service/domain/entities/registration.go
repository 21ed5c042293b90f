package entities

import "time"

// DeliveryMode selects how the dispatcher hands matched updates to an
// agent: over the in-process/Redis pub/sub channel, or via a signed
// webhook POST.
type DeliveryMode string

const (
	DeliveryModePubSub  DeliveryMode = "pubsub"
	DeliveryModeWebhook DeliveryMode = "webhook"
)

// Delivery carries the fields relevant to the chosen DeliveryMode. Channel
// is set for pubsub; URL and HMACSecret are set for webhook.
type Delivery struct {
	Mode       DeliveryMode
	Channel    string
	URL        string
	HMACSecret string
}

// AgentRegistration is a long-lived subscriber's declared interest in a
// project's context stream. Needs are natural-language descriptions of
// what the agent wants matched against; LastSeenSequence is the event-log
// position the agent has been caught up to.
type AgentRegistration struct {
	AgentID          string
	ProjectID        string
	Needs            []string
	Delivery         Delivery
	LastSeenSequence int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
