package dto

// PubSubPushRequest is the envelope Google Pub/Sub wraps around pushed
// messages.
type PubSubPushRequest struct {
	Message      PubSubMessage `json:"message"`
	Subscription string        `json:"subscription"`
}

type PubSubMessage struct {
	MessageID  string            `json:"messageId"`
	Data       string            `json:"data"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
