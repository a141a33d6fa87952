package model

// Green API inbound notification shapes. Only text messages are processed;
// every other payload is acknowledged and ignored.

// WebhookPayload is the provider notification posted to /webhook.
type WebhookPayload struct {
	TypeWebhook string      `json:"typeWebhook,omitempty"`
	SenderData  SenderData  `json:"senderData"`
	MessageData MessageData `json:"messageData"`
}

// SenderData identifies the sending chat.
type SenderData struct {
	ChatID     string `json:"chatId"`
	SenderName string `json:"senderName,omitempty"`
}

// MessageData carries the message content.
type MessageData struct {
	TypeMessage     string          `json:"typeMessage"`
	TextMessageData TextMessageData `json:"textMessageData"`
}

// TextMessageData is the body of a text message.
type TextMessageData struct {
	TextMessage string `json:"textMessage"`
}

// TypeTextMessage is the only messageData type the orchestrator processes.
const TypeTextMessage = "textMessage"

// WebhookStatus is the stable result tag returned for an inbound event.
type WebhookStatus string

const (
	WebhookOK              WebhookStatus = "ok"
	WebhookIgnored         WebhookStatus = "ignored"
	WebhookDuplicate       WebhookStatus = "duplicate"
	WebhookNotFound        WebhookStatus = "not_found"
	WebhookAlreadyComplete WebhookStatus = "already_complete"
	WebhookError           WebhookStatus = "error"
)

// WebhookResponse is the JSON body returned for every inbound event,
// always with HTTP 200 so the provider never retries.
type WebhookResponse struct {
	Status WebhookStatus `json:"status"`
}
