package api

// Client-to-server message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypeDataRequest = "data_request"
)

// Server-to-client message types.
const (
	WSTypeWelcome      = "welcome"
	WSTypeSubscribed   = "subscribed"
	WSTypeUnsubscribed = "unsubscribed"
	WSTypePong         = "pong"
	WSTypeSensorData   = "sensor_data"
	WSTypeAlert        = "alert"
	WSTypeDataResponse = "data_response"
	WSTypeError        = "error"
)

// Stable error codes carried in error messages. Clients branch on the
// code, not the human-readable text.
const (
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeInvalidTopic   = "invalid_topic"
	ErrCodeForbidden      = "forbidden"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnknownType    = "unknown_type"
	ErrCodeInternal       = "internal"
)

// WSMessage is the envelope for every WebSocket message in both
// directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	Topics []string `json:"topics"`
}

// WSDataRequestPayload asks for recent readings from one device.
type WSDataRequestPayload struct {
	DeviceID string `json:"device_id"`
	Limit    int    `json:"limit,omitempty"`
}

// WSErrorPayload is the payload of an error message.
type WSErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
