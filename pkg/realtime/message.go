package realtime

const (
	messageTypeRegister   = "register"
	messageTypeRegistered = "registered"
)

// clientMessage is the only structured frame devices send. The ip field is
// self-reported: the claimed address is a trust decision, not something we
// derive from the transport (see the package doc).
type clientMessage struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
	IP       string `json:"ip"`
}

type registeredMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

func newRegisteredMessage() registeredMessage {
	return registeredMessage{
		Type:   messageTypeRegistered,
		Status: "success",
	}
}
