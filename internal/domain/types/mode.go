package types

type ServiceMode string

// DeliveryService - reference remote service accepting location/status pushes and fanning them out
// DriverAgent - samples the device position and publishes it for an active delivery
// TrackingViewer - subscribes to live tracking of one delivery
// SetStatus - one-shot status transition for a delivery
// IssueToken - prints a signed bearer token
const (
	DeliveryService ServiceMode = "delivery-service"
	DriverAgent     ServiceMode = "driver-agent"
	TrackingViewer  ServiceMode = "tracking-viewer"
	SetStatus       ServiceMode = "set-status"
	IssueToken      ServiceMode = "issue-token"
)

func (m ServiceMode) String() string {
	return string(m)
}

func (m ServiceMode) IsValid() bool {
	switch m {
	case DeliveryService, DriverAgent, TrackingViewer, SetStatus, IssueToken:
		return true
	}
	return false
}

// ChannelErrorReason classifies live tracking transport failures.
type ChannelErrorReason string

const (
	ReasonConnectionLost ChannelErrorReason = "connection_lost"
	ReasonAuthFailed     ChannelErrorReason = "auth_failed"
	ReasonUnknown        ChannelErrorReason = "unknown"
)

// TrackingEvent names the kind of audit event stored for a delivery.
type TrackingEvent string

func (e TrackingEvent) String() string {
	return string(e)
}

const (
	EventLocationUpdated TrackingEvent = "LOCATION_UPDATED"
	EventStatusChanged   TrackingEvent = "STATUS_CHANGED"
)
