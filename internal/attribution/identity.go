package attribution

// InstallStatus classifies how the attribution provider saw this install.
type InstallStatus int

const (
	StatusUnknown InstallStatus = iota
	StatusOrganic
	StatusAttributed
)

// String returns the string representation of the status.
func (s InstallStatus) String() string {
	switch s {
	case StatusOrganic:
		return "organic"
	case StatusAttributed:
		return "attributed"
	default:
		return "unknown"
	}
}

// Identity is the attribution state accumulated from provider callbacks.
// It has a single writer (the Gateway); each field resolves at most once.
type Identity struct {
	// DeviceAttributionID is the provider-issued per-device identifier.
	// Empty until the identifier callback fires, or forever when the SDK
	// is unconfigured.
	DeviceAttributionID string

	// DeviceAdID is the platform advertising identifier, when available.
	DeviceAdID string

	// CampaignFields are the four attribution sub-fields extracted from
	// the first install-conversion payload.
	CampaignFields [4]string

	// InstallStatus resolves from the first install-conversion payload.
	InstallStatus InstallStatus
}
