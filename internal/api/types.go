package api

// DeviceInfo summarizes one registered device type.
type DeviceInfo struct {
	Type     string   `json:"type"`
	Versions []string `json:"versions"`
	Latest   string   `json:"latest"`
}

// DeviceList is the /v1/devices payload.
type DeviceList struct {
	Devices []DeviceInfo `json:"devices"`
}

// APIError is the structured error body for failed requests.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
