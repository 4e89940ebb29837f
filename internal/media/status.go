package media

// Status fills.
const (
	FillGreen  = "green"
	FillYellow = "yellow"
	FillRed    = "red"
)

// Status is the visual hint shown for a device in the flow editor and UIs.
type Status struct {
	Fill  string `json:"fill"`
	Shape string `json:"shape"`
	Text  string `json:"text"`
}

// Well-known statuses.
var (
	StatusReady            = Status{Fill: FillYellow, Shape: "dot", Text: "Ready"}
	StatusOn               = Status{Fill: FillGreen, Shape: "dot", Text: "ON"}
	StatusOff              = Status{Fill: FillRed, Shape: "dot", Text: "OFF"}
	StatusMissingConfig    = Status{Fill: FillRed, Shape: "dot", Text: "Missing config"}
	StatusMissingSmartHome = Status{Fill: FillRed, Shape: "dot", Text: "Missing SmartHome"}
)

// StatusIndicator receives status changes for a device.
type StatusIndicator interface {
	SetStatus(deviceID string, status Status)
}

// StatusIndicators fans a status out to several indicators.
type StatusIndicators []StatusIndicator

// SetStatus implements StatusIndicator.
func (s StatusIndicators) SetStatus(deviceID string, status Status) {
	for _, ind := range s {
		if ind != nil {
			ind.SetStatus(deviceID, status)
		}
	}
}

// StatusFor derives the on/off status from a state. A device without an
// on key, or with on false, shows OFF.
func StatusFor(state State) Status {
	if on, _ := state[KeyOn].(bool); on {
		return StatusOn
	}
	return StatusOff
}
