package events

// ClickRecorded is emitted on the click pipeline for every completed
// redirect. OccurredAt is RFC3339Nano.
type ClickRecorded struct {
	EventID    string `json:"eventId"`
	Code       string `json:"code"`
	OccurredAt string `json:"occurredAt"`
	Country    string `json:"country,omitempty"`
	Device     string `json:"device,omitempty"`
	Browser    string `json:"browser,omitempty"`
	Referrer   string `json:"referrer,omitempty"`
}
