package domain

// ImageSubmission is the normalized form of one inbound device upload.
// It exists only for the lifetime of a single message: either the bytes
// end up persisted or the submission is discarded with an error ack.
type ImageSubmission struct {
	RequestID string
	DeviceID  string
	ProjectID string
	Timestamp int64
	Filename  string
	Format    string
	Raw       []byte
	// Declared dimensions from message metadata; zero means unset and the
	// image header must be decoded instead.
	Width  int
	Height int
}

const (
	AckStatusSuccess = "success"
	AckStatusError   = "error"

	AckCodeOK    = 200
	AckCodeError = 400
)

// Ack is the reply published to a device's response topic after its
// submission is processed.
type Ack struct {
	ReqID      string `json:"req_id"`
	Status     string `json:"status"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	ServerTime int64  `json:"server_time"`
}

// UpdateEvent is broadcast to connected viewers after a durable write
// committed, so a consumer reacting to it can immediately query the record.
type UpdateEvent struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
	ImageID   string `json:"image_id"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}
