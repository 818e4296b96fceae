package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

const encodingBase64 = "base64"

// flatMessage is the current device payload: the image travels at the top
// level with its metadata alongside.
type flatMessage struct {
	ReqID     string       `json:"req_id"`
	DeviceID  string       `json:"device_id"`
	Encoding  string       `json:"encoding"`
	ImageData string       `json:"image_data"`
	Metadata  flatMetadata `json:"metadata"`
}

type flatMetadata struct {
	ImageID   string `json:"image_id"`
	Timestamp int64  `json:"timestamp"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// nestedMessage is the legacy payload kept for older firmware: the image
// is wrapped in an "image" object.
type nestedMessage struct {
	ReqID     string      `json:"req_id"`
	DeviceID  string      `json:"device_id"`
	Timestamp int64       `json:"timestamp"`
	Image     nestedImage `json:"image"`
}

type nestedImage struct {
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Encoding string `json:"encoding"`
	Data     string `json:"data"`
}

// schemaProbe discriminates the two wire schemas: presence of "image_data"
// selects the flat schema, even when a stray "image" key coexists.
type schemaProbe struct {
	ImageData *string `json:"image_data"`
}

// ParseTopic validates an upload topic of the form
// <namespace>/<action>/<projectID> and returns the project segment plus
// the last segment as a device-id fallback.
func ParseTopic(topic string) (projectID, deviceFallback string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidTopic, topic)
	}
	return parts[2], parts[len(parts)-1], nil
}

// Decode parses an inbound upload message into a normalized submission,
// including base64-decoding the image bytes. The topic must carry the
// project id; messages on malformed topics are not addressable and fail
// with ErrInvalidTopic.
func Decode(payload []byte, topic string) (*domain.ImageSubmission, error) {
	projectID, deviceFallback, err := ParseTopic(topic)
	if err != nil {
		return nil, err
	}

	var probe schemaProbe
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	var sub *domain.ImageSubmission
	var encoding, rawPayload string
	if probe.ImageData != nil {
		sub, encoding, rawPayload = decodeFlat(payload)
	} else {
		sub, encoding, rawPayload = decodeNested(payload)
	}
	sub.ProjectID = projectID
	if sub.DeviceID == "" {
		sub.DeviceID = deviceFallback
	}
	if sub.DeviceID == "" {
		sub.DeviceID = "unknown"
	}

	if encoding != encodingBase64 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedEncoding, encoding)
	}

	raw, err := decodeBase64(rawPayload)
	if err != nil {
		return nil, err
	}
	sub.Raw = raw

	return sub, nil
}

func decodeFlat(payload []byte) (*domain.ImageSubmission, string, string) {
	var msg flatMessage
	// Probe already validated the JSON; field type mismatches fall back to
	// zero values and the defaults below.
	_ = json.Unmarshal(payload, &msg)

	ts := msg.Metadata.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	format := strings.ToLower(msg.Metadata.Format)
	if format == "" {
		format = "jpeg"
	}
	imageID := msg.Metadata.ImageID
	if imageID == "" {
		imageID = fmt.Sprintf("img_%d", ts)
	}
	encoding := msg.Encoding
	if encoding == "" {
		encoding = encodingBase64
	}

	return &domain.ImageSubmission{
		RequestID: defaultReqID(msg.ReqID),
		DeviceID:  msg.DeviceID,
		Timestamp: ts,
		Filename:  imageID + "." + extensionFor(format),
		Format:    format,
		Width:     msg.Metadata.Width,
		Height:    msg.Metadata.Height,
	}, encoding, msg.ImageData
}

func decodeNested(payload []byte) (*domain.ImageSubmission, string, string) {
	var msg nestedMessage
	_ = json.Unmarshal(payload, &msg)

	ts := msg.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	format := strings.ToLower(msg.Image.Format)
	if format == "" {
		format = "jpg"
	}
	filename := msg.Image.Filename
	if filename == "" {
		filename = fmt.Sprintf("img_%d.%s", ts, extensionFor(format))
	}
	encoding := msg.Image.Encoding
	if encoding == "" {
		encoding = encodingBase64
	}

	return &domain.ImageSubmission{
		RequestID: defaultReqID(msg.ReqID),
		DeviceID:  msg.DeviceID,
		Timestamp: ts,
		Filename:  filename,
		Format:    format,
	}, encoding, msg.Image.Data
}

func defaultReqID(reqID string) string {
	if reqID != "" {
		return reqID
	}
	return uuid.New().String()
}

func extensionFor(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "jpg"
	case "png":
		return "png"
	default:
		return format
	}
}

// decodeBase64 strips any data-URI framing ("data:<mime>;base64,...") and
// stray separators before decoding: anything up to the last comma is
// transport framing, not payload.
func decodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.LastIndex(s, ","); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "data:")
			if i := strings.LastIndex(s, ";"); i >= 0 {
				s = s[i+1:]
			}
		}
	} else if i := strings.LastIndex(s, ","); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Devices occasionally send unpadded base64.
		raw, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBase64, err)
		}
	}
	return raw, nil
}

// RecoverIdentity pulls req_id and device_id out of a payload that failed
// to decode, so an error acknowledgement can still be addressed.
func RecoverIdentity(payload []byte) (reqID, deviceID string) {
	var probe struct {
		ReqID    string `json:"req_id"`
		DeviceID string `json:"device_id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "", ""
	}
	return probe.ReqID, probe.DeviceID
}
