package codec

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

const uploadTopic = "annotator/upload/project-123"

func TestParseTopic(t *testing.T) {
	projectID, fallback, err := ParseTopic("annotator/upload/project-123")
	assert.NoError(t, err)
	assert.Equal(t, "project-123", projectID)
	assert.Equal(t, "project-123", fallback)
}

func TestParseTopic_Invalid(t *testing.T) {
	_, _, err := ParseTopic("annotator/upload")
	assert.ErrorIs(t, err, domain.ErrInvalidTopic)
}

func TestDecode_FlatSchema(t *testing.T) {
	payload := []byte(`{
		"req_id": "r-1",
		"device_id": "cam-7",
		"encoding": "base64",
		"image_data": "QUJD",
		"metadata": {"image_id": "shot_42", "timestamp": 1700000000, "format": "png", "width": 640, "height": 480}
	}`)

	sub, err := Decode(payload, uploadTopic)
	require.NoError(t, err)
	assert.Equal(t, "r-1", sub.RequestID)
	assert.Equal(t, "cam-7", sub.DeviceID)
	assert.Equal(t, "project-123", sub.ProjectID)
	assert.Equal(t, "shot_42.png", sub.Filename)
	assert.Equal(t, []byte("ABC"), sub.Raw)
	assert.Equal(t, 640, sub.Width)
	assert.Equal(t, 480, sub.Height)
}

func TestDecode_NestedSchema(t *testing.T) {
	payload := []byte(`{
		"req_id": "r-2",
		"device_id": "cam-8",
		"timestamp": 1700000001,
		"image": {"filename": "door.jpg", "format": "jpg", "encoding": "base64", "data": "QUJD"}
	}`)

	sub, err := Decode(payload, uploadTopic)
	require.NoError(t, err)
	assert.Equal(t, "r-2", sub.RequestID)
	assert.Equal(t, "door.jpg", sub.Filename)
	assert.Equal(t, []byte("ABC"), sub.Raw)
	// Legacy payloads never declare dimensions.
	assert.Zero(t, sub.Width)
	assert.Zero(t, sub.Height)
}

func TestDecode_FlatWinsOverStrayImageKey(t *testing.T) {
	payload := []byte(`{
		"req_id": "r-3",
		"device_id": "cam-9",
		"image_data": "QUJD",
		"image": {"filename": "ignored.jpg", "data": "WFla"},
		"metadata": {"image_id": "kept", "format": "jpeg"}
	}`)

	sub, err := Decode(payload, uploadTopic)
	require.NoError(t, err)
	assert.Equal(t, "kept.jpg", sub.Filename)
	assert.Equal(t, []byte("ABC"), sub.Raw)
}

func TestDecode_DataURIStripping(t *testing.T) {
	plain := []byte(`{"image_data": "QUJD", "device_id": "d"}`)
	framed := []byte(`{"image_data": "data:image/jpeg;base64,QUJD", "device_id": "d"}`)

	subPlain, err := Decode(plain, uploadTopic)
	require.NoError(t, err)
	subFramed, err := Decode(framed, uploadTopic)
	require.NoError(t, err)

	assert.Equal(t, subPlain.Raw, subFramed.Raw)
	assert.Equal(t, []byte("ABC"), subFramed.Raw)
}

func TestDecode_UnsupportedEncoding(t *testing.T) {
	payload := []byte(`{"image_data": "QUJD", "encoding": "hex"}`)
	_, err := Decode(payload, uploadTopic)
	assert.ErrorIs(t, err, domain.ErrUnsupportedEncoding)
}

func TestDecode_InvalidBase64(t *testing.T) {
	payload := []byte(`{"image_data": "!!not base64!!"}`)
	_, err := Decode(payload, uploadTopic)
	assert.ErrorIs(t, err, domain.ErrInvalidBase64)
}

func TestDecode_InvalidTopic(t *testing.T) {
	_, err := Decode([]byte(`{"image_data": "QUJD"}`), "short/topic")
	assert.ErrorIs(t, err, domain.ErrInvalidTopic)
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`), uploadTopic)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestDecode_Defaults(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("payload"))
	payload := []byte(`{"image_data": "` + data + `"}`)

	sub, err := Decode(payload, "annotator/upload/p1")
	require.NoError(t, err)
	// Device id falls back to the topic's last segment.
	assert.Equal(t, "p1", sub.DeviceID)
	assert.NotEmpty(t, sub.RequestID)
	assert.Equal(t, "jpeg", sub.Format)
	assert.Contains(t, sub.Filename, "img_")
	assert.Contains(t, sub.Filename, ".jpg")
}

func TestDecode_UnpaddedBase64(t *testing.T) {
	payload := []byte(`{"image_data": "QUJDRA"}`)
	sub, err := Decode(payload, uploadTopic)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCD"), sub.Raw)
}

func TestRecoverIdentity(t *testing.T) {
	reqID, deviceID := RecoverIdentity([]byte(`{"req_id": "r-9", "device_id": "cam-1", "encoding": "hex"}`))
	assert.Equal(t, "r-9", reqID)
	assert.Equal(t, "cam-1", deviceID)

	reqID, deviceID = RecoverIdentity([]byte(`garbage`))
	assert.Empty(t, reqID)
	assert.Empty(t, deviceID)
}
