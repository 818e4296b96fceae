package domain

import "errors"

var (
	// Decode errors. A message failing here is acknowledged with an error
	// when the device is addressable, otherwise dropped.
	ErrInvalidTopic        = errors.New("invalid topic format")
	ErrUnsupportedEncoding = errors.New("unsupported payload encoding")
	ErrInvalidBase64       = errors.New("failed to decode base64 data")
	ErrInvalidPayload      = errors.New("invalid message payload")

	// Validation errors. Acknowledged with an error, no partial writes.
	ErrProjectNotFound = errors.New("project not found")
	ErrPayloadTooLarge = errors.New("image too large")
	ErrInvalidImage    = errors.New("failed to decode image data")

	// Codec errors.
	ErrCoordOutOfRange = errors.New("normalized coordinate out of [0,1] range")
	ErrUnsupportedType = errors.New("unsupported annotation type")

	// Import/export errors. The whole call fails, no partial result.
	ErrUnsupportedFormat  = errors.New("unsupported dataset format")
	ErrAnnotationsMissing = errors.New("annotations file not found (expected annotations.json or instances_default.json)")
	ErrNoValidImages      = errors.New("no valid images to export")

	ErrImageNotFound = errors.New("image not found")
	ErrClassNotFound = errors.New("class not found")
)
