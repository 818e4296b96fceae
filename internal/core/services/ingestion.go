package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/camthink-ai/AIToolStack/internal/core/codec"
	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	ports "github.com/camthink-ai/AIToolStack/internal/core/ports/output"
)

// IngestStats is a point-in-time view of the gateway's message counters.
type IngestStats struct {
	MessageCount  int64      `json:"message_count"`
	SavedCount    int64      `json:"saved_count"`
	FailedCount   int64      `json:"failed_count"`
	LastMessageAt *time.Time `json:"last_message_time,omitempty"`
}

// IngestionService processes device upload messages: decode, validate,
// store, record, acknowledge. It implements the transport's message
// handler; the broker client feeds it messages sequentially, so no two
// inbound messages are processed concurrently.
type IngestionService struct {
	projects ports.ProjectRepository
	images   ports.ImageRepository
	store    ports.ImageStore
	acks     ports.AckPublisher
	notifier ports.Notifier
	maxBytes int64

	mu    sync.Mutex
	stats IngestStats
}

func NewIngestionService(
	projects ports.ProjectRepository,
	images ports.ImageRepository,
	store ports.ImageStore,
	acks ports.AckPublisher,
	notifier ports.Notifier,
	maxImageSizeMB int,
) *IngestionService {
	return &IngestionService{
		projects: projects,
		images:   images,
		store:    store,
		acks:     acks,
		notifier: notifier,
		maxBytes: int64(maxImageSizeMB) * 1024 * 1024,
	}
}

// SetAckPublisher wires the acknowledgement publisher after construction.
// The transport client and the gateway reference each other, so the client
// is built against the gateway and injected here before it connects.
func (s *IngestionService) SetAckPublisher(acks ports.AckPublisher) {
	s.acks = acks
}

// HandleMessage processes one inbound upload. Failures never escalate to
// the connection: every outcome ends in an acknowledgement (when the
// device is addressable) or a logged drop.
func (s *IngestionService) HandleMessage(topic string, payload []byte) {
	s.mu.Lock()
	s.stats.MessageCount++
	now := time.Now()
	s.stats.LastMessageAt = &now
	s.mu.Unlock()

	sub, err := codec.Decode(payload, topic)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTopic) {
			// No project or device is known; nowhere to reply to.
			log.WithField("topic", topic).Warn("dropping message with invalid topic")
			s.countFailure()
			return
		}
		reqID, deviceID := codec.RecoverIdentity(payload)
		log.WithFields(log.Fields{"topic": topic, "req_id": reqID}).Errorf("decode message: %v", err)
		s.sendError(reqID, deviceID, err.Error())
		s.countFailure()
		return
	}

	if err := s.process(context.Background(), sub); err != nil {
		log.WithFields(log.Fields{
			"project_id": sub.ProjectID,
			"device_id":  sub.DeviceID,
			"req_id":     sub.RequestID,
		}).Errorf("process submission: %v", err)
		s.sendError(sub.RequestID, sub.DeviceID, err.Error())
		s.countFailure()
		return
	}

	s.mu.Lock()
	s.stats.SavedCount++
	s.mu.Unlock()
}

func (s *IngestionService) process(ctx context.Context, sub *domain.ImageSubmission) error {
	projectID, err := uuid.Parse(sub.ProjectID)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, sub.ProjectID)
	}
	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, sub.ProjectID)
	}

	if int64(len(sub.Raw)) > s.maxBytes {
		sizeMB := float64(len(sub.Raw)) / (1024 * 1024)
		return fmt.Errorf("%w: %.2fMB (max: %dMB)", domain.ErrPayloadTooLarge, sizeMB, s.maxBytes/(1024*1024))
	}

	width, height := sub.Width, sub.Height
	if width <= 0 || height <= 0 {
		width, height, err = codec.ImageDimensions(sub.Raw)
		if err != nil {
			return err
		}
	}

	// File first, record second: a failed write never leaves a dangling
	// database row, and a failed insert removes the file again.
	filename, relPath, err := s.store.Save(projectID, sub.Filename, sub.Raw)
	if err != nil {
		return fmt.Errorf("save image file: %w", err)
	}

	img := &domain.Image{
		ID:        uuid.New(),
		ProjectID: projectID,
		Filename:  filename,
		Path:      relPath,
		Width:     width,
		Height:    height,
		Status:    domain.ImageStatusUnlabeled,
		Source:    "MQTT:" + sub.DeviceID,
		CreatedAt: time.Now(),
	}
	if err := s.images.Create(ctx, img); err != nil {
		if rmErr := s.store.Remove(projectID, relPath); rmErr != nil {
			log.Warnf("roll back image file %s: %v", relPath, rmErr)
		}
		return fmt.Errorf("record image: %w", err)
	}

	log.WithFields(log.Fields{
		"project_id": sub.ProjectID,
		"image_id":   img.ID,
		"filename":   filename,
		"width":      width,
		"height":     height,
	}).Info("image saved")

	s.sendSuccess(sub.RequestID, sub.DeviceID, sub.ProjectID)

	// The record is committed; viewers reacting to this event can query it
	// immediately.
	s.notifier.Notify(domain.UpdateEvent{
		Type:      "new_image",
		ProjectID: sub.ProjectID,
		ImageID:   img.ID.String(),
		Filename:  filename,
		Path:      relPath,
		Width:     width,
		Height:    height,
	})

	return nil
}

func (s *IngestionService) sendSuccess(reqID, deviceID, projectID string) {
	if s.acks == nil || !addressable(deviceID) {
		return
	}
	ack := domain.Ack{
		ReqID:      reqID,
		Status:     domain.AckStatusSuccess,
		Code:       domain.AckCodeOK,
		Message:    fmt.Sprintf("Image saved to project %s", projectID),
		ServerTime: time.Now().Unix(),
	}
	if err := s.acks.PublishAck(deviceID, ack); err != nil {
		log.Errorf("publish success ack to %s: %v", deviceID, err)
	}
}

func (s *IngestionService) sendError(reqID, deviceID, message string) {
	if s.acks == nil || !addressable(deviceID) {
		return
	}
	ack := domain.Ack{
		ReqID:      reqID,
		Status:     domain.AckStatusError,
		Code:       domain.AckCodeError,
		Message:    message,
		ServerTime: time.Now().Unix(),
	}
	if err := s.acks.PublishAck(deviceID, ack); err != nil {
		log.Errorf("publish error ack to %s: %v", deviceID, err)
	}
}

func addressable(deviceID string) bool {
	return deviceID != "" && deviceID != "unknown"
}

func (s *IngestionService) countFailure() {
	s.mu.Lock()
	s.stats.FailedCount++
	s.mu.Unlock()
}

func (s *IngestionService) Stats() IngestStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
