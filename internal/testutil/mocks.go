package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

// MockProjectRepo is a mock of ProjectRepository.
type MockProjectRepo struct {
	mock.Mock
}

func (m *MockProjectRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

// MockImageRepo is a mock of ImageRepository.
type MockImageRepo struct {
	mock.Mock
}

func (m *MockImageRepo) Create(ctx context.Context, img *domain.Image) error {
	args := m.Called(ctx, img)
	return args.Error(0)
}

func (m *MockImageRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Image, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Image), args.Error(1)
}

// MockClassRepo is a mock of ClassRepository.
type MockClassRepo struct {
	mock.Mock
}

func (m *MockClassRepo) Create(ctx context.Context, class *domain.AnnotationClass) error {
	args := m.Called(ctx, class)
	return args.Error(0)
}

func (m *MockClassRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.AnnotationClass, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AnnotationClass), args.Error(1)
}

// MockAnnotationRepo is a mock of AnnotationRepository.
type MockAnnotationRepo struct {
	mock.Mock
}

func (m *MockAnnotationRepo) Create(ctx context.Context, ann *domain.Annotation) error {
	args := m.Called(ctx, ann)
	return args.Error(0)
}

func (m *MockAnnotationRepo) ListByImage(ctx context.Context, imageID uuid.UUID) ([]*domain.Annotation, error) {
	args := m.Called(ctx, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Annotation), args.Error(1)
}

func (m *MockAnnotationRepo) DeleteByImage(ctx context.Context, imageID uuid.UUID) error {
	args := m.Called(ctx, imageID)
	return args.Error(0)
}

// MockImageStore is a mock of ImageStore.
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(projectID uuid.UUID, desiredName string, data []byte) (string, string, error) {
	args := m.Called(projectID, desiredName, data)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockImageStore) Remove(projectID uuid.UUID, relPath string) error {
	args := m.Called(projectID, relPath)
	return args.Error(0)
}

func (m *MockImageStore) Exists(projectID uuid.UUID, relPath string) bool {
	args := m.Called(projectID, relPath)
	return args.Bool(0)
}

func (m *MockImageStore) Abs(projectID uuid.UUID, relPath string) string {
	args := m.Called(projectID, relPath)
	return args.String(0)
}

// MockAckPublisher is a mock of AckPublisher.
type MockAckPublisher struct {
	mock.Mock
}

func (m *MockAckPublisher) PublishAck(deviceID string, ack domain.Ack) error {
	args := m.Called(deviceID, ack)
	return args.Error(0)
}

// MockNotifier is a mock of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(event domain.UpdateEvent) {
	m.Called(event)
}
