package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	"github.com/camthink-ai/AIToolStack/internal/testutil"
)

func TestSnapshotLoad(t *testing.T) {
	projectID := uuid.New()
	classID := uuid.New()
	imageID := uuid.New()

	projects := new(testutil.MockProjectRepo)
	images := new(testutil.MockImageRepo)
	classes := new(testutil.MockClassRepo)
	annotations := new(testutil.MockAnnotationRepo)
	svc := NewSnapshotService(projects, images, classes, annotations)

	projects.On("GetByID", mock.Anything, projectID).
		Return(&domain.Project{ID: projectID, Name: "doors"}, nil)
	classes.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.AnnotationClass{
			{ID: classID, ProjectID: projectID, Name: "door"},
		}, nil)
	images.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.Image{
			{ID: imageID, ProjectID: projectID, Filename: "a.jpg", Path: "raw/a.jpg", Width: 640, Height: 480},
		}, nil)
	annotations.On("ListByImage", mock.Anything, imageID).
		Return([]*domain.Annotation{
			{ID: uuid.New(), ImageID: imageID, ClassID: classID, Type: domain.AnnotationBBox,
				Data: domain.AnnotationData{BBox: domain.BBox{XMin: 1, YMin: 2, XMax: 3, YMax: 4}}},
		}, nil)

	snap, err := svc.Load(context.Background(), projectID)
	require.NoError(t, err)

	assert.Equal(t, projectID, snap.ProjectID)
	assert.Equal(t, "doors", snap.Name)
	require.Len(t, snap.Classes, 1)
	require.Len(t, snap.Images, 1)
	require.Len(t, snap.Images[0].Annotations, 1)
	// Class ids are resolved to names for the exporter.
	assert.Equal(t, "door", snap.Images[0].Annotations[0].ClassName)
}

func TestSnapshotLoad_UnknownProject(t *testing.T) {
	projectID := uuid.New()
	projects := new(testutil.MockProjectRepo)
	svc := NewSnapshotService(projects, nil, nil, nil)

	projects.On("GetByID", mock.Anything, projectID).
		Return(nil, domain.ErrProjectNotFound)

	_, err := svc.Load(context.Background(), projectID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}
