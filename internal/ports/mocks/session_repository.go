package mocks

import (
	"context"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
	"github.com/stretchr/testify/mock"
)

type SessionRepository struct {
	mock.Mock
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

func (m *SessionRepository) GetByProjectDir(ctx context.Context, projectDir string) (domain.SessionSnapshot, error) {
	args := m.Called(ctx, projectDir)
	return args.Get(0).(domain.SessionSnapshot), args.Error(1)
}

func (m *SessionRepository) List(ctx context.Context) ([]domain.SessionSnapshot, error) {
	args := m.Called(ctx)
	snapshots, _ := args.Get(0).([]domain.SessionSnapshot)
	return snapshots, args.Error(1)
}

func (m *SessionRepository) Save(ctx context.Context, snapshot domain.SessionSnapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

func (m *SessionRepository) Delete(ctx context.Context, projectDir string) error {
	return m.Called(ctx, projectDir).Error(0)
}
