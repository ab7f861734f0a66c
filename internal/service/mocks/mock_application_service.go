package mocks

import (
	"context"
	"io"

	"finaid/internal/model"
	"finaid/internal/service"
	"finaid/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockApplicationService struct {
	mock.Mock
}

func (m *MockApplicationService) Submit(ctx context.Context, in service.SubmitInput) (*model.Application, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockApplicationService) List(ctx context.Context) ([]model.Application, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Application), args.Error(1)
}

func (m *MockApplicationService) Verify(ctx context.Context, id int64, action, comment string) (*model.Application, error) {
	args := m.Called(ctx, id, action, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockApplicationService) Download(ctx context.Context, storedName string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, storedName)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}
