package mocks

import (
	"context"

	"github.com/benmeehan/location-sender/internal/models"
	"github.com/benmeehan/location-sender/pkg/transport"
	"github.com/stretchr/testify/mock"
)

// MockTransport is a mock implementation of the transport.Transport interface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Deliver(ctx context.Context, payload []byte) (*transport.Response, error) {
	args := m.Called(ctx, payload)
	resp, _ := args.Get(0).(*transport.Response)
	return resp, args.Error(1)
}

func (m *MockTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTelemetrySender is a mock implementation of the services.TelemetrySender interface
type MockTelemetrySender struct {
	mock.Mock
}

func (m *MockTelemetrySender) Send(ctx context.Context, pos models.Position, opts models.OptionalFields) (*transport.Response, error) {
	args := m.Called(ctx, pos, opts)
	resp, _ := args.Get(0).(*transport.Response)
	return resp, args.Error(1)
}
