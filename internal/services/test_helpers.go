package services

import (
	"github.com/stretchr/testify/mock"
)

// MockEventBroadcaster is a mock for the EventBroadcaster interface
type MockEventBroadcaster struct {
	mock.Mock
}

func (m *MockEventBroadcaster) BroadcastRefresh(source string, components []string) {
	m.Called(source, components)
}

func (m *MockEventBroadcaster) BroadcastError(code, message, stage string, recoverable bool) {
	m.Called(code, message, stage, recoverable)
}
