package scanner

import (
	"github.com/stretchr/testify/mock"
)

// MockRadio is a testify mock of the Radio interface for use in tests.
type MockRadio struct {
	mock.Mock
}

var _ Radio = (*MockRadio)(nil)

func NewMockRadio() *MockRadio {
	return &MockRadio{}
}

func (m *MockRadio) Bringup(ev Events) error {
	args := m.Called(ev)
	return args.Error(0)
}

func (m *MockRadio) Scan(params ScanParams) error {
	args := m.Called(params)
	return args.Error(0)
}

func (m *MockRadio) CancelScan() error {
	args := m.Called()
	return args.Error(0)
}
