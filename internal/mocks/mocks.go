// Package mocks provides testify mocks of the engine's driver interfaces and
// the configuration.
package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/demoqa-e2e/internal/config"
	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Wait() config.WaitConfig {
	args := m.Called()
	return args.Get(0).(config.WaitConfig)
}

func (m *MockConfig) Target() config.TargetConfig {
	args := m.Called()
	return args.Get(0).(config.TargetConfig)
}

func (m *MockConfig) Run() config.RunConfig {
	args := m.Called()
	return args.Get(0).(config.RunConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

func (m *MockConfig) SetRunConfig(rc config.RunConfig) {
	m.Called(rc)
}

// -- Driver Mock --

// MockDriver mocks engine.Driver.
type MockDriver struct {
	mock.Mock
}

var _ engine.Driver = (*MockDriver)(nil)

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) FindElement(ctx context.Context, loc engine.Locator) (engine.Element, error) {
	args := m.Called(ctx, loc)
	el, _ := args.Get(0).(engine.Element)
	return el, args.Error(1)
}

func (m *MockDriver) FindElements(ctx context.Context, loc engine.Locator) ([]engine.Element, error) {
	args := m.Called(ctx, loc)
	els, _ := args.Get(0).([]engine.Element)
	return els, args.Error(1)
}

func (m *MockDriver) ExecuteScript(ctx context.Context, script string, scriptArgs ...any) (json.RawMessage, error) {
	args := m.Called(ctx, script, scriptArgs)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *MockDriver) CurrentWindowHandle(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) WindowHandles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	handles, _ := args.Get(0).([]string)
	return handles, args.Error(1)
}

func (m *MockDriver) SwitchToWindow(ctx context.Context, handle string) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockDriver) CloseCurrentWindow(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) DragAndDrop(ctx context.Context, src, dst engine.Element) error {
	return m.Called(ctx, src, dst).Error(0)
}

// -- Element Mock --

// MockElement mocks engine.Element.
type MockElement struct {
	mock.Mock
}

var _ engine.Element = (*MockElement)(nil)

func (m *MockElement) Click(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) SendKeys(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) Attribute(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockElement) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) IsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) ReceivesPointer(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// NewInteractableElement returns a MockElement that is displayed, enabled and
// receives the pointer on every call.
func NewInteractableElement() *MockElement {
	el := new(MockElement)
	el.On("IsDisplayed", mock.Anything).Return(true, nil).Maybe()
	el.On("IsEnabled", mock.Anything).Return(true, nil).Maybe()
	el.On("ReceivesPointer", mock.Anything).Return(true, nil).Maybe()
	return el
}
