// Code generated in the style of mockgen for the simulator interface.
// Hand-maintained here since this command has no go:generate pipeline.

package main

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"
)

// MockSimulator is a mock of the simulator interface.
type MockSimulator struct {
	ctrl     *gomock.Controller
	recorder *MockSimulatorMockRecorder
}

// MockSimulatorMockRecorder is the mock recorder for MockSimulator.
type MockSimulatorMockRecorder struct {
	mock *MockSimulator
}

// NewMockSimulator creates a new mock instance.
func NewMockSimulator(ctrl *gomock.Controller) *MockSimulator {
	mock := &MockSimulator{ctrl: ctrl}
	mock.recorder = &MockSimulatorMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSimulator) EXPECT() *MockSimulatorMockRecorder {
	return m.recorder
}

func (m *MockSimulator) InstanceID() string {
	ret := m.ctrl.Call(m, "InstanceID")
	return ret[0].(string)
}

func (mr *MockSimulatorMockRecorder) InstanceID() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "InstanceID", reflect.TypeOf((*MockSimulator)(nil).InstanceID))
}

func (m *MockSimulator) TopModule() string {
	ret := m.ctrl.Call(m, "TopModule")
	return ret[0].(string)
}

func (mr *MockSimulatorMockRecorder) TopModule() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "TopModule", reflect.TypeOf((*MockSimulator)(nil).TopModule))
}

func (m *MockSimulator) SetInput(name string, value uint32) {
	m.ctrl.Call(m, "SetInput", name, value)
}

func (mr *MockSimulatorMockRecorder) SetInput(name, value interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetInput", reflect.TypeOf((*MockSimulator)(nil).SetInput), name, value)
}

func (m *MockSimulator) Step() {
	m.ctrl.Call(m, "Step")
}

func (mr *MockSimulatorMockRecorder) Step() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Step", reflect.TypeOf((*MockSimulator)(nil).Step))
}

func (m *MockSimulator) Run(n int) {
	m.ctrl.Call(m, "Run", n)
}

func (mr *MockSimulatorMockRecorder) Run(n interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockSimulator)(nil).Run), n)
}

func (m *MockSimulator) Reset() {
	m.ctrl.Call(m, "Reset")
}

func (mr *MockSimulatorMockRecorder) Reset() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Reset", reflect.TypeOf((*MockSimulator)(nil).Reset))
}

func (m *MockSimulator) GetOutput(name string) uint32 {
	ret := m.ctrl.Call(m, "GetOutput", name)
	return ret[0].(uint32)
}

func (mr *MockSimulatorMockRecorder) GetOutput(name interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetOutput", reflect.TypeOf((*MockSimulator)(nil).GetOutput), name)
}

func (m *MockSimulator) GetWire(probe string) uint32 {
	ret := m.ctrl.Call(m, "GetWire", probe)
	return ret[0].(uint32)
}

func (mr *MockSimulatorMockRecorder) GetWire(probe interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetWire", reflect.TypeOf((*MockSimulator)(nil).GetWire), probe)
}

func (m *MockSimulator) GetAllWires() map[string]uint32 {
	ret := m.ctrl.Call(m, "GetAllWires")
	return ret[0].(map[string]uint32)
}

func (mr *MockSimulatorMockRecorder) GetAllWires() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAllWires", reflect.TypeOf((*MockSimulator)(nil).GetAllWires))
}
