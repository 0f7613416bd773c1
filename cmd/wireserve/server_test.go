package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	gomock "github.com/golang/mock/gomock"
)

func newTestServer(t *testing.T) (*server, *MockSimulator, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	mockSim := NewMockSimulator(ctrl)
	return newServer(mockSim, slog.Default()), mockSim, ctrl
}

func TestHandleHealth(t *testing.T) {
	s, mockSim, ctrl := newTestServer(t)
	defer ctrl.Finish()

	mockSim.EXPECT().InstanceID().Return("abc123")
	mockSim.EXPECT().TopModule().Return("half_adder")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["instance"] != "abc123" || body["top"] != "half_adder" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleWires(t *testing.T) {
	s, mockSim, ctrl := newTestServer(t)
	defer ctrl.Finish()

	mockSim.EXPECT().GetAllWires().Return(map[string]uint32{"sum": 1, "carry": 0})

	req := httptest.NewRequest(http.MethodGet, "/wires", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]uint32
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["sum"] != 1 || body["carry"] != 0 {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleInput(t *testing.T) {
	s, mockSim, ctrl := newTestServer(t)
	defer ctrl.Finish()

	mockSim.EXPECT().SetInput("a", uint32(1))

	payload, _ := json.Marshal(inputRequest{Name: "a", Value: 1})
	req := httptest.NewRequest(http.MethodPost, "/input", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestHandleStepDefaultsToOneCycle(t *testing.T) {
	s, mockSim, ctrl := newTestServer(t)
	defer ctrl.Finish()

	mockSim.EXPECT().Run(1)
	mockSim.EXPECT().GetAllWires().Return(map[string]uint32{})

	req := httptest.NewRequest(http.MethodPost, "/step", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleReset(t *testing.T) {
	s, mockSim, ctrl := newTestServer(t)
	defer ctrl.Finish()

	mockSim.EXPECT().Reset()

	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
