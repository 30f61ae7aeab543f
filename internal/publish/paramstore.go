package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CarParamsCache is the persisted subset of vehicle-identification
// parameters the supervisor republishes every carParamsIntervalTicks, per
// spec.md §4.7.
type CarParamsCache struct {
	CarFingerprint string    `json:"car_fingerprint"`
	SteerRatio     float64   `json:"steer_ratio"`
	SafetyModel    string    `json:"safety_model"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ControlsReadyRecord persists whether the supervisor ever reached the
// initialized gate, surviving process restarts. cmd/controlsd only logs the
// stored value at startup; it does not affect the initialization gate.
type ControlsReadyRecord struct {
	Ready     bool      `json:"ready"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParamStore persists CarParamsCache and the controls-ready flag to disk
// with atomic temp-file-then-rename writes, grounded on the teacher's
// portfolio.Manager (internal/portfolio/state.go).
type ParamStore struct {
	mu          sync.Mutex
	paramsPath  string
	readyPath   string
}

// NewParamStore builds a ParamStore rooted at the given paths. The
// directories are created lazily on first Save.
func NewParamStore(paramsPath, readyPath string) *ParamStore {
	return &ParamStore{paramsPath: paramsPath, readyPath: readyPath}
}

// LoadParams reads the persisted CarParamsCache, returning the zero value
// and no error if the file doesn't exist yet.
func (s *ParamStore) LoadParams() (CarParamsCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out CarParamsCache
	data, err := os.ReadFile(s.paramsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("read car params cache: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("unmarshal car params cache: %w", err)
	}
	return out, nil
}

// SaveParams atomically persists params.
func (s *ParamStore) SaveParams(params CarParamsCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	params.UpdatedAt = time.Now().UTC()
	return atomicWriteJSON(s.paramsPath, params)
}

// LoadControlsReady reads the persisted controls-ready flag.
func (s *ParamStore) LoadControlsReady() (ControlsReadyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out ControlsReadyRecord
	data, err := os.ReadFile(s.readyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("read controls ready record: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("unmarshal controls ready record: %w", err)
	}
	return out, nil
}

// SaveControlsReady atomically persists the controls-ready flag.
func (s *ParamStore) SaveControlsReady(ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicWriteJSON(s.readyPath, ControlsReadyRecord{Ready: ready, UpdatedAt: time.Now().UTC()})
}

func atomicWriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create param dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
