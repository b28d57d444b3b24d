package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

type fileState struct {
	Users map[string]map[string]string `json:"users"`
}

type JSONStore struct {
	filePath string
	mu       sync.RWMutex
	state    fileState
}

func NewJSONStore(filePath string) (*JSONStore, error) {
	s := &JSONStore{
		filePath: filePath,
		state: fileState{
			Users: make(map[string]map[string]string),
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) ReadKey(_ context.Context, userID string, name string) ([]byte, bool, error) {
	if userID == "" {
		return nil, false, ErrEmptyUserID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.state.Users[userID][name]
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

func (s *JSONStore) WriteKey(_ context.Context, userID string, name string, value []byte) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, userExists := s.state.Users[userID]
	if !userExists {
		keys = make(map[string]string)
		s.state.Users[userID] = keys
	}
	previous, keyExists := keys[name]
	keys[name] = string(value)
	if err := s.persistLocked(); err != nil {
		// Readers only ever see persisted values.
		switch {
		case !userExists:
			delete(s.state.Users, userID)
		case keyExists:
			keys[name] = previous
		default:
			delete(keys, name)
		}
		return err
	}
	return nil
}

func (s *JSONStore) ListKey(_ context.Context, name string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Record, 0)
	for userID, keys := range s.state.Users {
		if value, ok := keys[name]; ok {
			result = append(result, Record{UserID: userID, Value: []byte(value)})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Users == nil {
		state.Users = make(map[string]map[string]string)
	}
	s.state = state
	return nil
}

func (s *JSONStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}
