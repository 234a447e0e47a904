package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// GetJSON decodes the value under key into v.
func GetJSON(kv KV, key string, v any) error {
	raw, err := kv.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Put(key, raw)
}

func (s *JSONStorage) readKV() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.kvPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.kvPath, err)
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.kvPath, err)
	}
	return m, nil
}

func (s *JSONStorage) writeKV(m map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode kv: %w", err)
	}
	return writeFileAtomic(s.kvPath, data)
}

// Get returns the value under key or ErrNotFound.
func (s *JSONStorage) Get(key string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readKV()
	if err != nil {
		return nil, err
	}
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}

// Put stores value under key. The value must be valid JSON.
func (s *JSONStorage) Put(key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("put %s: invalid json value", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readKV()
	if err != nil {
		return err
	}
	m[key] = value
	return s.writeKV(m)
}

// Delete removes key. Missing keys are not an error.
func (s *JSONStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readKV()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.writeKV(m)
}

// Keys returns the sorted keys starting with prefix.
func (s *JSONStorage) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readKV()
	if err != nil {
		return nil, err
	}
	keys := []string{}
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
