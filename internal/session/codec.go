package session

import (
	"encoding/json"
	"fmt"
)

// encodeSession serializes the persisted record shape.
func encodeSession(s *StoredSession) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", s.ID, err)
	}
	return data, nil
}

// decodeSession parses a persisted record. A record that does not parse or
// lacks a well-formed id is reported as corrupt.
func decodeSession(data []byte) (*StoredSession, error) {
	var s StoredSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &s, nil
}
