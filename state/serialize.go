package state

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

func (id *NodeID) UnmarshalText(text []byte) error {
	data, err := hex.DecodeString(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid node id: %w", err)
	}
	if len(data) != len(id) {
		return fmt.Errorf("invalid node id: expected %d bytes, got %d", len(id), len(data))
	}
	*id = NodeID(data)
	return nil
}

// ParseNodeID decodes the hex form of a node id.
func ParseNodeID(s string) (NodeID, error) {
	var id NodeID
	err := id.UnmarshalText([]byte(s))
	return id, err
}

// Encode returns the base64 form of the secret. NodeSecret deliberately has no
// MarshalText, so it cannot end up inside an encoded record by accident.
func (s NodeSecret) Encode() string {
	return base64.StdEncoding.EncodeToString(s[:])
}

func (s *NodeSecret) UnmarshalText(text []byte) error {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid node secret: %w", err)
	}
	if len(data) != len(s) {
		return fmt.Errorf("invalid node secret: expected %d bytes, got %d", len(s), len(data))
	}
	*s = NodeSecret(data)
	return nil
}

// ParseNodeSecret decodes the base64 form of a secret.
func ParseNodeSecret(s string) (NodeSecret, error) {
	var secret NodeSecret
	err := secret.UnmarshalText([]byte(s))
	return secret, err
}
