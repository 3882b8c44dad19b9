package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// SecretString is a config value that must not be printed. Values tagged
// !secret in YAML, and API key hashes, are secrets.
type SecretString struct {
	value    string
	isSecret bool
}

// NewSecretString creates a SecretString marked as secret.
func NewSecretString(value string) SecretString {
	return SecretString{value: value, isSecret: true}
}

func (s SecretString) Value() string  { return s.value }
func (s SecretString) IsSecret() bool { return s.isSecret }

// String returns "[hidden]" for non-empty secrets.
func (s SecretString) String() string {
	if s.isSecret && s.value != "" {
		return "[hidden]"
	}
	return s.value
}

// UnmarshalYAML implements yaml.Unmarshaler to handle the !secret tag.
func (s *SecretString) UnmarshalYAML(node *yaml.Node) error {
	var value string
	if err := node.Decode(&value); err != nil {
		return err
	}
	s.value = value
	s.isSecret = node.Tag == "!secret"
	return nil
}

// MarshalYAML implements yaml.Marshaler, keeping the !secret tag.
func (s SecretString) MarshalYAML() (any, error) {
	if !s.isSecret {
		return s.value, nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!secret", Value: s.value}, nil
}

// GenerateAPIKey returns a random 256-bit key, base64url encoded.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey returns the bcrypt hash to put under auth.api_keys.
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty API key")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing API key: %w", err)
	}
	return string(hash), nil
}

// Accepts reports whether key matches one of the configured hashes.
func (a AuthConfig) Accepts(key string) bool {
	if key == "" {
		return false
	}
	for _, hash := range a.APIKeys {
		if bcrypt.CompareHashAndPassword([]byte(hash.Value()), []byte(key)) == nil {
			return true
		}
	}
	return false
}
