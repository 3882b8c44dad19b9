package config

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSecretStringUnmarshal(t *testing.T) {
	tests := []struct {
		name       string
		yaml       string
		wantValue  string
		wantSecret bool
	}{
		{"plain string", "key: plainvalue", "plainvalue", false},
		{"secret string", "key: !secret mysecret", "mysecret", true},
		{"empty secret", "key: !secret \"\"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result struct {
				Key SecretString `yaml:"key"`
			}
			if err := yaml.Unmarshal([]byte(tt.yaml), &result); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if result.Key.Value() != tt.wantValue {
				t.Errorf("value = %q, want %q", result.Key.Value(), tt.wantValue)
			}
			if result.Key.IsSecret() != tt.wantSecret {
				t.Errorf("isSecret = %v, want %v", result.Key.IsSecret(), tt.wantSecret)
			}
		})
	}
}

func TestSecretStringStringAndMarshal(t *testing.T) {
	secret := NewSecretString("mysecret")
	if secret.String() != "[hidden]" {
		t.Errorf("secret printed as %q", secret.String())
	}
	if NewSecretString("").String() != "" {
		t.Error("empty secret should print as empty")
	}

	data, err := yaml.Marshal(struct {
		Key SecretString `yaml:"key"`
	}{Key: secret})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), "!secret mysecret") {
		t.Errorf("tag lost: %s", data)
	}
}

func TestAPIKeys(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	other, _ := GenerateAPIKey()
	if key == other || len(key) != 43 {
		t.Errorf("unexpected keys %q and %q", key, other)
	}

	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("not a bcrypt hash: %q", hash)
	}

	auth := AuthConfig{Enabled: true, APIKeys: []SecretString{NewSecretString(hash)}}
	if !auth.Accepts(key) {
		t.Error("key was not accepted by its own hash")
	}
	if auth.Accepts(other) {
		t.Error("a different key was accepted")
	}
	if auth.Accepts("") {
		t.Error("an empty key was accepted")
	}

	if _, err := HashAPIKey(""); err == nil {
		t.Error("expected error hashing an empty key")
	}
}
