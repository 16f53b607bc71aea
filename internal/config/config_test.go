package config

import (
	"testing"
)

func TestParsePeers(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  []Peer
		expectErr bool
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []Peer{},
		},
		{
			name:  "explicit ids",
			input: "vm1=127.0.0.1:5001,vm2=127.0.0.1:5002",
			expected: []Peer{
				{ID: "vm1", Addr: "127.0.0.1:5001"},
				{ID: "vm2", Addr: "127.0.0.1:5002"},
			},
		},
		{
			name:  "bare addresses default id to port",
			input: "127.0.0.1:5001,127.0.0.1:5002",
			expected: []Peer{
				{ID: "5001", Addr: "127.0.0.1:5001"},
				{ID: "5002", Addr: "127.0.0.1:5002"},
			},
		},
		{
			name:  "whitespace tolerated",
			input: " vm1=127.0.0.1:5001 , vm2=127.0.0.1:5002 ",
			expected: []Peer{
				{ID: "vm1", Addr: "127.0.0.1:5001"},
				{ID: "vm2", Addr: "127.0.0.1:5002"},
			},
		},
		{
			name:      "empty id",
			input:     "=127.0.0.1:5001",
			expectErr: true,
		},
		{
			name:      "empty address",
			input:     "vm1=",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peers, err := ParsePeers(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(peers) != len(tt.expected) {
				t.Fatalf("Expected %d peers, got %d", len(tt.expected), len(peers))
			}
			for i, p := range peers {
				if p != tt.expected[i] {
					t.Errorf("Peer %d: expected %+v, got %+v", i, tt.expected[i], p)
				}
			}
		})
	}
}

func TestPeer_Port(t *testing.T) {
	if got := (Peer{Addr: "127.0.0.1:5001"}).Port(); got != "5001" {
		t.Errorf("Expected port 5001, got %s", got)
	}
	// Unsplittable addresses fall back to the whole address.
	if got := (Peer{Addr: "bogus"}).Port(); got != "bogus" {
		t.Errorf("Expected fallback to address, got %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		NodeID:          0,
		TickRate:        3,
		ListenAddr:      "127.0.0.1:5001",
		CommProbability: 0.3,
		RunID:           "1",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }},
		{"negative tick rate", func(c *Config) { c.TickRate = -1 }},
		{"probability above one", func(c *Config) { c.CommProbability = 1.5 }},
		{"negative probability", func(c *Config) { c.CommProbability = -0.1 }},
		{"empty listen address", func(c *Config) { c.ListenAddr = "" }},
		{"empty run id", func(c *Config) { c.RunID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}
