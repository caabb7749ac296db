package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// step is one request/response cycle in a scenario file. acceptHeader and
// upstreamContentType are optional; sleepMs lets a scenario express
// TTL-expiry timing without an external clock.
type step struct {
	Method              string `json:"method"`
	Path                string `json:"path"`
	Query               string `json:"query,omitempty"`
	AcceptHeader        string `json:"acceptHeader,omitempty"`
	UpstreamStatus      int    `json:"upstreamStatus"`
	UpstreamContentType string `json:"upstreamContentType,omitempty"`
	UpstreamBody        string `json:"upstreamBody"`
	SleepMs             int    `json:"sleepMs,omitempty"`
}

// scenario is a named sequence of steps run against one Policy/store pair.
type scenario struct {
	Name  string `json:"name"`
	Steps []step `json:"steps"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gatewaysim: read scenario %s: %w", path, err)
	}
	var s scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("gatewaysim: parse scenario %s: %w", path, err)
	}
	return &s, nil
}
