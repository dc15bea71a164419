// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"errors"
	"testing"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		selector string
		name     string
		port     uint16
	}{
		{"mtcp", "mtcp", 0},
		{"mtcp:16162", "mtcp", 16162},
		{"http:abc", "http", 0},
		{"http:70000", "http", 0},
		{"dummy:", "dummy", 0},
		{"mtcp:16161:x", "mtcp", 16161},
		{"mtcp:x:16161", "mtcp", 0},
		{"", "", 0},
	}

	for _, test := range tests {
		name, port := ParseSelector(test.selector)
		if name != test.name || port != test.port {
			t.Fatalf("ParseSelector(%q) = (%q, %d), expected (%q, %d)",
				test.selector, name, port, test.name, test.port)
		}
	}
}

func TestNewAgent(t *testing.T) {
	tests := []struct {
		selector string
		port     uint16
	}{
		{"mock", 4556},
		{"mock:9000", 9000},
		{"mock:nope", 4556},
	}

	for _, test := range tests {
		agent, err := NewAgent(test.selector)
		if err != nil {
			t.Fatalf("NewAgent(%q) errored: %v", test.selector, err)
		}
		if name := agent.Name(); name != "mock" {
			t.Fatalf("NewAgent(%q) has name %q", test.selector, name)
		}
		if port := agent.Port(); port != test.port {
			t.Fatalf("NewAgent(%q) has port %d, expected %d", test.selector, port, test.port)
		}
	}
}

func TestNewAgentUnknown(t *testing.T) {
	for _, selector := range []string{"bogus", "bogus:1234", ""} {
		if _, err := NewAgent(selector); !errors.Is(err, ErrUnknownAgent) {
			t.Fatalf("NewAgent(%q) returned %v, expected ErrUnknownAgent", selector, err)
		}
	}
}

func TestMustNewAgentPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("MustNewAgent did not panic for an unknown agent")
		}
	}()

	MustNewAgent("bogus")
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Register did not panic for a duplicate name")
		}
	}()

	Register("mock", func(uint16) ConvergenceLayerAgent { return &mockAgent{name: "mock"} })
}

func TestRegisterInvalidNamePanics(t *testing.T) {
	for _, name := range []string{"", "a:b"} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Fatalf("Register did not panic for name %q", name)
				}
			}()

			Register(name, func(uint16) ConvergenceLayerAgent { return &mockAgent{name: name} })
		}()
	}
}

func TestAgentsIsKnown(t *testing.T) {
	var found bool
	for _, name := range Agents() {
		if name == "mock" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Agents() = %v misses mock", Agents())
	}

	if !IsKnown("mock") {
		t.Fatal("mock is not known")
	}
	if IsKnown("bogus") {
		t.Fatal("bogus is known")
	}
}
