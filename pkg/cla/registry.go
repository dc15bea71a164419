// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrUnknownAgent is returned, wrapped, for a selector naming no registered agent.
var ErrUnknownAgent = errors.New("unknown convergence layer agent")

// Constructor creates a new ConvergenceLayerAgent without performing any I/O. A zero port selects the agent's
// default port.
type Constructor func(port uint16) ConvergenceLayerAgent

// registry maps agent names to their Constructor.
type registry struct {
	sync.RWMutex
	ctors map[string]Constructor
}

var agents = &registry{ctors: make(map[string]Constructor)}

// Register a Constructor for a named agent. This function should be called from an agent package's init function.
// Registering an empty, a colon-containing or an already known name panics.
func Register(name string, ctor Constructor) {
	if name == "" || strings.Contains(name, ":") {
		panic(fmt.Sprintf("cla: invalid agent name %q", name))
	}
	if ctor == nil {
		panic(fmt.Sprintf("cla: nil Constructor for agent %q", name))
	}

	agents.Lock()
	defer agents.Unlock()

	if _, exists := agents.ctors[name]; exists {
		panic(fmt.Sprintf("cla: agent %q is already registered", name))
	}
	agents.ctors[name] = ctor
}

// Agents returns the sorted names of all registered agents.
func Agents() []string {
	agents.RLock()
	defer agents.RUnlock()

	names := make([]string, 0, len(agents.ctors))
	for name := range agents.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsKnown checks if an agent is registered by this name.
func IsKnown(name string) bool {
	agents.RLock()
	defer agents.RUnlock()

	_, ok := agents.ctors[name]
	return ok
}

// ParseSelector splits a selector of the form "name" or "name:port" at its colons. Only the first two fields are
// considered, further ones are ignored. A missing or unparsable port results in a zero port.
func ParseSelector(selector string) (name string, port uint16) {
	fields := strings.Split(selector, ":")
	name = fields[0]
	if len(fields) < 2 {
		return
	}

	if p, err := strconv.ParseUint(fields[1], 10, 16); err == nil {
		port = uint16(p)
	}
	return
}

// NewAgent creates a new ConvergenceLayerAgent for a selector, "name" or "name:port". The returned agent is not
// set up. For an unknown name, an error wrapping ErrUnknownAgent is returned.
func NewAgent(selector string) (ConvergenceLayerAgent, error) {
	name, port := ParseSelector(selector)

	agents.RLock()
	ctor, ok := agents.ctors[name]
	agents.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	return ctor(port), nil
}

// MustNewAgent is like NewAgent, but panics for an unknown agent.
func MustNewAgent(selector string) ConvergenceLayerAgent {
	agent, err := NewAgent(selector)
	if err != nil {
		panic(err)
	}
	return agent
}
