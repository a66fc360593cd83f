// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

// Package simulator provides a file-backed register store and a mock
// device server for development without access to a physical heater.
//
// The store persists register state to a YAML file so recorded sessions
// survive restarts and can be inspected or edited by hand. The server
// exposes the same HTTP surface as the heater's C.MI module, so the HTTP
// backend, CLI and tests run unchanged against it.
package simulator

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// EmptyRegister is the value reported for registers absent from the
// state file.
const EmptyRegister = "0000"

// Store is a YAML-file-backed register map. The file is reloaded on
// every read so external edits (or another process) are picked up, and
// saved on every write. Safe for concurrent use.
type Store struct {
	path string

	mu   sync.Mutex
	regs map[string]string
}

// NewStore creates a store backed by the YAML file at path. The file is
// created on first write; a missing file reads as all-empty registers.
func NewStore(path string) *Store {
	return &Store{path: path, regs: make(map[string]string)}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns the register's value, or EmptyRegister when absent.
func (s *Store) Read(register string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return "", err
	}
	if value, ok := s.regs[register]; ok {
		return value, nil
	}
	return EmptyRegister, nil
}

// Write stores the register's value and persists the state file.
func (s *Store) Write(register, hexValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.regs[register] = hexValue
	return s.save()
}

// All returns a copy of every register present in the state file.
func (s *Store) All() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(s.regs))
	for k, v := range s.regs {
		out[k] = v
	}
	return out, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.regs = make(map[string]string)
			return nil
		}
		return fmt.Errorf("load simulator state: %w", err)
	}

	regs := make(map[string]string)
	if err := yaml.Unmarshal(data, &regs); err != nil {
		return fmt.Errorf("load simulator state: %w", err)
	}
	if regs == nil {
		regs = make(map[string]string)
	}
	s.regs = regs
	return nil
}

// save writes the state file with every key and value double-quoted, so
// hex values like "0800" are never reparsed as numbers.
func (s *Store) save() error {
	keys := make([]string, 0, len(s.regs))
	for k := range s.regs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: s.regs[k]},
		)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("save simulator state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("save simulator state: %w", err)
	}
	return nil
}
