// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package simulator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_MissingFileReadsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "state.yaml"))

	value, err := s.Read("0b55")
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if value != EmptyRegister {
		t.Errorf("Read = %q, want %q", value, EmptyRegister)
	}
}

func TestStore_WriteThenRead(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "state.yaml"))

	if err := s.Write("0b31", "e100"); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	value, err := s.Read("0b31")
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if value != "e100" {
		t.Errorf("Read = %q, want %q", value, "e100")
	}
}

func TestStore_ValuesStayQuoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	s := NewStore(path)

	// "0800" would reparse as the number 800 if saved unquoted.
	if err := s.Write("0b55", "0800"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"0800"`) {
		t.Errorf("state file should quote hex values:\n%s", data)
	}

	value, err := NewStore(path).Read("0b55")
	if err != nil {
		t.Fatal(err)
	}
	if value != "0800" {
		t.Errorf("reloaded value = %q, want %q", value, "0800")
	}
}

func TestStore_PicksUpExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	s := NewStore(path)

	if err := os.WriteFile(path, []byte("\"0b20\": \"d700\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	value, err := s.Read("0b20")
	if err != nil {
		t.Fatal(err)
	}
	if value != "d700" {
		t.Errorf("externally edited value = %q, want %q", value, "d700")
	}
}

func TestStore_All(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "state.yaml"))
	for reg, value := range map[string]string{"0b31": "e100", "0b55": "0800"} {
		if err := s.Write(reg, value); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("All error: %v", err)
	}
	if len(all) != 2 || all["0b31"] != "e100" || all["0b55"] != "0800" {
		t.Errorf("All = %v", all)
	}
}
