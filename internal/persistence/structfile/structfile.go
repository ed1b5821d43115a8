// Package structfile persists one StructureDescriptor per agent as JSON,
// validated against the structure schema on both load and save. A corrupt
// file is reported, never silently replaced.
package structfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"pathcraft.ai/internal/nav"
)

// Store reads and writes descriptor files under dir, one per agent.
type Store struct {
	dir    string
	schema *jsonschema.Schema
}

func Open(dir, schemaPath string) (*Store, error) {
	s, err := jsonschema.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", schemaPath, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, schema: s}, nil
}

func (s *Store) path(agentID string) string {
	return filepath.Join(s.dir, agentID+".json")
}

// Load returns the agent's descriptor, or (nil, nil) when none was saved.
func (s *Store) Load(agentID string) (*nav.StructureDescriptor, error) {
	b, err := os.ReadFile(s.path(agentID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.validate(b); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path(agentID), err)
	}

	var d nav.StructureDescriptor
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path(agentID), err)
	}
	d.Normalize()
	return &d, nil
}

// Save writes the descriptor atomically (temp file, then rename).
func (s *Store) Save(agentID string, d *nav.StructureDescriptor) error {
	d.Normalize()
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if err := s.validate(b); err != nil {
		return err
	}

	path := s.path(agentID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Delete removes the agent's descriptor. Missing files are not an error.
func (s *Store) Delete(agentID string) error {
	err := os.Remove(s.path(agentID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) validate(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
