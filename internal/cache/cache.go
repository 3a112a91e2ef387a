// Package cache implements the Stage Cache (C3): read/write of a stage
// artifact with schema validation and invalidate-on-failure semantics.
// Every stage's idempotence and resumability flows through this package.
package cache

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
	"github.com/tidwall/pretty"

	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/schema"
	"github.com/faughnn/factreel/internal/workspace"
)

// Store wraps one Workspace with the C3 get/put contract.
type Store struct {
	ws     *workspace.Workspace
	logger *zerolog.Logger
}

// New returns a Store scoped to ws, logging invalidations through logger.
func New(ws *workspace.Workspace, logger *zerolog.Logger) *Store {
	return &Store{ws: ws, logger: logger}
}

// Get returns the parsed artifact at logicalName only if it exists and
// validates against schemaName; otherwise it returns ok=false. A
// validation failure renames the offending file to
// "<name>.invalid.<timestamp>" and logs the failure — there is no silent
// repair (§4.3 policy).
func (s *Store) Get(logicalName string, schemaName schema.Name, out interface{}) (ok bool, err error) {
	if !s.ws.Exists(logicalName) {
		return false, nil
	}

	data, readErr := readFile(s.ws.PathOf(logicalName))
	if readErr != nil {
		return false, readErr
	}

	if verr := schema.ValidateInto(data, schemaName, out); verr != nil {
		newPath, renameErr := s.ws.InvalidateCachedArtifact(logicalName)
		if s.logger != nil {
			ev := s.logger.Warn().Str("artifact", logicalName).Str("schema", string(schemaName)).Err(verr)
			if renameErr == nil {
				ev = ev.Str("invalidated_to", newPath)
			}
			ev.Msg("cached artifact failed validation; invalidating")
		}
		if renameErr != nil {
			return false, renameErr
		}
		return false, nil
	}
	return true, nil
}

// Put validates data against schemaName, then writes it atomically. A
// producer-side validation failure is returned to the caller without
// touching the workspace (§4.2 policy: validator runs on every write too).
func (s *Store) Put(logicalName string, data []byte, schemaName schema.Name) error {
	if _, err := schema.Validate(data, schemaName); err != nil {
		return err
	}
	return s.ws.WriteAtomic(logicalName, data)
}

// PutValue marshals v to JSON, validates, and writes atomically — the
// common case where the caller has a typed model value rather than raw
// bytes.
func (s *Store) PutValue(logicalName string, v interface{}, schemaName schema.Name) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(logicalName, data, schemaName)
}

// DumpDebug pretty-prints v (via tidwall/pretty, matching the teacher's
// mediainfo_service.go debug-dump style) to a Processing/ debug file. Best
// effort: failures are logged, never returned, since debug dumps must
// never fail a stage.
func (s *Store) DumpDebug(name string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	formatted := pretty.Pretty(data)
	if err := s.ws.WriteAtomic(s.relDebugPath(name), formatted); err != nil && s.logger != nil {
		s.logger.Debug().Str("name", name).Err(err).Msg("failed to write stage debug dump")
	}
}

func (s *Store) relDebugPath(name string) string {
	return "Processing/" + name + ".debug.json"
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
