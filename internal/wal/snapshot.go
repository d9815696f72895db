package wal

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
	"github.com/tdorsey/corruptvideofileinspector/internal/scanerr"
)

// DumpSnapshotYAML renders the current in-memory results as a
// human-readable YAML file for local debugging. It is not part of the
// crash-safety contract — the fsynced JSONL resume log is the durable
// record; this is a convenience view over the same data.
func DumpSnapshotYAML(path string, header model.WALHeader, entries map[string]model.WALEntry) error {
	doc := struct {
		Header  model.WALHeader         `yaml:"header"`
		Entries map[string]model.WALEntry `yaml:"entries"`
	}{Header: header, Entries: entries}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return scanerr.New(scanerr.KindWAL, "failed to render results snapshot as yaml", err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return scanerr.New(scanerr.KindWAL, "failed to write yaml results snapshot", err)
	}
	return nil
}
