package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/invopop/jsonschema"

	"age-of-war/server/internal/net/proto"
	"age-of-war/server/internal/world"
)

type document struct {
	file        string
	title       string
	description string
	value       any
}

var documents = []document{
	{"client-message.json", "Client message", "Actions and heartbeats sent to the host", new(proto.ClientMessage)},
	{"snapshot.json", "Snapshot", "Authoritative world state broadcast on the sync interval", new(proto.SnapshotV1)},
	{"start.json", "Match start", "Sent once per connection before any snapshot", new(proto.StartV1)},
	{"phase.json", "Phase transition", "Sent when the match pauses, resumes or finishes", new(proto.PhaseV1)},
	{"result.json", "Match result", "Winner and final player state", new(proto.ResultV1)},
	{"settings.json", "Match settings", "Host tunables applied when the match starts", new(world.Settings)},
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schemas := buildSchemas()
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeSchema(filepath.Join(outDir, name), schemas[name]); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", name, err)
			os.Exit(1)
		}
	}
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	out := make(map[string]*jsonschema.Schema, len(documents))
	for _, doc := range documents {
		schema := reflector.Reflect(doc.value)
		schema.Title = "Age of War " + doc.title
		schema.Description = doc.description
		out[doc.file] = schema
	}
	return out
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
