package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"coffeemon-arena/server/internal/net/proto"
)

type document struct {
	Title    string                        `json:"title"`
	Version  int                           `json:"version"`
	Messages map[string]*jsonschema.Schema `json:"messages"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the protocol schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	doc := document{
		Title:    "Coffeemon Arena websocket protocol",
		Version:  proto.Version,
		Messages: proto.Schemas(),
	}
	if err := writeSchema(outPath, doc); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func writeSchema(outPath string, doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
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
	return os.Rename(tmpPath, outPath)
}
