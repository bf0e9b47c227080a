package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hidlight/config"
)

// convertBoard reads a board description in YAML (JSON is a subset) and
// returns the validated JSON form that the firmware embeds as board.json.
// Defaults are filled in, so the output spells out every setting.
func convertBoard(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse board file: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("board file: %w", err)
	}
	cfg, err := config.LoadConfig(raw)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func runBoard(args []string) error {
	fs := flag.NewFlagSet("board", flag.ExitOnError)
	output := fs.String("o", "", "Write board.json here instead of stdout")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: board [-o board.json] <board.yaml>")
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	out, err := convertBoard(data)
	if err != nil {
		return err
	}
	if *output == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(*output, out, 0o644); err != nil {
		return err
	}
	if *verbose {
		fmt.Printf("Wrote %s\n", *output)
	}
	return nil
}
