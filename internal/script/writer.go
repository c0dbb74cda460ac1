package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteScript writes a script to a JSON or YAML file depending on extension
func WriteScript(s *DialogueScript, path string) error {
	var data []byte
	var err error
	if isJSON(path) {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// ReadScript reads a script from a JSON or YAML file
func ReadScript(path string) (*DialogueScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s DialogueScript
	if isJSON(path) {
		err = json.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("decode script %s: %w", path, err)
	}

	return &s, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
