package schematic

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/tree"
)

// Fail-fast conditions of the readers. Each is wrapped with the offending
// path; test for them with errors.Is.
var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidJSON  = errors.New("invalid JSON")
	ErrNotObject    = errors.New("was expecting an object")
)

// JSONObject is a parsed top-level JSON object. Numbers are kept as
// json.Number so values survive a rewrite unchanged.
type JSONObject map[string]interface{}

// SafeFileDelete deletes path if it exists and reports whether it did.
func SafeFileDelete(t tree.Tree, path string) (bool, error) {
	if !t.Exists(path) {
		return false, nil
	}
	if err := t.Delete(path); err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return true, nil
}

// ReadJSONFile reads and strictly parses a JSON object at path.
func ReadJSONFile(t tree.Tree, path string) (JSONObject, error) {
	data, err := readFile(t, path)
	if err != nil {
		return nil, fmt.Errorf("could not read JSON file (%s): %w", path, err)
	}
	obj, err := parseObject(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON file %s: %w", path, err)
	}
	return obj, nil
}

// ParseJSONAtPath behaves like ReadJSONFile; only the error messages differ.
// Config files (tsconfig, package.json) are read through it.
func ParseJSONAtPath(t tree.Tree, path string) (JSONObject, error) {
	data, err := readFile(t, path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	obj, err := parseObject(data)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return obj, nil
}

// ReadTsConfig reads path as a tsconfig document.
func ReadTsConfig(t tree.Tree, path string) (*model.TsConfig, error) {
	obj, err := ParseJSONAtPath(t, path)
	if err != nil {
		return nil, err
	}

	// Round-trip through encoding/json to project the generic object onto
	// the typed view.
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	var cfg model.TsConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w: %v", path, ErrInvalidJSON, err)
	}
	return &cfg, nil
}

// WriteJSONFile serializes obj with model.JSONIndentLevel spaces and a
// trailing newline, creating or overwriting path.
func WriteJSONFile(t tree.Tree, path string, obj interface{}) error {
	data, err := json.MarshalIndent(obj, "", strings.Repeat(" ", model.JSONIndentLevel))
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", path, err)
	}
	data = append(data, '\n')

	if t.Exists(path) {
		return t.Overwrite(path, data)
	}
	return t.Create(path, data)
}

func readFile(t tree.Tree, path string) ([]byte, error) {
	data, err := t.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return data, nil
}

// parseObject parses data as exactly one JSON value, which must be an object.
// Comments, trailing commas and trailing data are rejected.
func parseObject(data []byte) (JSONObject, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrInvalidJSON)
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, ErrNotObject
	}
	return JSONObject(obj), nil
}
