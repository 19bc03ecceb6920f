package common

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes the YAML file at path into out. Fields absent from the
// file keep the values out already holds, so callers pass pre-filled defaults.
// An empty path is a no-op.
func LoadYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("read tuning file %s", path), err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("decode tuning file %s", path), err)
	}
	return nil
}
