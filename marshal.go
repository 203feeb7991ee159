package stageflow

import (
	"encoding/json"
)

// Marshal is the single encoding used by every persistent store for blueprints and runs.
func Marshal[T any](t *T) ([]byte, error) {
	return json.Marshal(t)
}

// Unmarshal decodes data produced by Marshal.
func Unmarshal[T any](b []byte, t *T) error {
	err := json.Unmarshal(b, t)
	if err != nil {
		return err
	}

	return nil
}
