package importer

import (
	"encoding/json"
	"fmt"
	"io"
)

// streamJSONArray decodes a top-level JSON array one element at a time via
// json.Decoder's token API, so a multi-gigabyte channel-day file never has
// to be materialized in memory as a single []T slice (spec.md 4.2's
// streaming-parser invariant). fn is called once per decoded element; a
// non-nil return from fn stops the walk early.
func streamJSONArray[T any](r io.Reader, fn func(T) error) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to read opening token: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("expected a top-level JSON array, got %v", tok)
	}

	for dec.More() {
		var item T
		if err := dec.Decode(&item); err != nil {
			return fmt.Errorf("failed to decode array element: %w", err)
		}
		if err := fn(item); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return fmt.Errorf("failed to read closing token: %w", err)
	}
	return nil
}
