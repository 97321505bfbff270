package models

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Document is the unit exchanged with the document store.
type Document = map[string]interface{}

// ErrMalformedDocument is returned when a stored record cannot be trusted.
var ErrMalformedDocument = errors.New("malformed document")

func requireKeys(doc Document, keys ...string) error {
	for _, key := range keys {
		v, ok := doc[key]
		if !ok || v == nil {
			return fmt.Errorf("%w: missing field %q", ErrMalformedDocument, key)
		}
	}
	return nil
}

func decodeDocument(doc Document, out interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return nil
}

func toDocument(v interface{}) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
