package models

import "fmt"

// ProfileSnapshot is a copy of a user profile taken at generation or sync time.
type ProfileSnapshot struct {
	ID                 string   `json:"id"`
	DisplayName        string   `json:"displayName"`
	PhotoURL           string   `json:"photoURL"`
	Age                int      `json:"age"`
	Location           string   `json:"location"`
	Description        string   `json:"description"`
	Hobbies            []string `json:"hobbies"`
	Email              string   `json:"email"`
	HasMatchingConsent bool     `json:"hasMatchingConsent"`
	MatchingEnabled    bool     `json:"matchingEnabled"`
	IsPublic           bool     `json:"isPublic"`
}

// ProfileSnapshotFromDocument decodes a profile stored under id. Missing consent
// flags decode as false, which keeps the profile out of every candidate pool.
func ProfileSnapshotFromDocument(id string, doc Document) (*ProfileSnapshot, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty profile %q", ErrMalformedDocument, id)
	}
	var p ProfileSnapshot
	if err := decodeDocument(doc, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = id
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: profile without id", ErrMalformedDocument)
	}
	if p.ID != id {
		return nil, fmt.Errorf("%w: profile id %q stored under %q", ErrMalformedDocument, p.ID, id)
	}
	return &p, nil
}

func (p ProfileSnapshot) ToDocument() (Document, error) {
	return toDocument(p)
}

// Equal reports whether two snapshots carry the same data.
func (p ProfileSnapshot) Equal(other ProfileSnapshot) bool {
	if p.ID != other.ID ||
		p.DisplayName != other.DisplayName ||
		p.PhotoURL != other.PhotoURL ||
		p.Age != other.Age ||
		p.Location != other.Location ||
		p.Description != other.Description ||
		p.Email != other.Email ||
		p.HasMatchingConsent != other.HasMatchingConsent ||
		p.MatchingEnabled != other.MatchingEnabled ||
		p.IsPublic != other.IsPublic {
		return false
	}
	if len(p.Hobbies) != len(other.Hobbies) {
		return false
	}
	for i := range p.Hobbies {
		if p.Hobbies[i] != other.Hobbies[i] {
			return false
		}
	}
	return true
}

func decodeSnapshot(raw interface{}, field string) error {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w: %s is not an object", ErrMalformedDocument, field)
	}
	if id, _ := m["id"].(string); id == "" {
		return fmt.Errorf("%w: %s has no id", ErrMalformedDocument, field)
	}
	return nil
}
