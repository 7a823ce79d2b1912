package models

import (
	"fmt"

	"github.com/iudanet/docsync/pkg/api"
)

// ToWire converts the revision to its transport representation.
func (e *RevisionEntry) ToWire() api.Revision {
	return api.Revision{
		ID:        e.ID,
		Rev:       e.Rev.String(),
		Parent:    e.Parent.String(),
		Title:     e.Title,
		Body:      e.Body,
		Deleted:   e.Deleted,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// RevisionEntryFromWire разбирает ревизию, полученную по сети
func RevisionEntryFromWire(r api.Revision) (*RevisionEntry, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("revision without document id")
	}

	rev, err := ParseRevision(r.Rev)
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", r.ID, err)
	}

	var parent Revision
	if r.Parent != "" {
		parent, err = ParseRevision(r.Parent)
		if err != nil {
			return nil, fmt.Errorf("document %q parent: %w", r.ID, err)
		}
	}

	return &RevisionEntry{
		ID:        r.ID,
		Rev:       rev,
		Parent:    parent,
		Title:     r.Title,
		Body:      r.Body,
		Deleted:   r.Deleted,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}
