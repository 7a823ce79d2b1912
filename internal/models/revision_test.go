package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevision_Compare(t *testing.T) {
	tests := []struct {
		name     string
		self     Revision
		other    Revision
		expected int
	}{
		{
			name:     "higher generation wins",
			self:     Revision{Generation: 2, Hash: "aaa"},
			other:    Revision{Generation: 1, Hash: "fff"},
			expected: 1,
		},
		{
			name:     "lower generation loses",
			self:     Revision{Generation: 1, Hash: "fff"},
			other:    Revision{Generation: 3, Hash: "000"},
			expected: -1,
		},
		{
			name:     "equal generation, hash tie-break",
			self:     Revision{Generation: 2, Hash: "abc"},
			other:    Revision{Generation: 2, Hash: "abd"},
			expected: -1,
		},
		{
			name:     "identical",
			self:     Revision{Generation: 4, Hash: "abc"},
			other:    Revision{Generation: 4, Hash: "abc"},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.self.Compare(tt.other))
			assert.Equal(t, -tt.expected, tt.other.Compare(tt.self))
		})
	}
}

func TestParseRevision(t *testing.T) {
	rev, err := ParseRevision("12-deadbeef")
	require.NoError(t, err)
	assert.Equal(t, int64(12), rev.Generation)
	assert.Equal(t, "deadbeef", rev.Hash)
	assert.Equal(t, "12-deadbeef", rev.String())

	for _, bad := range []string{"", "12", "x-abc", "0-abc", "-1-abc", "3-"} {
		_, err := ParseRevision(bad)
		assert.Error(t, err, bad)
	}
}

func TestRevision_JSON(t *testing.T) {
	entry := RevisionEntry{
		ID:  "doc-1",
		Rev: MustParseRevision("2-abc"),
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rev":"2-abc"`)
	assert.Contains(t, string(data), `"parent":""`)

	var decoded RevisionEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, entry.Rev, decoded.Rev)
	assert.True(t, decoded.Parent.IsZero())
}

func TestNextRevision(t *testing.T) {
	parent := MustParseRevision("1-abc")

	r1 := NextRevision(2, parent, "title", "body", false)
	r2 := NextRevision(2, parent, "title", "body", false)
	assert.Equal(t, r1, r2, "same content on same parent must give same token")
	assert.Len(t, r1.Hash, hashLen)

	assert.NotEqual(t, r1, NextRevision(2, parent, "title", "other", false))
	assert.NotEqual(t, r1, NextRevision(2, Revision{}, "title", "body", false))
	assert.NotEqual(t, r1, NextRevision(2, parent, "title", "body", true))
}

func TestRevisionEntry_Wire(t *testing.T) {
	entry := &RevisionEntry{
		ID:     "doc-1",
		Title:  "T",
		Body:   "B",
		Rev:    MustParseRevision("2-abc"),
		Parent: MustParseRevision("1-def"),
	}

	wire := entry.ToWire()
	assert.Equal(t, "2-abc", wire.Rev)
	assert.Equal(t, "1-def", wire.Parent)

	back, err := RevisionEntryFromWire(wire)
	require.NoError(t, err)
	assert.Equal(t, entry, back)

	wire.Rev = "garbage"
	_, err = RevisionEntryFromWire(wire)
	assert.Error(t, err)

	wire.Rev = "2-abc"
	wire.ID = ""
	_, err = RevisionEntryFromWire(wire)
	assert.Error(t, err)
}
