package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// hashLen длина contentHash в hex-символах
const hashLen = 32

// Revision представляет токен ревизии документа: (generation, contentHash).
// Ревизии упорядочены сначала по Generation, затем лексикографически по Hash.
type Revision struct {
	Hash       string
	Generation int64
}

// ParseRevision разбирает текстовую форму "<generation>-<hash>"
func ParseRevision(s string) (Revision, error) {
	genStr, hash, ok := strings.Cut(s, "-")
	if !ok || hash == "" {
		return Revision{}, fmt.Errorf("invalid revision %q", s)
	}
	gen, err := strconv.ParseInt(genStr, 10, 64)
	if err != nil || gen <= 0 {
		return Revision{}, fmt.Errorf("invalid revision generation %q", s)
	}
	return Revision{Generation: gen, Hash: hash}, nil
}

// MustParseRevision is ParseRevision for constants in tests and fixtures.
func MustParseRevision(s string) Revision {
	rev, err := ParseRevision(s)
	if err != nil {
		panic(err)
	}
	return rev
}

// String возвращает текстовую форму ревизии, пустую строку для нулевой ревизии
func (r Revision) String() string {
	if r.IsZero() {
		return ""
	}
	return strconv.FormatInt(r.Generation, 10) + "-" + r.Hash
}

// IsZero reports whether r is the zero revision (no parent).
func (r Revision) IsZero() bool {
	return r.Generation == 0 && r.Hash == ""
}

// Compare returns -1, 0 or +1. Never depends on wall-clock time.
func (r Revision) Compare(other Revision) int {
	switch {
	case r.Generation < other.Generation:
		return -1
	case r.Generation > other.Generation:
		return 1
	}
	return strings.Compare(r.Hash, other.Hash)
}

// Less reports whether r sorts before other.
func (r Revision) Less(other Revision) bool {
	return r.Compare(other) < 0
}

// MarshalText кодирует ревизию как "<generation>-<hash>"
func (r Revision) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText декодирует ревизию, пустая строка даёт нулевую ревизию
func (r *Revision) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = Revision{}
		return nil
	}
	rev, err := ParseRevision(string(text))
	if err != nil {
		return err
	}
	*r = rev
	return nil
}

// NextRevision вычисляет ревизию для новой записи поверх parent.
// Hash детерминирован: одинаковое содержимое на одном и том же родителе даёт одинаковый токен
// на обеих репликах.
func NextRevision(generation int64, parent Revision, title, body string, deleted bool) Revision {
	h := sha256.New()
	h.Write([]byte(parent.String()))
	h.Write([]byte{0})
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(body))
	if deleted {
		h.Write([]byte{0, 1})
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return Revision{Generation: generation, Hash: sum[:hashLen]}
}
