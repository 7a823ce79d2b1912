// Package revtree хранит множество листьев дерева ревизий одного документа.
//
// Листья бывают живыми (обычные ревизии) и мёртвыми (tombstone после remove).
// Документ в конфликте, если у него больше одного живого листа. Победитель -
// максимальный живой лист по порядку models.Revision.
package revtree

import (
	"sort"

	"github.com/iudanet/docsync/internal/models"
)

// Leaf один лист дерева ревизий
type Leaf struct {
	Rev     models.Revision `json:"rev"`
	Deleted bool            `json:"deleted,omitempty"`
}

// Set - листья одного документа, отсортированные по возрастанию ревизии.
type Set []Leaf

// Live возвращает живые листья по возрастанию ревизии
func (s Set) Live() []models.Revision {
	live := make([]models.Revision, 0, len(s))
	for _, l := range s {
		if !l.Deleted {
			live = append(live, l.Rev)
		}
	}
	return live
}

// Winner возвращает максимальный живой лист
func (s Set) Winner() (models.Revision, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].Deleted {
			return s[i].Rev, true
		}
	}
	return models.Revision{}, false
}

// Newest возвращает максимальный лист, включая мёртвые
func (s Set) Newest() (Leaf, bool) {
	if len(s) == 0 {
		return Leaf{}, false
	}
	return s[len(s)-1], true
}

// MaxGeneration returns the highest generation across all leaves, or 0.
func (s Set) MaxGeneration() int64 {
	var maxGen int64
	for _, l := range s {
		if l.Rev.Generation > maxGen {
			maxGen = l.Rev.Generation
		}
	}
	return maxGen
}

// IsLive reports whether rev is a live leaf.
func (s Set) IsLive(rev models.Revision) bool {
	i, ok := s.find(rev)
	return ok && !s[i].Deleted
}

// Contains reports whether rev is a leaf, live or dead.
func (s Set) Contains(rev models.Revision) bool {
	_, ok := s.find(rev)
	return ok
}

// InConflict reports whether there is more than one live leaf.
func (s Set) InConflict() bool {
	return len(s.Live()) > 1
}

// Extend применяет новую ревизию: parent (если он лист) заменяется на leaf.
// Если parent не лист или нулевой, leaf добавляется как новая ветка.
// Возвращает новое множество, исходное не изменяется.
func (s Set) Extend(parent models.Revision, leaf Leaf) Set {
	out := make(Set, 0, len(s)+1)
	for _, l := range s {
		if !parent.IsZero() && l.Rev == parent {
			continue
		}
		if l.Rev == leaf.Rev {
			continue
		}
		out = append(out, l)
	}
	out = append(out, leaf)
	sort.Slice(out, func(i, j int) bool { return out[i].Rev.Less(out[j].Rev) })
	return out
}

func (s Set) find(rev models.Revision) (int, bool) {
	i := sort.Search(len(s), func(i int) bool { return !s[i].Rev.Less(rev) })
	if i < len(s) && s[i].Rev == rev {
		return i, true
	}
	return 0, false
}
