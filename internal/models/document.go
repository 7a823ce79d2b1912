package models

import "time"

// Document представляет документ реплики: семантические поля плюс метаданные ревизий.
type Document struct {
	CreatedAt     time.Time  `json:"created_at"`               // CreatedAt время создания документа
	UpdatedAt     time.Time  `json:"updated_at"`               // UpdatedAt время последнего изменения
	ID            string     `json:"id"`                       // ID уникальный идентификатор документа
	Title         string     `json:"title"`                    // Title заголовок
	Body          string     `json:"body"`                     // Body текст документа
	Revision      Revision   `json:"rev"`                      // Revision выигравшая ревизия
	LeafRevisions []Revision `json:"leaf_revisions,omitempty"` // LeafRevisions живые листья (>1 = конфликт)
}

// InConflict reports whether the document has more than one live leaf.
func (d *Document) InConflict() bool {
	return len(d.LeafRevisions) > 1
}

// RevisionEntry - неизменяемая запись одной ревизии документа.
// История хранится только через ссылки Parent, без изменяемых связных структур.
type RevisionEntry struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Rev       Revision  `json:"rev"`
	Parent    Revision  `json:"parent,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// Document builds the read model of this revision with the given live leaves.
func (e *RevisionEntry) Document(leaves []Revision) *Document {
	return &Document{
		ID:            e.ID,
		Title:         e.Title,
		Body:          e.Body,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		Revision:      e.Rev,
		LeafRevisions: leaves,
	}
}

// Clone возвращает копию записи
func (e *RevisionEntry) Clone() *RevisionEntry {
	c := *e
	return &c
}

// Change - запись локальной ленты изменений
type Change struct {
	Entry  *RevisionEntry `json:"-"`
	ID     string         `json:"id"`
	Rev    Revision       `json:"rev"`
	Seq    uint64         `json:"seq"`
	Remote bool           `json:"remote,omitempty"` // Remote ревизия пришла с удалённой реплики
}

// Conflict описывает документ с несколькими живыми листьями
type Conflict struct {
	ID            string     `json:"id"`
	LeafRevisions []Revision `json:"leaf_revisions"`
}
