package models

import "time"

// SystemKey identifies one of the lists the engine manages for every owner.
type SystemKey string

const (
	SystemKeyOwned    SystemKey = "owned"
	SystemKeyWishlist SystemKey = "wishlist"
)

// SystemKeys lists the system keys in their pinned order.
var SystemKeys = []SystemKey{SystemKeyOwned, SystemKeyWishlist}

// Title returns the default title used when the system list is created.
func (k SystemKey) Title() string {
	switch k {
	case SystemKeyOwned:
		return "Owned"
	case SystemKeyWishlist:
		return "Wishlist"
	default:
		return string(k)
	}
}

// Rank returns the pinned position of the system list relative to the
// other system lists, or -1 for unknown keys.
func (k SystemKey) Rank() int {
	for i, key := range SystemKeys {
		if key == k {
			return i
		}
	}
	return -1
}

// Valid reports whether k is a known system key.
func (k SystemKey) Valid() bool {
	return k.Rank() >= 0
}

// List is a named, ordered collection of catalog set references
type List struct {
	ID          int64      `json:"id" db:"id"`
	OwnerID     int64      `json:"owner_id" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	IsPublic    bool       `json:"is_public" db:"is_public"`
	Position    int        `json:"position" db:"position"`
	IsSystem    bool       `json:"is_system" db:"is_system"`
	SystemKey   *SystemKey `json:"system_key,omitempty" db:"system_key"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	ItemsCount  int        `json:"items_count"`
	Items       []ListItem `json:"items,omitempty"`
}

// HasSystemKey reports whether the list is the system list for key.
func (l *List) HasSystemKey(key SystemKey) bool {
	return l.IsSystem && l.SystemKey != nil && *l.SystemKey == key
}

// Clone returns a deep copy of the list.
func (l *List) Clone() *List {
	c := *l
	if l.Description != nil {
		d := *l.Description
		c.Description = &d
	}
	if l.SystemKey != nil {
		k := *l.SystemKey
		c.SystemKey = &k
	}
	if l.Items != nil {
		c.Items = append([]ListItem(nil), l.Items...)
	}
	return &c
}

// ListItem is a catalog set placed at a position inside a list.
type ListItem struct {
	ListID    int64     `json:"list_id" db:"list_id"`
	SetNum    string    `json:"set_num" db:"set_num"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ListUpdate carries a partial update of a list's metadata. Nil fields are
// left untouched.
type ListUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u ListUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.IsPublic == nil
}

// Apply copies the provided fields onto l.
func (u ListUpdate) Apply(l *List) {
	if u.Title != nil {
		l.Title = *u.Title
	}
	if u.Description != nil {
		if *u.Description == "" {
			l.Description = nil
		} else {
			d := *u.Description
			l.Description = &d
		}
	}
	if u.IsPublic != nil {
		l.IsPublic = *u.IsPublic
	}
}
