package model

import "time"

// ItemType is the slot category of a magic item.
type ItemType string

const (
	ItemWeapon ItemType = "WEAPON"
	ItemArmor  ItemType = "ARMOR"
	ItemAmulet ItemType = "AMULET"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemWeapon, ItemArmor, ItemAmulet:
		return true
	}
	return false
}

// MagicItem is an equippable artifact. CharacterID is nil while unassigned.
type MagicItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:64" json:"name"`
	Attack      int       `gorm:"not null;default:0" json:"attack"`
	Defense     int       `gorm:"not null;default:0" json:"defense"`
	Type        ItemType  `gorm:"size:16;not null" json:"type"`
	CharacterID *int64    `gorm:"index:idx_item_character" json:"character_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Assigned reports whether the item has an owner.
func (m *MagicItem) Assigned() bool {
	return m.CharacterID != nil
}

// OwnedBy reports whether the item belongs to the given character.
func (m *MagicItem) OwnedBy(charID int64) bool {
	return m.CharacterID != nil && *m.CharacterID == charID
}
