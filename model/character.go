package model

import "time"

// CharacterClass is the adventuring role of a character.
type CharacterClass string

const (
	ClassWarrior CharacterClass = "WARRIOR"
	ClassMage    CharacterClass = "MAGE"
	ClassArcher  CharacterClass = "ARCHER"
	ClassRogue   CharacterClass = "ROGUE"
	ClassBard    CharacterClass = "BARD"
)

// Valid reports whether c is one of the known classes.
func (c CharacterClass) Valid() bool {
	switch c {
	case ClassWarrior, ClassMage, ClassArcher, ClassRogue, ClassBard:
		return true
	}
	return false
}

// Character is a player entity with base stats. Its items are not persisted
// through the character; they are loaded by owner id.
type Character struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string         `gorm:"size:64;not null" json:"name"`
	AdventurerName string         `gorm:"size:64;not null" json:"adventurer_name"`
	Class          CharacterClass `gorm:"size:16;not null" json:"class"`
	Level          int            `gorm:"default:1" json:"level"`
	Attack         int            `gorm:"default:0" json:"attack"`
	Defense        int            `gorm:"default:0" json:"defense"`
	Items          []MagicItem    `gorm:"-" json:"items"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// SetDefense sets the base defense.
func (c *Character) SetDefense(v int) {
	c.Defense = v
}

// TotalAttack is the base attack plus the attack bonus of every owned item.
func (c *Character) TotalAttack() int {
	total := c.Attack
	for _, it := range c.Items {
		total += it.Attack
	}
	return total
}

// TotalDefense is the base defense plus the defense bonus of every owned item.
func (c *Character) TotalDefense() int {
	total := c.Defense
	for _, it := range c.Items {
		total += it.Defense
	}
	return total
}

// HasItemType reports whether the character currently holds an item of type t.
func (c *Character) HasItemType(t ItemType) bool {
	for _, it := range c.Items {
		if it.Type == t {
			return true
		}
	}
	return false
}
