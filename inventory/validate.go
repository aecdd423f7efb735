package inventory

import "github.com/kasuganosora/magicitems/model"

// MaxSharedBonus is the ceiling that at least one of attack and defense must respect.
const MaxSharedBonus = 10

// MaxBonus bounds the magnitude of any single attack or defense value, on
// items and on a character's base stats, so totals stay far from overflow.
const MaxBonus = 1_000_000

// ValidateItem checks the item rules in order and returns the first failure.
func ValidateItem(item *model.MagicItem) error {
	switch {
	case !item.Type.Valid():
		return invalid("type", "unknown item type")
	case item.Attack == 0 && item.Defense == 0:
		return invalid("attack", "item cannot have both attack and defense equal to 0")
	case item.Attack > MaxSharedBonus && item.Defense > MaxSharedBonus:
		return invalid("attack", "attack and defense cannot both exceed 10")
	case item.Type == model.ItemWeapon && item.Defense != 0:
		return invalid("defense", "weapon items must have defense 0")
	case item.Type == model.ItemArmor && item.Attack != 0:
		return invalid("attack", "armor items must have attack 0")
	case outOfRange(item.Attack):
		return invalid("attack", "attack must be between -1000000 and 1000000")
	case outOfRange(item.Defense):
		return invalid("defense", "defense must be between -1000000 and 1000000")
	}
	return nil
}

// ValidateCharacter checks the fields a character needs before it is stored.
func ValidateCharacter(c *model.Character) error {
	switch {
	case c.Name == "":
		return invalid("name", "name is required")
	case c.AdventurerName == "":
		return invalid("adventurer_name", "adventurer name is required")
	case !c.Class.Valid():
		return invalid("class", "unknown character class")
	case c.Level < 1:
		return invalid("level", "level must be at least 1")
	case c.Attack < 0:
		return invalid("attack", "attack cannot be negative")
	case c.Defense < 0:
		return invalid("defense", "defense cannot be negative")
	case c.Attack > MaxBonus:
		return invalid("attack", "attack cannot exceed 1000000")
	case c.Defense > MaxBonus:
		return invalid("defense", "defense cannot exceed 1000000")
	}
	return nil
}

func outOfRange(v int) bool {
	return v > MaxBonus || v < -MaxBonus
}
