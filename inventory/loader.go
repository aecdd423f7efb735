package inventory

import (
	"context"
	"errors"

	"github.com/kasuganosora/magicitems/model"
	"github.com/kasuganosora/magicitems/repository"
)

// loadCharacter fetches a character together with the items it owns.
func loadCharacter(ctx context.Context, chars repository.CharacterRepository, items repository.ItemRepository, id int64) (*model.Character, error) {
	c, err := findCharacter(ctx, chars, id)
	if err != nil {
		return nil, err
	}
	owned, err := items.FindByCharacter(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Items = owned
	return c, nil
}

func findCharacter(ctx context.Context, chars repository.CharacterRepository, id int64) (*model.Character, error) {
	c, err := chars.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	return c, nil
}

func findItem(ctx context.Context, items repository.ItemRepository, id int64) (*model.MagicItem, error) {
	item, err := items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// holdsAmuletBesides reports whether c owns an AMULET other than the item with id except.
func holdsAmuletBesides(c *model.Character, except int64) bool {
	for _, it := range c.Items {
		if it.Type == model.ItemAmulet && it.ID != except {
			return true
		}
	}
	return false
}
