// Package repository hides the ORM behind by-id and by-owner lookups.
// A missing row is always reported as ErrNotFound.
package repository

import (
	"context"
	"errors"

	"github.com/kasuganosora/magicitems/model"
)

// ErrNotFound is returned by FindByID when no row matches.
var ErrNotFound = errors.New("repository: record not found")

// ItemRepository stores magic items.
type ItemRepository interface {
	List(ctx context.Context) ([]model.MagicItem, error)
	FindByID(ctx context.Context, id int64) (*model.MagicItem, error)
	FindByCharacter(ctx context.Context, charID int64) ([]model.MagicItem, error)
	Create(ctx context.Context, item *model.MagicItem) error
	Save(ctx context.Context, item *model.MagicItem) error
	// Delete returns the number of rows removed.
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteByCharacter(ctx context.Context, charID int64) (int64, error)
}

// CharacterRepository stores characters. Items are never loaded here.
type CharacterRepository interface {
	List(ctx context.Context) ([]model.Character, error)
	FindByID(ctx context.Context, id int64) (*model.Character, error)
	Create(ctx context.Context, c *model.Character) error
	Save(ctx context.Context, c *model.Character) error
	Delete(ctx context.Context, id int64) (int64, error)
}
