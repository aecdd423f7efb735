package inventory

import (
	"context"
	"errors"

	"github.com/kasuganosora/magicitems/model"
	"github.com/kasuganosora/magicitems/repository"
	"go.uber.org/zap"
)

// ItemService applies the magic item rules on top of the repositories.
type ItemService struct {
	items  repository.ItemRepository
	chars  repository.CharacterRepository
	stats  *StatsCache
	logger *zap.Logger
}

// NewItemService creates an ItemService. stats may be nil.
func NewItemService(items repository.ItemRepository, chars repository.CharacterRepository, stats *StatsCache, logger *zap.Logger) *ItemService {
	return &ItemService{items: items, chars: chars, stats: stats, logger: logger}
}

// List returns every item ordered by id.
func (svc *ItemService) List(ctx context.Context) ([]model.MagicItem, error) {
	return svc.items.List(ctx)
}

// Get returns one item or ErrItemNotFound.
func (svc *ItemService) Get(ctx context.Context, id int64) (*model.MagicItem, error) {
	return findItem(ctx, svc.items, id)
}

// ListByCharacter returns the items owned by a character.
func (svc *ItemService) ListByCharacter(ctx context.Context, charID int64) ([]model.MagicItem, error) {
	c, err := loadCharacter(ctx, svc.chars, svc.items, charID)
	if err != nil {
		return nil, err
	}
	return c.Items, nil
}

// AmuletFor returns the first AMULET owned by the character, or ErrAmuletNotFound.
func (svc *ItemService) AmuletFor(ctx context.Context, charID int64) (*model.MagicItem, error) {
	owned, err := svc.ListByCharacter(ctx, charID)
	if err != nil {
		return nil, err
	}
	for i := range owned {
		if owned[i].Type == model.ItemAmulet {
			return &owned[i], nil
		}
	}
	return nil, ErrAmuletNotFound
}

// Create validates and stores a new, unassigned item.
func (svc *ItemService) Create(ctx context.Context, in *model.MagicItem) (*model.MagicItem, error) {
	item := &model.MagicItem{
		Name:    in.Name,
		Attack:  in.Attack,
		Defense: in.Defense,
		Type:    in.Type,
	}
	if err := ValidateItem(item); err != nil {
		svc.logger.Info("item rejected", zap.String("type", string(item.Type)), zap.Error(err))
		return nil, err
	}
	if err := svc.items.Create(ctx, item); err != nil {
		svc.logger.Error("item create failed", zap.Error(err))
		return nil, err
	}
	svc.logger.Debug("item created", zap.Int64("item_id", item.ID), zap.String("type", string(item.Type)))
	return item, nil
}

// Update replaces the name, bonuses and type of an item. Ownership is kept,
// so an assigned item that becomes a WEAPON must not sit next to an AMULET.
func (svc *ItemService) Update(ctx context.Context, id int64, in *model.MagicItem) (*model.MagicItem, error) {
	item, err := findItem(ctx, svc.items, id)
	if err != nil {
		return nil, err
	}
	item.Name = in.Name
	item.Attack = in.Attack
	item.Defense = in.Defense
	item.Type = in.Type
	if err := ValidateItem(item); err != nil {
		return nil, err
	}

	if item.Assigned() && item.Type == model.ItemWeapon {
		owner, err := loadCharacter(ctx, svc.chars, svc.items, *item.CharacterID)
		if err != nil && !errors.Is(err, ErrCharacterNotFound) {
			return nil, err
		}
		if owner != nil && holdsAmuletBesides(owner, item.ID) {
			svc.logger.Info("item update rejected",
				zap.Int64("item_id", id), zap.Int64("character_id", owner.ID), zap.Error(ErrWeaponAmuletConflict))
			return nil, ErrWeaponAmuletConflict
		}
	}

	if err := svc.items.Save(ctx, item); err != nil {
		svc.logger.Error("item update failed", zap.Int64("item_id", id), zap.Error(err))
		return nil, err
	}
	if item.Assigned() {
		svc.stats.Invalidate(ctx, *item.CharacterID)
	}
	return item, nil
}

// Assign sets the owner of an item. A WEAPON is refused when the character
// already holds an AMULET; nothing is written in that case. Assigning an item
// to its current owner changes nothing.
func (svc *ItemService) Assign(ctx context.Context, itemID, charID int64) error {
	item, err := findItem(ctx, svc.items, itemID)
	if err != nil {
		return err
	}
	c, err := loadCharacter(ctx, svc.chars, svc.items, charID)
	if err != nil {
		return err
	}

	if item.Type == model.ItemWeapon && c.HasItemType(model.ItemAmulet) {
		svc.logger.Info("assignment rejected",
			zap.Int64("item_id", itemID), zap.Int64("character_id", charID), zap.Error(ErrWeaponAmuletConflict))
		return ErrWeaponAmuletConflict
	}
	if item.OwnedBy(charID) {
		return nil
	}

	previous := item.CharacterID
	item.CharacterID = &c.ID
	if err := svc.items.Save(ctx, item); err != nil {
		svc.logger.Error("assignment failed", zap.Int64("item_id", itemID), zap.Error(err))
		return err
	}

	touched := []int64{charID}
	if previous != nil && *previous != charID {
		touched = append(touched, *previous)
	}
	svc.stats.Invalidate(ctx, touched...)
	svc.logger.Debug("item assigned", zap.Int64("item_id", itemID), zap.Int64("character_id", charID))
	return nil
}

// Unassign clears the owner of an item. Unassigning a loose item is a no-op.
func (svc *ItemService) Unassign(ctx context.Context, itemID int64) error {
	item, err := findItem(ctx, svc.items, itemID)
	if err != nil {
		return err
	}
	if !item.Assigned() {
		return nil
	}

	previous := *item.CharacterID
	item.CharacterID = nil
	if err := svc.items.Save(ctx, item); err != nil {
		svc.logger.Error("unassignment failed", zap.Int64("item_id", itemID), zap.Error(err))
		return err
	}
	svc.stats.Invalidate(ctx, previous)
	svc.logger.Debug("item unassigned", zap.Int64("item_id", itemID), zap.Int64("character_id", previous))
	return nil
}

// Delete removes an item in either ownership state.
func (svc *ItemService) Delete(ctx context.Context, itemID int64) error {
	item, err := findItem(ctx, svc.items, itemID)
	if err != nil {
		return err
	}
	n, err := svc.items.Delete(ctx, itemID)
	if err != nil {
		svc.logger.Error("item delete failed", zap.Int64("item_id", itemID), zap.Error(err))
		return err
	}
	if n == 0 {
		// Removed concurrently between lookup and delete.
		return ErrItemNotFound
	}
	if item.Assigned() {
		svc.stats.Invalidate(ctx, *item.CharacterID)
	}
	return nil
}
