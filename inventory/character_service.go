package inventory

import (
	"context"

	"github.com/kasuganosora/magicitems/model"
	"github.com/kasuganosora/magicitems/repository"
	"go.uber.org/zap"
)

// CharacterService manages characters and the cascade onto their items.
type CharacterService struct {
	chars  repository.CharacterRepository
	items  repository.ItemRepository
	stats  *StatsCache
	logger *zap.Logger
}

// NewCharacterService creates a CharacterService. stats may be nil.
func NewCharacterService(chars repository.CharacterRepository, items repository.ItemRepository, stats *StatsCache, logger *zap.Logger) *CharacterService {
	return &CharacterService{chars: chars, items: items, stats: stats, logger: logger}
}

// List returns every character without items.
func (svc *CharacterService) List(ctx context.Context) ([]model.Character, error) {
	return svc.chars.List(ctx)
}

// Get returns a character with its owned items loaded.
func (svc *CharacterService) Get(ctx context.Context, id int64) (*model.Character, error) {
	return loadCharacter(ctx, svc.chars, svc.items, id)
}

// Create validates and stores a character. A zero level becomes 1.
func (svc *CharacterService) Create(ctx context.Context, in *model.Character) (*model.Character, error) {
	c := &model.Character{
		Name:           in.Name,
		AdventurerName: in.AdventurerName,
		Class:          in.Class,
		Level:          in.Level,
		Attack:         in.Attack,
		Defense:        in.Defense,
	}
	if c.Level == 0 {
		c.Level = 1
	}
	if err := ValidateCharacter(c); err != nil {
		return nil, err
	}
	if err := svc.chars.Create(ctx, c); err != nil {
		svc.logger.Error("character create failed", zap.Error(err))
		return nil, err
	}
	c.Items = []model.MagicItem{}
	return c, nil
}

// Update replaces the editable fields of a character.
func (svc *CharacterService) Update(ctx context.Context, id int64, in *model.Character) (*model.Character, error) {
	c, err := loadCharacter(ctx, svc.chars, svc.items, id)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.AdventurerName = in.AdventurerName
	c.Class = in.Class
	c.Level = in.Level
	c.Attack = in.Attack
	c.SetDefense(in.Defense)
	if err := ValidateCharacter(c); err != nil {
		return nil, err
	}
	if err := svc.chars.Save(ctx, c); err != nil {
		svc.logger.Error("character update failed", zap.Int64("character_id", id), zap.Error(err))
		return nil, err
	}
	svc.stats.Invalidate(ctx, id)
	return c, nil
}

// Delete removes the character's items and then the character itself.
// It returns the number of items removed with it.
func (svc *CharacterService) Delete(ctx context.Context, id int64) (int64, error) {
	if _, err := findCharacter(ctx, svc.chars, id); err != nil {
		return 0, err
	}
	removed, err := svc.items.DeleteByCharacter(ctx, id)
	if err != nil {
		svc.logger.Error("character item cascade failed", zap.Int64("character_id", id), zap.Error(err))
		return 0, err
	}
	n, err := svc.chars.Delete(ctx, id)
	if err != nil {
		svc.logger.Error("character delete failed", zap.Int64("character_id", id), zap.Error(err))
		return removed, err
	}
	svc.stats.Invalidate(ctx, id)
	if n == 0 {
		return removed, ErrCharacterNotFound
	}
	svc.logger.Info("character deleted", zap.Int64("character_id", id), zap.Int64("items_removed", removed))
	return removed, nil
}

// Stats returns base and total attack/defense, served from cache when possible.
func (svc *CharacterService) Stats(ctx context.Context, id int64) (*Stats, error) {
	if st, ok := svc.stats.get(ctx, id); ok {
		return st, nil
	}
	seen, cacheable := svc.stats.epoch(ctx, id)
	c, err := loadCharacter(ctx, svc.chars, svc.items, id)
	if err != nil {
		return nil, err
	}
	st := StatsFor(c)
	if cacheable {
		svc.stats.put(ctx, st, seen)
	}
	return st, nil
}
