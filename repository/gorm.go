package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/magicitems/model"
	"gorm.io/gorm"
)

// GormItems is the gorm-backed ItemRepository.
type GormItems struct {
	db *gorm.DB
}

// NewItemRepository creates an ItemRepository on db.
func NewItemRepository(db *gorm.DB) *GormItems {
	return &GormItems{db: db}
}

func (r *GormItems) List(ctx context.Context) ([]model.MagicItem, error) {
	items := []model.MagicItem{}
	if err := r.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (r *GormItems) FindByID(ctx context.Context, id int64) (*model.MagicItem, error) {
	var item model.MagicItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, notFound(err, "find item %d", id)
	}
	return &item, nil
}

func (r *GormItems) FindByCharacter(ctx context.Context, charID int64) ([]model.MagicItem, error) {
	items := []model.MagicItem{}
	err := r.db.WithContext(ctx).Where("character_id = ?", charID).Order("id").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("find items of character %d: %w", charID, err)
	}
	return items, nil
}

func (r *GormItems) Create(ctx context.Context, item *model.MagicItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Save writes every column, so a nil CharacterID clears the owner.
func (r *GormItems) Save(ctx context.Context, item *model.MagicItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("save item %d: %w", item.ID, err)
	}
	return nil
}

func (r *GormItems) Delete(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.MagicItem{}, id)
	if res.Error != nil {
		return 0, fmt.Errorf("delete item %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormItems) DeleteByCharacter(ctx context.Context, charID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("character_id = ?", charID).Delete(&model.MagicItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete items of character %d: %w", charID, res.Error)
	}
	return res.RowsAffected, nil
}

// GormCharacters is the gorm-backed CharacterRepository.
type GormCharacters struct {
	db *gorm.DB
}

// NewCharacterRepository creates a CharacterRepository on db.
func NewCharacterRepository(db *gorm.DB) *GormCharacters {
	return &GormCharacters{db: db}
}

func (r *GormCharacters) List(ctx context.Context) ([]model.Character, error) {
	chars := []model.Character{}
	if err := r.db.WithContext(ctx).Order("id").Find(&chars).Error; err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return chars, nil
}

func (r *GormCharacters) FindByID(ctx context.Context, id int64) (*model.Character, error) {
	var c model.Character
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "find character %d", id)
	}
	return &c, nil
}

func (r *GormCharacters) Create(ctx context.Context, c *model.Character) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create character: %w", err)
	}
	return nil
}

func (r *GormCharacters) Save(ctx context.Context, c *model.Character) error {
	if err := r.db.WithContext(ctx).Save(c).Error; err != nil {
		return fmt.Errorf("save character %d: %w", c.ID, err)
	}
	return nil
}

func (r *GormCharacters) Delete(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.Character{}, id)
	if res.Error != nil {
		return 0, fmt.Errorf("delete character %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
