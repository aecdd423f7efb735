package inventory_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kasuganosora/magicitems/cache"
	"github.com/kasuganosora/magicitems/inventory"
	"github.com/kasuganosora/magicitems/model"
	"github.com/kasuganosora/magicitems/repository"
	"github.com/kasuganosora/magicitems/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	items *inventory.ItemService
	chars *inventory.CharacterService
	cache cache.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := testutil.NopLogger()
	itemRepo := repository.NewItemRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	stats := inventory.NewStatsCache(c, time.Minute, logger)
	return &fixture{
		items: inventory.NewItemService(itemRepo, charRepo, stats, logger),
		chars: inventory.NewCharacterService(charRepo, itemRepo, stats, logger),
		cache: c,
	}
}

func (f *fixture) character(t *testing.T, name string) *model.Character {
	t.Helper()
	c, err := f.chars.Create(context.Background(), &model.Character{
		Name: name, AdventurerName: name + " the Brave", Class: model.ClassWarrior, Attack: 10, Defense: 5,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) item(t *testing.T, typ model.ItemType, atk, def int) *model.MagicItem {
	t.Helper()
	it, err := f.items.Create(context.Background(), &model.MagicItem{Type: typ, Attack: atk, Defense: def})
	require.NoError(t, err)
	return it
}

func TestCreateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, err := f.items.Create(ctx, &model.MagicItem{Name: "Fang", Attack: 5, Defense: 0, Type: model.ItemWeapon})
	require.NoError(t, err)
	assert.Greater(t, it.ID, int64(0))
	assert.Nil(t, it.CharacterID)

	got, err := f.items.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fang", got.Name)
}

func TestCreateItem_IgnoresClientOwnerAndID(t *testing.T) {
	f := newFixture(t)
	hero := f.character(t, "Hero")

	it, err := f.items.Create(context.Background(), &model.MagicItem{
		ID: 999, Attack: 1, Type: model.ItemWeapon, CharacterID: &hero.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, int64(999), it.ID)
	assert.Nil(t, it.CharacterID)
}

func TestCreateItem_RejectedBeforeWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.items.Create(ctx, &model.MagicItem{Attack: 0, Defense: 0, Type: model.ItemWeapon})
	var verr *inventory.ValidationError
	require.ErrorAs(t, err, &verr)

	all, err := f.items.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetItem_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.items.Get(context.Background(), 42)
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestAssignAndListByCharacter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	sword := f.item(t, model.ItemWeapon, 5, 0)

	require.NoError(t, f.items.Assign(ctx, sword.ID, hero.ID))

	owned, err := f.items.ListByCharacter(ctx, hero.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, sword.ID, owned[0].ID)
}

func TestAssign_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	sword := f.item(t, model.ItemWeapon, 5, 0)

	assert.ErrorIs(t, f.items.Assign(ctx, 9999, hero.ID), inventory.ErrItemNotFound)
	assert.ErrorIs(t, f.items.Assign(ctx, sword.ID, 9999), inventory.ErrCharacterNotFound)
}

func TestAssign_WeaponRejectedWhenAmuletHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	amulet := f.item(t, model.ItemAmulet, 2, 2)
	sword := f.item(t, model.ItemWeapon, 5, 0)
	require.NoError(t, f.items.Assign(ctx, amulet.ID, hero.ID))

	err := f.items.Assign(ctx, sword.ID, hero.ID)
	assert.ErrorIs(t, err, inventory.ErrWeaponAmuletConflict)
	assert.ErrorIs(t, err, inventory.ErrConflict)

	got, err := f.items.Get(ctx, sword.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CharacterID, "rejected weapon must stay unassigned")
}

func TestAssign_RejectionKeepsPreviousOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.character(t, "First")
	second := f.character(t, "Second")
	sword := f.item(t, model.ItemWeapon, 5, 0)
	amulet := f.item(t, model.ItemAmulet, 1, 1)
	require.NoError(t, f.items.Assign(ctx, sword.ID, first.ID))
	require.NoError(t, f.items.Assign(ctx, amulet.ID, second.ID))

	require.ErrorIs(t, f.items.Assign(ctx, sword.ID, second.ID), inventory.ErrWeaponAmuletConflict)

	got, err := f.items.Get(ctx, sword.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CharacterID)
	assert.Equal(t, first.ID, *got.CharacterID)
}

func TestAssign_AmuletAfterWeaponAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	sword := f.item(t, model.ItemWeapon, 5, 0)
	amulet := f.item(t, model.ItemAmulet, 2, 2)

	require.NoError(t, f.items.Assign(ctx, sword.ID, hero.ID))
	require.NoError(t, f.items.Assign(ctx, amulet.ID, hero.ID))

	owned, err := f.items.ListByCharacter(ctx, hero.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestAssign_MovesBetweenCharacters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.character(t, "A")
	b := f.character(t, "B")
	plate := f.item(t, model.ItemArmor, 0, 4)

	require.NoError(t, f.items.Assign(ctx, plate.ID, a.ID))
	require.NoError(t, f.items.Assign(ctx, plate.ID, b.ID))

	ownedA, err := f.items.ListByCharacter(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ownedA)
	ownedB, err := f.items.ListByCharacter(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, ownedB, 1)
}

func TestUnassign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	plate := f.item(t, model.ItemArmor, 0, 4)
	require.NoError(t, f.items.Assign(ctx, plate.ID, hero.ID))

	require.NoError(t, f.items.Unassign(ctx, plate.ID))

	owned, err := f.items.ListByCharacter(ctx, hero.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)

	// Already loose: still fine.
	require.NoError(t, f.items.Unassign(ctx, plate.ID))
	assert.ErrorIs(t, f.items.Unassign(ctx, 9999), inventory.ErrItemNotFound)
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	plate := f.item(t, model.ItemArmor, 0, 4)
	loose := f.item(t, model.ItemAmulet, 1, 0)
	require.NoError(t, f.items.Assign(ctx, plate.ID, hero.ID))

	require.NoError(t, f.items.Delete(ctx, plate.ID))
	require.NoError(t, f.items.Delete(ctx, loose.ID))

	_, err := f.items.Get(ctx, plate.ID)
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
	assert.ErrorIs(t, f.items.Delete(ctx, plate.ID), inventory.ErrItemNotFound)
}

func TestAmuletFor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	plate := f.item(t, model.ItemArmor, 0, 4)
	require.NoError(t, f.items.Assign(ctx, plate.ID, hero.ID))

	_, err := f.items.AmuletFor(ctx, hero.ID)
	assert.ErrorIs(t, err, inventory.ErrAmuletNotFound)

	first := f.item(t, model.ItemAmulet, 1, 1)
	second := f.item(t, model.ItemAmulet, 2, 2)
	require.NoError(t, f.items.Assign(ctx, second.ID, hero.ID))
	require.NoError(t, f.items.Assign(ctx, first.ID, hero.ID))

	got, err := f.items.AmuletFor(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "lowest id amulet comes first")

	_, err = f.items.AmuletFor(ctx, 9999)
	assert.ErrorIs(t, err, inventory.ErrCharacterNotFound)
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, model.ItemAmulet, 1, 1)

	got, err := f.items.Update(ctx, it.ID, &model.MagicItem{Name: "Star", Attack: 0, Defense: 9, Type: model.ItemArmor})
	require.NoError(t, err)
	assert.Equal(t, "Star", got.Name)
	assert.Equal(t, model.ItemArmor, got.Type)

	_, err = f.items.Update(ctx, it.ID, &model.MagicItem{Attack: 3, Defense: 9, Type: model.ItemArmor})
	var verr *inventory.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.items.Update(ctx, 9999, &model.MagicItem{Attack: 1, Type: model.ItemWeapon})
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
}

func TestUpdateItem_WeaponNextToAmuletRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	amulet := f.item(t, model.ItemAmulet, 1, 1)
	plate := f.item(t, model.ItemArmor, 0, 3)
	require.NoError(t, f.items.Assign(ctx, amulet.ID, hero.ID))
	require.NoError(t, f.items.Assign(ctx, plate.ID, hero.ID))

	_, err := f.items.Update(ctx, plate.ID, &model.MagicItem{Attack: 4, Type: model.ItemWeapon})
	assert.ErrorIs(t, err, inventory.ErrWeaponAmuletConflict)

	got, err := f.items.Get(ctx, plate.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemArmor, got.Type)

	// The amulet itself may turn into a weapon: no other amulet remains.
	_, err = f.items.Update(ctx, amulet.ID, &model.MagicItem{Attack: 4, Type: model.ItemWeapon})
	assert.NoError(t, err)
}

func TestCharacterGetIncludesItemsAndTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero") // 10 / 5
	sword := f.item(t, model.ItemWeapon, 5, 0)
	plate := f.item(t, model.ItemArmor, 0, 7)
	require.NoError(t, f.items.Assign(ctx, sword.ID, hero.ID))
	require.NoError(t, f.items.Assign(ctx, plate.ID, hero.ID))

	got, err := f.chars.Get(ctx, hero.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, 15, got.TotalAttack())
	assert.Equal(t, 12, got.TotalDefense())
}

func TestCharacterCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.chars.Create(ctx, &model.Character{Name: "Nox", AdventurerName: "Nox", Class: model.ClassRogue})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Level)
	assert.NotNil(t, c.Items)

	_, err = f.chars.Create(ctx, &model.Character{Name: "Nox", AdventurerName: "Nox", Class: "NINJA"})
	var verr *inventory.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCharacterUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")

	got, err := f.chars.Update(ctx, hero.ID, &model.Character{
		Name: "Hero", AdventurerName: "Hero the Elder", Class: model.ClassBard, Level: 7, Attack: 3, Defense: 11,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, got.Defense)

	reloaded, err := f.chars.Get(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClassBard, reloaded.Class)
	assert.Equal(t, 7, reloaded.Level)
	assert.Equal(t, 11, reloaded.Defense)

	_, err = f.chars.Update(ctx, 9999, &model.Character{Name: "x", AdventurerName: "x", Class: model.ClassMage, Level: 1})
	assert.ErrorIs(t, err, inventory.ErrCharacterNotFound)
}

func TestCharacterDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	other := f.character(t, "Other")
	sword := f.item(t, model.ItemWeapon, 5, 0)
	plate := f.item(t, model.ItemArmor, 0, 3)
	kept := f.item(t, model.ItemAmulet, 1, 1)
	require.NoError(t, f.items.Assign(ctx, sword.ID, hero.ID))
	require.NoError(t, f.items.Assign(ctx, plate.ID, hero.ID))
	require.NoError(t, f.items.Assign(ctx, kept.ID, other.ID))

	removed, err := f.chars.Delete(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = f.chars.Get(ctx, hero.ID)
	assert.ErrorIs(t, err, inventory.ErrCharacterNotFound)
	_, err = f.items.Get(ctx, sword.ID)
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
	_, err = f.items.Get(ctx, plate.ID)
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
	_, err = f.items.Get(ctx, kept.ID)
	assert.NoError(t, err)

	_, err = f.chars.Delete(ctx, hero.ID)
	assert.ErrorIs(t, err, inventory.ErrCharacterNotFound)
}

func TestStats_CachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero") // 10 / 5

	st, err := f.chars.Stats(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, st.TotalAttack)
	assert.Equal(t, 0, st.ItemCount)

	ok, err := f.cache.Exists(ctx, "stats:1")
	require.NoError(t, err)
	assert.True(t, ok, "stats are cached after the first read")

	sword := f.item(t, model.ItemWeapon, 5, 0)
	require.NoError(t, f.items.Assign(ctx, sword.ID, hero.ID))

	st, err = f.chars.Stats(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, st.TotalAttack)
	assert.Equal(t, 5, st.TotalDefense)
	assert.Equal(t, 1, st.ItemCount)

	require.NoError(t, f.items.Unassign(ctx, sword.ID))
	st, err = f.chars.Stats(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, st.TotalAttack)

	_, err = f.chars.Stats(ctx, 9999)
	assert.ErrorIs(t, err, inventory.ErrCharacterNotFound)
}

func TestStats_WithoutCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := testutil.NopLogger()
	itemRepo := repository.NewItemRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	chars := inventory.NewCharacterService(charRepo, itemRepo, nil, logger)
	items := inventory.NewItemService(itemRepo, charRepo, nil, logger)
	ctx := context.Background()

	hero, err := chars.Create(ctx, &model.Character{Name: "H", AdventurerName: "H", Class: model.ClassMage, Attack: 1})
	require.NoError(t, err)
	amulet, err := items.Create(ctx, &model.MagicItem{Attack: 2, Defense: 3, Type: model.ItemAmulet})
	require.NoError(t, err)
	require.NoError(t, items.Assign(ctx, amulet.ID, hero.ID))

	st, err := chars.Stats(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalAttack)
	assert.Equal(t, 3, st.TotalDefense)
}

// hookedItems runs after once, the first time a character's items are read.
type hookedItems struct {
	repository.ItemRepository
	after func()
}

func (h *hookedItems) FindByCharacter(ctx context.Context, charID int64) ([]model.MagicItem, error) {
	items, err := h.ItemRepository.FindByCharacter(ctx, charID)
	if h.after != nil {
		fn := h.after
		h.after = nil
		fn()
	}
	return items, err
}

// hookedCache runs after once, right after the first stats entry is written.
type hookedCache struct {
	cache.Cache
	after func()
}

func (h *hookedCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := h.Cache.Set(ctx, key, value, ttl)
	if h.after != nil && strings.HasPrefix(key, "stats:") {
		fn := h.after
		h.after = nil
		fn()
	}
	return err
}

func TestStats_AssignDuringReadIsNotCachedStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := testutil.NopLogger()
	itemRepo := repository.NewItemRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	stats := inventory.NewStatsCache(testutil.SetupTestCache(t), time.Minute, logger)
	items := inventory.NewItemService(itemRepo, charRepo, stats, logger)
	hooked := &hookedItems{ItemRepository: itemRepo}
	chars := inventory.NewCharacterService(charRepo, hooked, stats, logger)
	ctx := context.Background()

	hero, err := chars.Create(ctx, &model.Character{Name: "H", AdventurerName: "H", Class: model.ClassRogue, Attack: 1})
	require.NoError(t, err)
	sword, err := items.Create(ctx, &model.MagicItem{Attack: 5, Type: model.ItemWeapon})
	require.NoError(t, err)

	hooked.after = func() { require.NoError(t, items.Assign(ctx, sword.ID, hero.ID)) }
	st, err := chars.Stats(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalAttack, "read started before the assignment")

	st, err = chars.Stats(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, st.TotalAttack)
	assert.Equal(t, 1, st.ItemCount)
}

func TestStats_InvalidateRightAfterWriteDropsEntry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := testutil.NopLogger()
	itemRepo := repository.NewItemRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	hc := &hookedCache{Cache: testutil.SetupTestCache(t)}
	stats := inventory.NewStatsCache(hc, time.Minute, logger)
	items := inventory.NewItemService(itemRepo, charRepo, stats, logger)
	chars := inventory.NewCharacterService(charRepo, itemRepo, stats, logger)
	ctx := context.Background()

	hero, err := chars.Create(ctx, &model.Character{Name: "H", AdventurerName: "H", Class: model.ClassBard, Attack: 2})
	require.NoError(t, err)
	amulet, err := items.Create(ctx, &model.MagicItem{Attack: 3, Defense: 1, Type: model.ItemAmulet})
	require.NoError(t, err)

	// Simulates an assignment whose invalidation lands between the epoch
	// check and the stats write.
	hc.after = func() {
		require.NoError(t, itemRepo.Save(ctx, &model.MagicItem{
			ID: amulet.ID, Attack: 3, Defense: 1, Type: model.ItemAmulet, CharacterID: &hero.ID,
		}))
		stats.Invalidate(ctx, hero.ID)
	}
	_, err = chars.Stats(ctx, hero.ID)
	require.NoError(t, err)

	st, err := chars.Stats(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, st.TotalAttack)
	assert.Equal(t, 1, st.TotalDefense)
}

func TestAssign_SameOwnerKeepsCachedStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, "Hero")
	shield := f.item(t, model.ItemArmor, 0, 4)
	require.NoError(t, f.items.Assign(ctx, shield.ID, hero.ID))

	st, err := f.chars.Stats(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, st.TotalDefense)

	require.NoError(t, f.items.Assign(ctx, shield.ID, hero.ID))
	ok, err := f.cache.Exists(ctx, fmt.Sprintf("stats:%d", hero.ID))
	require.NoError(t, err)
	assert.True(t, ok, "a no-op assignment leaves the cached stats alone")

	owned, err := f.items.ListByCharacter(ctx, hero.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}
