package engine

import (
	"fmt"
	"strings"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

const (
	bareHands      = "bare hands"
	tagConsumable  = "consumable"
	tagPotion      = "potion"
	purchaseSuffix = "_shop_"
)

func isEquippable(item entities.ItemInstance) bool {
	return item.HasTag(entities.TagWeapon) || item.HasTag(entities.TagArmor)
}

func isConsumable(item entities.ItemInstance) bool {
	return item.HasTag(tagConsumable) || item.HasTag(tagPotion) || !isEquippable(item)
}

// selectWeapon prefers the equipped weapon, then the first carried one.
func selectWeapon(actor *entities.Entity) (string, int) {
	if item, ok := actor.EquippedWeapon(); ok && item.HasTag(entities.TagWeapon) {
		return item.Name, world.WeaponPowerForTier(item.Tags)
	}
	for _, item := range actor.Inventory {
		if item.HasTag(entities.TagWeapon) {
			return item.Name, world.WeaponPowerForTier(item.Tags)
		}
	}
	return bareHands, 1
}

// lootIndex is the item a thief takes: the first loot-tagged one, else the
// first unequipped one.
func lootIndex(target *entities.Entity) int {
	for i, item := range target.Inventory {
		if item.HasTag(entities.TagLoot) {
			return i
		}
	}
	for i, item := range target.Inventory {
		if item.ItemID != target.EquippedWeaponItemID {
			return i
		}
	}
	return -1
}

func currencyCount(actor *entities.Entity) int {
	n := 0
	for _, item := range actor.Inventory {
		if item.HasTag(entities.TagCurrency) {
			n++
		}
	}
	return n
}

// consumeCurrency removes up to amount currency items. Nothing is removed
// unless the full amount is carried.
func consumeCurrency(actor *entities.Entity, amount int) (int, bool) {
	if currencyCount(actor) < amount {
		return 0, false
	}
	spent := 0
	for spent < amount {
		for i, item := range actor.Inventory {
			if item.HasTag(entities.TagCurrency) {
				actor.RemoveItem(i)
				spent++
				break
			}
		}
	}
	return spent, true
}

func (e *Engine) purchasedItem(def content.ItemDefinition) entities.ItemInstance {
	rarity := entities.RarityCommon
	for _, tag := range def.Tags {
		if containsString(e.catalog.Items.RarityTiers, tag) {
			rarity = tag
			break
		}
	}
	id := fmt.Sprintf("%s%s%d", def.ItemID, purchaseSuffix, e.state.TurnIndex)
	return entities.ItemInstance{
		ItemID:      id,
		Name:        strings.ReplaceAll(id, "_", " "),
		Rarity:      rarity,
		Description: fmt.Sprintf("Rune Forge purchase: %s.", def.ItemID),
		Tags:        append([]string(nil), def.Tags...),
		TraitDelta:  def.VectorDelta.Clone(),
	}
}
