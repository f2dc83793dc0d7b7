package valtoken_protocol

import (
	"fmt"
	"strings"
)

// Rarity is the tier of a validator NFT. Its value is the on-chain tag.
type Rarity uint8

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

// RarityCount is the number of rarity tiers.
const RarityCount = 5

var rarityNames = [RarityCount]string{"common", "uncommon", "rare", "epic", "legendary"}

// Rarities returns every tier in tag order.
func Rarities() []Rarity {
	return []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}
}

func (r Rarity) Valid() bool {
	return r < RarityCount
}

func (r Rarity) String() string {
	if !r.Valid() {
		return fmt.Sprintf("rarity(%d)", uint8(r))
	}
	return rarityNames[r]
}

// ParseRarity parses a tier name, ignoring case.
func ParseRarity(s string) (Rarity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range rarityNames {
		if n == name {
			return Rarity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRarity, s)
}

// MarshalText lets rarities key JSON and YAML maps by name.
func (r Rarity) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRarity, r)
	}
	return []byte(r.String()), nil
}

func (r *Rarity) UnmarshalText(text []byte) error {
	parsed, err := ParseRarity(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
