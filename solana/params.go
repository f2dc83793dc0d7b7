package valtoken_protocol

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Collection describes the collection NFT created by Init.
type Collection struct {
	Name   string `json:"name" yaml:"name"`
	Symbol string `json:"symbol" yaml:"symbol"`
	Uri    string `json:"uri" yaml:"uri"`
}

// RegistrationParams are the caller-supplied inputs of a validator registration.
type RegistrationParams struct {
	Name       string              `json:"name" yaml:"name"`
	Commission uint8               `json:"commission" yaml:"commission"`
	MintPrice  uint64              `json:"mintPrice" yaml:"mint_price"`
	Supply     map[Rarity]uint32   `json:"supply" yaml:"supply"`
	Collection Collection          `json:"collection" yaml:"collection"`
	Uris       map[Rarity][]string `json:"uris" yaml:"uris"`
}

// Validate checks the params against the program's limits.
func (p *RegistrationParams) Validate() error {
	if p.Name == "" || len(p.Name) > MaxNameLength {
		return fmt.Errorf("%w: name must be 1..%d bytes", ErrInvalidParams, MaxNameLength)
	}
	if p.Commission > MaxCommission {
		return fmt.Errorf("%w: commission %d exceeds %d", ErrInvalidParams, p.Commission, MaxCommission)
	}
	if p.Collection.Name == "" || len(p.Collection.Name) > MaxNameLength {
		return fmt.Errorf("%w: collection name must be 1..%d bytes", ErrInvalidParams, MaxNameLength)
	}
	if len(p.Collection.Symbol) > MaxSymbolLength {
		return fmt.Errorf("%w: collection symbol exceeds %d bytes", ErrInvalidParams, MaxSymbolLength)
	}
	if p.Collection.Uri == "" || len(p.Collection.Uri) > MaxUriLength {
		return fmt.Errorf("%w: collection uri must be 1..%d bytes", ErrInvalidParams, MaxUriLength)
	}
	for rarity, supply := range p.Supply {
		if !rarity.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidRarity, rarity)
		}
		if uint32(len(p.Uris[rarity])) > supply {
			return fmt.Errorf("%w: %d %s uris exceed supply %d", ErrInvalidParams, len(p.Uris[rarity]), rarity, supply)
		}
	}
	for rarity, uris := range p.Uris {
		if !rarity.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidRarity, rarity)
		}
		if _, ok := p.Supply[rarity]; !ok && len(uris) > 0 {
			return fmt.Errorf("%w: %s has uris but no supply", ErrInvalidParams, rarity)
		}
		for i, uri := range uris {
			if uri == "" || len(uri) > MaxUriLength {
				return fmt.Errorf("%w: %s uri #%d must be 1..%d bytes", ErrInvalidParams, rarity, i, MaxUriLength)
			}
		}
	}
	return nil
}

// InitArgs maps the params onto the Init payload.
func (p *RegistrationParams) InitArgs(identity, voteAccount solana.PublicKey) *InitArgs {
	args := &InitArgs{
		SchemaVersion:    SchemaVersion,
		Name:             p.Name,
		Commission:       p.Commission,
		Identity:         identity,
		VoteAccount:      voteAccount,
		MintPrice:        p.MintPrice,
		CollectionName:   p.Collection.Name,
		CollectionSymbol: p.Collection.Symbol,
		CollectionUri:    p.Collection.Uri,
	}
	for rarity, supply := range p.Supply {
		if rarity.Valid() {
			args.Supply[rarity] = supply
		}
	}
	return args
}
