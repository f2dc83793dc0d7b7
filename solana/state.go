package valtoken_protocol

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Account kind tags, stored as the first byte of every program account.
const (
	Account_Config uint8 = 1
	Account_Uris   uint8 = 2
)

// ConfigState is the decoded config account of a validator program.
type ConfigState struct {
	SchemaVersion uint8               `json:"schemaVersion"`
	Authority     solana.PublicKey    `json:"authority"`
	Identity      solana.PublicKey    `json:"identity"`
	VoteAccount   solana.PublicKey    `json:"voteAccount"`
	Commission    uint8               `json:"commission"`
	Supply        [RarityCount]uint32 `json:"supply"`
	Minted        [RarityCount]uint32 `json:"minted"`
	Uploaded      [RarityCount]uint32 `json:"uploaded"`
	MintPrice     uint64              `json:"mintPrice"`
	Name          string              `json:"name"`
}

func (s *ConfigState) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	kind, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	if kind != Account_Config {
		return fmt.Errorf("%w: kind %d is not a config account", ErrInvalidAccountData, kind)
	}
	if s.SchemaVersion, err = dec.ReadUint8(); err != nil {
		return err
	}
	for _, key := range []*solana.PublicKey{&s.Authority, &s.Identity, &s.VoteAccount} {
		if *key, err = readPublicKey(dec); err != nil {
			return err
		}
	}
	if s.Commission, err = dec.ReadUint8(); err != nil {
		return err
	}
	for _, arr := range []*[RarityCount]uint32{&s.Supply, &s.Minted, &s.Uploaded} {
		for i := range arr {
			if arr[i], err = dec.ReadUint32(binary.LittleEndian); err != nil {
				return err
			}
		}
	}
	if s.MintPrice, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	s.Name, err = dec.ReadString()
	return err
}

// ParseConfigState decodes config account data.
func ParseConfigState(data []byte) (*ConfigState, error) {
	state := new(ConfigState)
	if err := state.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		if errors.Is(err, ErrInvalidAccountData) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccountData, err)
	}
	return state, nil
}

// UriStoreHeader is the fixed prefix of a uris account.
type UriStoreHeader struct {
	Address solana.PublicKey `json:"address"`
	Rarity  Rarity           `json:"rarity"`
	Count   uint32           `json:"count"`
}

func parseUriStoreHeader(data []byte) (Rarity, uint32, error) {
	dec := bin.NewBorshDecoder(data)
	kind, err := dec.ReadUint8()
	if err != nil {
		return 0, 0, err
	}
	if kind != Account_Uris {
		return 0, 0, fmt.Errorf("%w: kind %d is not a uris account", ErrInvalidAccountData, kind)
	}
	rarity, err := dec.ReadUint8()
	if err != nil {
		return 0, 0, err
	}
	if !Rarity(rarity).Valid() {
		return 0, 0, fmt.Errorf("%w: rarity %d", ErrInvalidAccountData, rarity)
	}
	count, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return 0, 0, err
	}
	return Rarity(rarity), count, nil
}

// FetchUriAccounts lists the uris accounts owned by programID.
func (c *Client) FetchUriAccounts(ctx context.Context, programID solana.PublicKey) ([]UriStoreHeader, error) {
	resp, err := c.RpcClient.GetProgramAccountsWithOpts(
		ctx,
		programID,
		&rpc.GetProgramAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Filters: []rpc.RPCFilter{
				{
					Memcmp: &rpc.RPCFilterMemcmp{
						Offset: 0,
						Bytes:  solana.Base58([]byte{Account_Uris}),
					},
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get program accounts: %w", err)
	}

	var headers []UriStoreHeader
	for _, item := range resp {
		if item == nil || item.Account == nil {
			continue
		}
		rarity, count, err := parseUriStoreHeader(item.Account.Data.GetBinary())
		if err != nil {
			c.logger.Warn("failed to parse uris account", zap.Stringer("account", item.Pubkey), zap.Error(err))
			continue
		}
		headers = append(headers, UriStoreHeader{Address: item.Pubkey, Rarity: rarity, Count: count})
	}
	return headers, nil
}
