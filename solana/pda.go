package valtoken_protocol

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

var (
	seedConfig            = []byte("config")
	seedMintAuthority     = []byte("mint_authority")
	seedCollectionMint    = []byte("collection_mint")
	seedTreasury          = []byte("treasury")
	seedVoteAuthority     = []byte("vote_authority")
	seedWithdrawAuthority = []byte("withdraw_authority")
	seedGovernance        = []byte("governance")
	seedProposalCounter   = []byte("proposal_counter")
	seedUris              = []byte("uris")

	seedMetadata = []byte("metadata")
	seedEdition  = []byte("edition")
)

// Deriver computes the program-derived addresses of a single validator program.
type Deriver struct {
	ProgramID solana.PublicKey
}

// NewDeriver returns a Deriver bound to programID.
func NewDeriver(programID solana.PublicKey) *Deriver {
	return &Deriver{ProgramID: programID}
}

func (d *Deriver) find(seeds ...[]byte) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(seeds, d.ProgramID)
}

// GetConfigPDA returns the PDA of the validator's configuration account.
func (d *Deriver) GetConfigPDA() (solana.PublicKey, uint8, error) {
	return d.find(seedConfig)
}

// GetMintAuthorityPDA returns the PDA that signs NFT mints.
func (d *Deriver) GetMintAuthorityPDA() (solana.PublicKey, uint8, error) {
	return d.find(seedMintAuthority)
}

// GetCollectionMintPDA returns the PDA of the collection NFT mint.
func (d *Deriver) GetCollectionMintPDA() (solana.PublicKey, uint8, error) {
	return d.find(seedCollectionMint)
}

func (d *Deriver) GetTreasuryPDA() (solana.PublicKey, uint8, error) {
	return d.find(seedTreasury)
}

func (d *Deriver) GetVoteAuthorityPDA() (solana.PublicKey, uint8, error) {
	return d.find(seedVoteAuthority)
}

// GetWithdrawAuthorityPDA returns the PDA set as the vote account's authorized withdrawer.
func (d *Deriver) GetWithdrawAuthorityPDA() (solana.PublicKey, uint8, error) {
	return d.find(seedWithdrawAuthority)
}

func (d *Deriver) GetGovernancePDA() (solana.PublicKey, uint8, error) {
	return d.find(seedGovernance)
}

func (d *Deriver) GetProposalCounterPDA() (solana.PublicKey, uint8, error) {
	return d.find(seedProposalCounter)
}

// GetUrisPDA returns the PDA storing the metadata URIs of one rarity.
func (d *Deriver) GetUrisPDA(rarity Rarity) (solana.PublicKey, uint8, error) {
	if !rarity.Valid() {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %d", ErrInvalidRarity, rarity)
	}
	return d.find(seedUris, []byte{byte(rarity)})
}

// GetMetadataPDA returns the Metaplex metadata account of mint.
func GetMetadataPDA(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			seedMetadata,
			TokenMetadataProgramID.Bytes(),
			mint.Bytes(),
		},
		TokenMetadataProgramID,
	)
}

// GetMasterEditionPDA returns the Metaplex master edition account of mint.
func GetMasterEditionPDA(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			seedMetadata,
			TokenMetadataProgramID.Bytes(),
			mint.Bytes(),
			seedEdition,
		},
		TokenMetadataProgramID,
	)
}

// DerivedAccount is a named address with its bump seed.
type DerivedAccount struct {
	Name    string           `json:"name"`
	Address solana.PublicKey `json:"address"`
	Bump    uint8            `json:"bump"`
}

// RegistrationAccounts holds every address touched by a registration.
type RegistrationAccounts struct {
	ProgramID               solana.PublicKey
	Config                  DerivedAccount
	MintAuthority           DerivedAccount
	CollectionMint          DerivedAccount
	CollectionMetadata      DerivedAccount
	CollectionMasterEdition DerivedAccount
	CollectionTokenAccount  DerivedAccount
	Treasury                DerivedAccount
	VoteAuthority           DerivedAccount
	WithdrawAuthority       DerivedAccount
	Governance              DerivedAccount
	ProposalCounter         DerivedAccount
	Uris                    [RarityCount]DerivedAccount
}

// DeriveAll computes every registration account for the deriver's program.
func (d *Deriver) DeriveAll() (*RegistrationAccounts, error) {
	accs := &RegistrationAccounts{ProgramID: d.ProgramID}

	fixed := []struct {
		name   string
		target *DerivedAccount
		derive func() (solana.PublicKey, uint8, error)
	}{
		{"config", &accs.Config, d.GetConfigPDA},
		{"mint_authority", &accs.MintAuthority, d.GetMintAuthorityPDA},
		{"collection_mint", &accs.CollectionMint, d.GetCollectionMintPDA},
		{"treasury", &accs.Treasury, d.GetTreasuryPDA},
		{"vote_authority", &accs.VoteAuthority, d.GetVoteAuthorityPDA},
		{"withdraw_authority", &accs.WithdrawAuthority, d.GetWithdrawAuthorityPDA},
		{"governance", &accs.Governance, d.GetGovernancePDA},
		{"proposal_counter", &accs.ProposalCounter, d.GetProposalCounterPDA},
	}
	for _, f := range fixed {
		addr, bump, err := f.derive()
		if err != nil {
			return nil, fmt.Errorf("failed to get %s PDA: %w", f.name, err)
		}
		*f.target = DerivedAccount{Name: f.name, Address: addr, Bump: bump}
	}

	mint := accs.CollectionMint.Address
	metadata, bump, err := GetMetadataPDA(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection metadata PDA: %w", err)
	}
	accs.CollectionMetadata = DerivedAccount{Name: "collection_metadata", Address: metadata, Bump: bump}

	edition, bump, err := GetMasterEditionPDA(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection master edition PDA: %w", err)
	}
	accs.CollectionMasterEdition = DerivedAccount{Name: "collection_master_edition", Address: edition, Bump: bump}

	ata, bump, err := solana.FindAssociatedTokenAddress(accs.MintAuthority.Address, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to find collection token ATA: %w", err)
	}
	accs.CollectionTokenAccount = DerivedAccount{Name: "collection_token_account", Address: ata, Bump: bump}

	for _, rarity := range Rarities() {
		addr, bump, err := d.GetUrisPDA(rarity)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s uris PDA: %w", rarity, err)
		}
		accs.Uris[rarity] = DerivedAccount{Name: "uris_" + rarity.String(), Address: addr, Bump: bump}
	}

	return accs, nil
}

// List returns all derived accounts in a stable order.
func (a *RegistrationAccounts) List() []DerivedAccount {
	out := []DerivedAccount{
		a.Config,
		a.MintAuthority,
		a.CollectionMint,
		a.CollectionMetadata,
		a.CollectionMasterEdition,
		a.CollectionTokenAccount,
		a.Treasury,
		a.VoteAuthority,
		a.WithdrawAuthority,
		a.Governance,
		a.ProposalCounter,
	}
	return append(out, a.Uris[:]...)
}
