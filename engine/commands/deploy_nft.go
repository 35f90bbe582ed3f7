package commands

import (
	"github.com/spf13/cobra"

	"github.com/leftasexercise/ethdeploy/engine/commands/flags"
	"github.com/leftasexercise/ethdeploy/scenario/nftmint"
)

const (
	// nftOwner and nftOwnerKey are the custom account funded by fund-accounts.
	nftOwner    = "0xFC2a2b9A68514E3315f0Bd2a29e900DC1a815a1D"
	nftOwnerKey = "0xc65f2e9b1c360d44070ede41d5e999d30c23657e2c5889d3d03cef39289cea7c"

	localNodeURL = "http://127.0.0.1:8545"
)

var (
	deployNFTShort = "Compile, deploy and mint an NFT contract"

	deployNFTLong = longDesc(`
		Compiles the Solidity source with solc, deploys the selected contract with the base URI as
		constructor argument and mints a range of tokens to the owner. Every minted token is checked
		to be owned by the owner and its token URI is printed.
	`)

	deployNFTExample = examples(`
		# Deploy to a local dev node with the default account
		deploy-nft

		# Deploy another contract of the source and mint tokens 10 to 12
		deploy-nft --source contracts/NFT.sol --contract NFT --first-token 10 --last-token 12

		# Sign with an account unlocked on the node and keep the reports
		deploy-nft --signer node --owner 0xd489f87665ed713E602290BE7c01269Fc129f4Ea --report reports.json
	`)
)

type deployNFTFlags struct {
	source     string
	contract   string
	baseURI    string
	gas        uint64
	mintGas    uint64
	firstToken uint64
	lastToken  uint64
}

// newDeployNFTCmd creates the deploy-nft command.
func newDeployNFTCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deploy-nft",
		Short:        deployNFTShort,
		Long:         deployNFTLong,
		Example:      deployNFTExample,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := deployNFTFlags{
				source:     flags.MustString(cmd.Flags().GetString("source")),
				contract:   flags.MustString(cmd.Flags().GetString("contract")),
				baseURI:    flags.MustString(cmd.Flags().GetString("base-uri")),
				gas:        flags.MustUint64(cmd.Flags().GetUint64("gas")),
				mintGas:    flags.MustUint64(cmd.Flags().GetUint64("mint-gas")),
				firstToken: flags.MustUint64(cmd.Flags().GetUint64("first-token")),
				lastToken:  flags.MustUint64(cmd.Flags().GetUint64("last-token")),
			}

			return run(cmd, cfg, func(s *session) error {
				return runDeployNFT(s, f)
			})
		},
	}

	// Shared flags
	flags.Common(cmd)
	flags.Node(cmd, localNodeURL)
	flags.Signer(cmd, flags.SignerDefaults{Strategy: "local", Owner: nftOwner, Key: nftOwnerKey})
	flags.Gas(cmd, nftmint.DefaultGasLimit)

	// Local flags specific to this command
	cmd.Flags().String("source", nftmint.DefaultSource, "Solidity source file")
	cmd.Flags().String("contract", nftmint.DefaultContract, "Contract of the source to deploy")
	cmd.Flags().String("base-uri", nftmint.DefaultBaseURI, "Base URI of the token URIs")
	cmd.Flags().Uint64("mint-gas", nftmint.DefaultMintGasLimit, "Gas limit of every mint")
	cmd.Flags().Uint64("first-token", nftmint.DefaultFirstToken, "First token ID to mint")
	cmd.Flags().Uint64("last-token", nftmint.DefaultLastToken, "Last token ID to mint")

	return cmd
}

// runDeployNFT executes the deploy-nft scenario.
func runDeployNFT(s *session, f deployNFTFlags) error {
	sender, err := s.sender()
	if err != nil {
		return err
	}

	result, err := nftmint.Run(s.env, sender, nftmint.Config{
		Source:       f.source,
		Contract:     f.contract,
		Owner:        sender.Address(),
		BaseURI:      f.baseURI,
		GasLimit:     f.gas,
		MintGasLimit: f.mintGas,
		FirstToken:   f.firstToken,
		LastToken:    f.lastToken,
	})
	if err != nil {
		return err
	}

	s.lggr.Infow("Minted tokens", "contract", result.Address.Hex(), "tokens", len(result.Tokens))

	return nil
}
