package datastore

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAddressRefNotFound = errors.New("no address ref found")
	ErrAddressRefExists   = errors.New("an address ref with the supplied address already exists")
)

// AddressRef records a contract deployed during a run.
type AddressRef struct {
	// Contract is the name of the contract as compiled, e.g. "NFT" or "Echo".
	Contract    string         `json:"contract"`
	Address     common.Address `json:"address"`
	TxHash      common.Hash    `json:"txHash"`
	BlockNumber uint64         `json:"blockNumber"`
	GasUsed     uint64         `json:"gasUsed"`
	Labels      LabelSet       `json:"labels"`
}

// Clone creates a copy of the AddressRef.
func (r AddressRef) Clone() AddressRef {
	r.Labels = r.Labels.Clone()

	return r
}
