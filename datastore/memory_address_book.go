package datastore

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// AddressBook is a read-only view over the contracts deployed during a run.
type AddressBook interface {
	Get(contract string) (AddressRef, error)
	Fetch() []AddressRef
}

// MutableAddressBook is an AddressBook that accepts new records.
type MutableAddressBook interface {
	AddressBook
	Add(record AddressRef) error
}

// MemoryAddressBook is an in-memory implementation of MutableAddressBook. Records are kept in the
// order they were added and are lost when the process exits.
type MemoryAddressBook struct {
	mu      sync.RWMutex
	Records []AddressRef `json:"records"`
}

var _ MutableAddressBook = &MemoryAddressBook{}

// NewMemoryAddressBook creates a new MemoryAddressBook instance.
func NewMemoryAddressBook() *MemoryAddressBook {
	return &MemoryAddressBook{Records: []AddressRef{}}
}

// Add inserts a new record. A record with the same address is rejected.
func (s *MemoryAddressBook) Add(record AddressRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(record.Address) != -1 {
		return fmt.Errorf("%s: %w", record.Address.Hex(), ErrAddressRefExists)
	}
	s.Records = append(s.Records, record.Clone())

	return nil
}

// Get returns the most recently added record of the named contract.
func (s *MemoryAddressBook) Get(contract string) (AddressRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.Records) - 1; i >= 0; i-- {
		if s.Records[i].Contract == contract {
			return s.Records[i].Clone(), nil
		}
	}

	return AddressRef{}, fmt.Errorf("contract %s: %w", contract, ErrAddressRefNotFound)
}

// Fetch returns a copy of all records.
func (s *MemoryAddressBook) Fetch() []AddressRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]AddressRef, 0, len(s.Records))
	for _, r := range s.Records {
		records = append(records, r.Clone())
	}

	return records
}

func (s *MemoryAddressBook) indexOf(address common.Address) int {
	for i, r := range s.Records {
		if r.Address == address {
			return i
		}
	}

	return -1
}
