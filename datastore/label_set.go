package datastore

import (
	"encoding/json"
	"slices"
	"strings"
)

// LabelSet is a set of labels attached to an address book entry, e.g. "nft" or "call-chain". The
// labels are kept sorted and free of duplicates. The zero value is an empty set.
type LabelSet struct {
	labels []string
}

// NewLabelSet returns a set holding the given labels.
func NewLabelSet(labels ...string) LabelSet {
	var s LabelSet
	s.Add(labels...)

	return s
}

// Add inserts labels that are not yet part of the set.
func (s *LabelSet) Add(labels ...string) {
	for _, l := range labels {
		if i, found := slices.BinarySearch(s.labels, l); !found {
			s.labels = slices.Insert(s.labels, i, l)
		}
	}
}

func (s LabelSet) String() string {
	return strings.Join(s.labels, " ")
}

func (s LabelSet) Clone() LabelSet {
	return LabelSet{labels: slices.Clone(s.labels)}
}

// MarshalJSON encodes the set as a sorted array, an empty set as [].
func (s LabelSet) MarshalJSON() ([]byte, error) {
	if len(s.labels) == 0 {
		return []byte("[]"), nil
	}

	return json.Marshal(s.labels)
}

func (s *LabelSet) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	*s = NewLabelSet(labels...)

	return nil
}
