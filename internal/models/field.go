package models

import "github.com/google/uuid"

// MaxBranches is the top construction tier. Tier 5 is the hotel.
const MaxBranches = 5

// Field is one board cell of a specific game. Price zero marks a special,
// non-purchasable field.
type Field struct {
	ID     uuid.UUID `json:"id"`
	GameID uuid.UUID `json:"gameId"`
	Index  int       `json:"index"`
	Name   string    `json:"name"`

	Price int64 `json:"price"`

	// OwnedBy is the owning user id, or uuid.Nil when the bank holds it.
	// Non-nil implies Price > 0.
	OwnedBy uuid.UUID `json:"ownedBy"`

	// AmountOfBranches is 0..5; positive implies owned and not pledged.
	AmountOfBranches int   `json:"amountOfBranches"`
	BranchPrice      int64 `json:"branchPrice"`

	IsPledged       bool `json:"isPledged"`
	TurnsToUnpledge int  `json:"turnsToUnpledge"`

	// Income is the rent table indexed by branch count.
	Income []int64 `json:"income"`

	// ToPay is a fixed bank charge for special fields (tax cells).
	ToPay int64 `json:"toPay"`

	// Secret marks the field as drawing a random secret event on landing.
	Secret bool `json:"secret"`

	// Group names the monopoly set this field belongs to.
	Group string `json:"group"`

	// Large marks a corner field with no landing effect.
	Large bool `json:"large"`
}

// IsSpecial reports whether the field is non-purchasable.
func (f *Field) IsSpecial() bool {
	return f.Price == 0
}

// PledgeValue is the cash payout received for pledging the field.
func (f *Field) PledgeValue() int64 {
	return f.Price / 2
}

// RentAt returns the income for the given branch tier, clamped to the table.
func (f *Field) RentAt(branches int) int64 {
	if len(f.Income) == 0 {
		return 0
	}
	if branches < 0 {
		branches = 0
	}
	if branches >= len(f.Income) {
		branches = len(f.Income) - 1
	}
	return f.Income[branches]
}
