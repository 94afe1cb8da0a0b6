package game

import (
	"github.com/google/uuid"

	"monopoly/server/internal/models"
)

// fieldSpec is one template cell. The board template is immutable; BuildBoard
// stamps per-game copies out of it.
type fieldSpec struct {
	name        string
	price       int64
	branchPrice int64
	income      []int64
	toPay       int64
	secret      bool
	group       string
	large       bool
}

func property(name, group string, price int64) fieldSpec {
	base := price / 10
	return fieldSpec{
		name:        name,
		price:       price,
		branchPrice: price / 2,
		income:      []int64{base, base * 5, base * 15, base * 40, base * 60, base * 80},
		group:       group,
	}
}

func railroad(name string) fieldSpec {
	return fieldSpec{
		name:   name,
		price:  2000,
		income: []int64{500},
		group:  "rail",
	}
}

func utility(name string) fieldSpec {
	return fieldSpec{
		name:   name,
		price:  1500,
		income: []int64{400},
		group:  "utility",
	}
}

func secretField(name string) fieldSpec {
	return fieldSpec{name: name, secret: true}
}

func taxField(name string, toPay int64) fieldSpec {
	return fieldSpec{name: name, toPay: toPay}
}

func corner(name string) fieldSpec {
	return fieldSpec{name: name, large: true}
}

// boardTemplate lays out the 40 cells in landing order starting from Start.
var boardTemplate = []fieldSpec{
	corner("Start"),
	property("Old Mill Road", "brown", 600),
	secretField("Secret"),
	property("Baker Street", "brown", 600),
	taxField("Income Tax", 2000),
	railroad("North Station"),
	property("Harbor Lane", "lightblue", 1000),
	secretField("Secret"),
	property("Dock Street", "lightblue", 1000),
	property("Lighthouse Avenue", "lightblue", 1200),
	corner("Prison"),
	property("Market Square", "pink", 1400),
	utility("Power Plant"),
	property("Cannery Row", "pink", 1400),
	property("Foundry Street", "pink", 1600),
	railroad("East Station"),
	property("Theatre Boulevard", "orange", 1800),
	secretField("Secret"),
	property("Opera Lane", "orange", 1800),
	property("Gallery Street", "orange", 2000),
	corner("Parking"),
	property("University Drive", "red", 2200),
	secretField("Secret"),
	property("Library Row", "red", 2200),
	property("Observatory Hill", "red", 2400),
	railroad("South Station"),
	property("Grand Avenue", "yellow", 2600),
	property("Victory Street", "yellow", 2600),
	utility("Waterworks"),
	property("Sunset Boulevard", "yellow", 2800),
	corner("Casino"),
	property("Park Place West", "green", 3000),
	property("Park Place East", "green", 3000),
	secretField("Secret"),
	property("Royal Gardens", "green", 3200),
	railroad("West Station"),
	secretField("Secret"),
	property("Embassy Row", "blue", 3500),
	taxField("Luxury Tax", 1000),
	property("Palace Square", "blue", 4000),
}

// BuildBoard stamps a fresh field set for the game out of the template.
func BuildBoard(gameID uuid.UUID) []*models.Field {
	fields := make([]*models.Field, 0, len(boardTemplate))
	for i, spec := range boardTemplate {
		income := make([]int64, len(spec.income))
		copy(income, spec.income)
		fields = append(fields, &models.Field{
			ID:          uuid.New(),
			GameID:      gameID,
			Index:       i,
			Name:        spec.name,
			Price:       spec.price,
			BranchPrice: spec.branchPrice,
			Income:      income,
			ToPay:       spec.toPay,
			Secret:      spec.secret,
			Group:       spec.group,
			Large:       spec.large,
		})
	}
	return fields
}
