// Package synthetic generates realistic transaction histories for
// demos, seeding, and training bootstrap.
package synthetic

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ledgercast/ledgercast/internal/model"
)

// template pairs a merchant description with a plausible amount range.
type template struct {
	description string
	category    string
	minAmount   float64
	maxAmount   float64
}

var templates = []template{
	{"Grocery Store", "Groceries", 18, 120},
	{"Supermarket Run", "Groceries", 25, 90},
	{"Coffee Shop", "Food & Dining", 4, 12},
	{"Lunch Takeout", "Food & Dining", 9, 25},
	{"Restaurant Dinner", "Food & Dining", 30, 110},
	{"Ride Share", "Transportation", 8, 40},
	{"Fuel Station", "Transportation", 35, 75},
	{"Transit Pass", "Transportation", 2, 6},
	{"Online Shopping", "Shopping", 15, 200},
	{"Streaming Subscription", "Entertainment", 9, 20},
	{"Cinema Tickets", "Entertainment", 12, 45},
	{"Pharmacy", "Healthcare", 8, 60},
	{"Gym Membership", "Healthcare", 30, 50},
	{"Utility Bill", "Utilities", 40, 160},
	{"Mobile Recharge", "Utilities", 10, 30},
}

// Weekend spending runs noticeably higher than weekdays, which gives
// the day-of-week fallback something real to learn.
var weekdayMultipliers = [7]float64{1.2, 1.0, 0.9, 0.9, 0.9, 0.95, 1.15}

// Config controls generation.
type Config struct {
	OwnerID    string
	Start      time.Time
	Days       int
	MeanPerDay float64 // average number of transactions per day
	Seed       int64
}

// Generate produces a deterministic synthetic transaction history.
// Spending follows a weekly pattern with occasional quiet days so the
// aggregated series has realistic gaps and variance.
func Generate(cfg Config) []model.Transaction {
	if cfg.Days <= 0 {
		cfg.Days = 90
	}
	if cfg.MeanPerDay <= 0 {
		cfg.MeanPerDay = 2.5
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	idSpace := uuid.NewSHA1(uuid.NameSpaceOID, []byte(cfg.OwnerID))

	start := cfg.Start
	if start.IsZero() {
		start = time.Now().UTC().AddDate(0, 0, -cfg.Days)
	}
	start = start.UTC().Truncate(24 * time.Hour)

	var transactions []model.Transaction
	seq := 0
	for day := 0; day < cfg.Days; day++ {
		date := start.AddDate(0, 0, day)

		// Roughly one day in twelve has no spending at all
		if rng.Float64() < 0.08 {
			continue
		}

		multiplier := weekdayMultipliers[date.Weekday()]
		count := 1 + rng.Intn(int(cfg.MeanPerDay*2*multiplier)+1)

		for i := 0; i < count; i++ {
			tmpl := templates[rng.Intn(len(templates))]
			amount := tmpl.minAmount + rng.Float64()*(tmpl.maxAmount-tmpl.minAmount)
			amount *= multiplier

			seq++
			txn := model.Transaction{
				ID:          uuid.NewSHA1(idSpace, []byte{byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq)}).String(),
				OwnerID:     cfg.OwnerID,
				Date:        date.Add(time.Duration(8+rng.Intn(14)) * time.Hour),
				Amount:      float64(int(amount*100)) / 100,
				Category:    tmpl.category,
				Description: tmpl.description,
			}
			txn.Hash = txn.GenerateHash()
			transactions = append(transactions, txn)
		}
	}

	return transactions
}
