package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type seedRegion struct {
	ID         uuid.UUID
	Name       string
	Desc       string
	TaxRate    string
	Safety     int32
	Prosperity int32
}

type seedItem struct {
	Name       string
	Category   string
	BasePrice  string
	Weight     int32
	Perishable bool
	Rarity     ItemRarity
	Desc       string
}

var seedRegions = []seedRegion{
	{DefaultRegionID, "The Hub", "Central crossroads where every dynasty begins.", "5.0", 80, 70},
	{uuid.MustParse("a1c2e3f4-0b1d-4c2e-8f3a-9b8c7d6e5f40"), "Northern Reaches", "Cold mining country, heavy on ore and furs.", "3.5", 55, 45},
	{uuid.MustParse("b2d3f4a5-1c2e-4d3f-9a4b-0c9d8e7f6a51"), "Sunward Coast", "Busy port lanes with steep harbor duties.", "8.0", 70, 85},
	{uuid.MustParse("c3e4a5b6-2d3f-4e4a-ab5c-1d0e9f8a7b62"), "The Verdant Vale", "Farmland that feeds half the realm.", "4.0", 75, 60},
	{uuid.MustParse("d4f5b6c7-3e4a-4f5b-bc6d-2e1f0a9b8c73"), "Ashen Frontier", "Lawless edge country, cheap taxes, risky roads.", "1.5", 25, 30},
}

var seedItems = []seedItem{
	{"Wheat", "food", "1.20", 2, true, RarityCommon, "Staple grain traded in bulk."},
	{"Salt", "food", "2.50", 1, false, RarityCommon, "Preservative worth its weight on long hauls."},
	{"Wool", "textile", "3.00", 3, false, RarityCommon, "Raw fleece from the northern flocks."},
	{"Wine", "food", "8.00", 4, true, RarityUncommon, "Vale vintages improve with every border crossed."},
	{"Iron Tools", "craft", "12.00", 8, false, RarityUncommon, "Smithed implements every homestead needs."},
	{"Books", "luxury", "25.00", 2, false, RarityRare, "Hand-copied volumes prized by scholars."},
	{"Spices", "food", "60.00", 1, false, RarityRare, "Coastal imports that fetch a premium inland."},
	{"Silk", "textile", "85.00", 1, false, RarityRare, "Fine cloth for courts and ceremonies."},
	{"Jewelry", "luxury", "240.00", 1, false, RarityEpic, "Worked gold and gemstones, an estate staple."},
	{"Warhorse", "livestock", "400.00", 50, false, RarityEpic, "Bred for campaigns, sold for fortunes."},
	{"Ancient Relic", "luxury", "950.00", 5, false, RarityLegendary, "Recovered from ruins older than any dynasty."},
}

// SeedDefaults populates regions and the item catalog on first boot. Safe to
// call on every startup.
func (s *Service) SeedDefaults(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM regions`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range seedRegions {
		taxRate, err := decimal.NewFromString(r.TaxRate)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO regions (id, name, description, tax_rate, treasury, safety_level, prosperity_level)
			VALUES ($1, $2, $3, $4, 0, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, r.ID, r.Name, r.Desc, taxRate, r.Safety, r.Prosperity)
		if err != nil {
			return err
		}
	}

	for _, it := range seedItems {
		basePrice, err := decimal.NewFromString(it.BasePrice)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO items (id, name, category, base_price, weight, perishable, rarity, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (name) DO NOTHING
		`, uuid.New(), it.Name, it.Category, basePrice, it.Weight, it.Perishable, it.Rarity, it.Desc)
		if err != nil {
			return err
		}
	}

	s.log.Info("seeded defaults", "regions", len(seedRegions), "items", len(seedItems))
	return tx.Commit(ctx)
}
