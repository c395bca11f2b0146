package game

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// CharacterStartingAge is applied at creation: characters enter the
	// simulation as adults, not newborns.
	CharacterStartingAge = 18

	// GhostListingTTL is how long an estate listing stays purchasable.
	GhostListingTTL = 7 * 24 * time.Hour

	maxNaturalDeathsPerTick = 10
	maxRandomDeathsPerTick  = 5
)

var (
	// InheritanceTaxRate is the fixed levy on a deceased character's wealth.
	InheritanceTaxRate = decimal.RequireFromString("0.10")

	// GhostPriceRate discounts estate items below base price so they clear.
	GhostPriceRate = decimal.RequireFromString("0.80")

	// GhostPriceModifier marks estate listings back up at purchase time.
	GhostPriceModifier = decimal.RequireFromString("1.20")

	// GhostValueThreshold: items at or below this base price are not worth
	// listing and are discarded with the rest of the estate.
	GhostValueThreshold = decimal.NewFromInt(50)

	// DefaultRegionID is The Hub, the fallback market for characters that
	// die without a recorded location.
	DefaultRegionID = uuid.MustParse("d4f3a1e5-6b7c-4d8e-9f0a-1b2c3d4e5f6a")
)

var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrDuplicateDynasty      = errors.New("user already has an active dynasty")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInsufficientQuantity  = errors.New("insufficient quantity available")
	ErrListingExpired        = errors.New("listing has expired")
	ErrSelfTrade             = errors.New("cannot purchase from yourself")
	ErrInvalidMetric         = errors.New("invalid leaderboard metric")
	ErrInvalidInput          = errors.New("invalid input")
)

type DynastyPerk string

const (
	PerkAncientLineage DynastyPerk = "ancient_lineage" // 5+ generations
	PerkRenowned       DynastyPerk = "renowned"        // 1000+ reputation
	PerkWealthy        DynastyPerk = "wealthy"         // 1M+ wealth
	PerkLegendary      DynastyPerk = "legendary"       // 100+ legacy points
)

type Dynasty struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Name         string          `json:"name"`
	Motto        *string         `json:"motto,omitempty"`
	FoundedAt    time.Time       `json:"founded_at"`
	Generation   int32           `json:"generation"`
	TotalWealth  decimal.Decimal `json:"total_wealth"`
	// Treasury holds funds owned by the dynasty itself rather than any
	// member, such as estates that found no living heir.
	Treasury     decimal.Decimal `json:"treasury"`
	Reputation   int32           `json:"reputation"`
	LegacyPoints int32           `json:"legacy_points"`
	IsActive     bool            `json:"is_active"`
}

// Prestige folds wealth, lineage depth, reputation and legacy into one
// comparable score.
func (d Dynasty) Prestige() int32 {
	wealth := int32(d.TotalWealth.Div(decimal.NewFromInt(10_000)).IntPart())
	return wealth + d.Generation*10 + d.Reputation/10 + d.LegacyPoints
}

func (d Dynasty) Perks() []DynastyPerk {
	var perks []DynastyPerk
	if d.Generation >= 5 {
		perks = append(perks, PerkAncientLineage)
	}
	if d.Reputation >= 1000 {
		perks = append(perks, PerkRenowned)
	}
	if d.TotalWealth.GreaterThan(decimal.NewFromInt(1_000_000)) {
		perks = append(perks, PerkWealthy)
	}
	if d.LegacyPoints >= 100 {
		perks = append(perks, PerkLegendary)
	}
	return perks
}

type Character struct {
	ID                uuid.UUID  `json:"id"`
	DynastyID         uuid.UUID  `json:"dynasty_id"`
	Name              string     `json:"name"`
	BirthDate         time.Time  `json:"birth_date"`
	DeathDate         *time.Time `json:"death_date,omitempty"`
	DeathCause        *string    `json:"death_cause,omitempty"`
	Health            int32      `json:"health"`
	Stamina           int32      `json:"stamina"`
	Charisma          int32      `json:"charisma"`
	Intelligence      int32      `json:"intelligence"`
	Luck              int32      `json:"luck"`
	LocationID        *uuid.UUID `json:"location_id,omitempty"`
	IsAlive           bool       `json:"is_alive"`
	Generation        int32      `json:"generation"`
	ParentCharacterID *uuid.UUID `json:"parent_character_id,omitempty"`
	// Balance is the character's liquid funds. It accumulates inheritance
	// and trade proceeds and is debited on purchases.
	Balance decimal.Decimal `json:"balance"`
}

// Age in whole years, frozen at death.
func (c Character) Age() int32 {
	return c.AgeAt(time.Now().UTC())
}

func (c Character) AgeAt(now time.Time) int32 {
	end := now
	if c.DeathDate != nil {
		end = *c.DeathDate
	}
	days := int32(end.Sub(c.BirthDate).Hours() / 24)
	return days / 365
}

// ApplyAging mutates stats for one tick. intelligenceRoll in [0,1) decides
// the wisdom gain; everything else is deterministic in age.
func (c *Character) ApplyAging(intelligenceRoll float64) {
	age := c.Age()

	if age > 40 {
		loss := int32(math.Min(float64(age-40)*0.1, 2.0))
		c.Health = clampStat(c.Health - loss)
	}
	if age > 30 {
		loss := int32(math.Min(float64(age-30)*0.15, 3.0))
		c.Stamina = clampStat(c.Stamina - loss)
	}
	switch {
	case age >= 25 && age <= 55:
		c.Charisma = clampStat(c.Charisma + 1)
	case age > 70:
		c.Charisma = clampStat(c.Charisma - 1)
	}
	if age >= 20 && age <= 70 && intelligenceRoll < 0.3 {
		c.Intelligence = clampStat(c.Intelligence + 1)
	}
}

// OldAgeDeathChance is a step function of age, boosted by poor health.
func OldAgeDeathChance(age, health int32) float64 {
	var base float64
	switch {
	case age <= 30:
		base = 0
	case age <= 50:
		base = 0.001
	case age <= 60:
		base = 0.01
	case age <= 70:
		base = 0.05
	case age <= 80:
		base = 0.15
	case age <= 90:
		base = 0.30
	case age <= 100:
		base = 0.50
	default:
		base = 0.80
	}
	return base + float64(100-health)/200.0
}

// ShouldDieOfOldAge resolves one mortality draw for this tick.
func (c Character) ShouldDieOfOldAge(roll float64) bool {
	if !c.IsAlive {
		return false
	}
	return roll < OldAgeDeathChance(c.Age(), c.Health)
}

// TradingBonus is exposed for callers computing effective trade terms; the
// exchange itself settles at listed prices.
func (c Character) TradingBonus() float64 {
	bonus := float64(c.Charisma)/100.0*0.3 +
		float64(c.Intelligence)/100.0*0.3 +
		float64(c.Luck)/100.0*0.2
	if c.Health < 50 {
		bonus -= float64(50-c.Health) / 100.0 * 0.2
	}
	return bonus
}

func clampStat(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

type ItemRarity string

const (
	RarityCommon    ItemRarity = "common"
	RarityUncommon  ItemRarity = "uncommon"
	RarityRare      ItemRarity = "rare"
	RarityEpic      ItemRarity = "epic"
	RarityLegendary ItemRarity = "legendary"
)

type Item struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Weight      int32           `json:"weight"`
	Perishable  bool            `json:"perishable"`
	Rarity      ItemRarity      `json:"rarity"`
	Description *string         `json:"description,omitempty"`
}

type Region struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Treasury        decimal.Decimal `json:"treasury"`
	SafetyLevel     int32           `json:"safety_level"`
	ProsperityLevel int32           `json:"prosperity_level"`
}

type MarketListing struct {
	ID                 uuid.UUID       `json:"id"`
	RegionID           uuid.UUID       `json:"region_id"`
	ItemID             uuid.UUID       `json:"item_id"`
	SellerCharacterID  *uuid.UUID      `json:"seller_character_id,omitempty"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int32           `json:"quantity"`
	OriginalQuantity   int32           `json:"original_quantity"`
	ListedAt           time.Time       `json:"listed_at"`
	ExpiresAt          *time.Time      `json:"expires_at,omitempty"`
	IsActive           bool            `json:"is_active"`
	IsGhostListing     bool            `json:"is_ghost_listing"`
	GhostPriceModifier decimal.Decimal `json:"ghost_price_modifier"`
}

func (l MarketListing) IsExpired() bool {
	return l.IsExpiredAt(time.Now().UTC())
}

func (l MarketListing) IsExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// EffectivePrice applies the ghost markup for estate listings.
func (l MarketListing) EffectivePrice() decimal.Decimal {
	if l.IsGhostListing {
		return l.Price.Mul(l.GhostPriceModifier)
	}
	return l.Price
}

// FillError reports why a purchase of qty cannot fill from this listing at
// now. Delisted or drained rows read as missing; expired rows are left
// untouched for the expiry sweep to settle.
func (l MarketListing) FillError(qty int32, now time.Time) error {
	switch {
	case !l.IsActive || l.Quantity <= 0:
		return ErrNotFound
	case l.IsExpiredAt(now):
		return ErrListingExpired
	case l.Quantity < qty:
		return ErrInsufficientQuantity
	}
	return nil
}

// RestockOnExpiry reports whether an expired listing's remaining goods go
// back to the seller's inventory. Ghost estate listings are system-owned
// and have no seller to restock.
func (l MarketListing) RestockOnExpiry() bool {
	return !l.IsGhostListing && l.SellerCharacterID != nil && l.Quantity > 0
}

type MarketEventType string

const (
	EventShortage  MarketEventType = "shortage"
	EventSurplus   MarketEventType = "surplus"
	EventDisaster  MarketEventType = "disaster"
	EventFestival  MarketEventType = "festival"
	EventWar       MarketEventType = "war"
	EventDiscovery MarketEventType = "discovery"
	EventEmbargo   MarketEventType = "embargo"
	EventTaxChange MarketEventType = "tax_change"
)

func (t MarketEventType) Valid() bool {
	switch t {
	case EventShortage, EventSurplus, EventDisaster, EventFestival,
		EventWar, EventDiscovery, EventEmbargo, EventTaxChange:
		return true
	}
	return false
}

type MarketEvent struct {
	ID               uuid.UUID       `json:"id"`
	EventType        MarketEventType `json:"event_type"`
	Severity         int32           `json:"severity"`
	AffectedRegionID *uuid.UUID      `json:"affected_region_id,omitempty"`
	AffectedItemID   *uuid.UUID      `json:"affected_item_id,omitempty"`
	Description      *string         `json:"description,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	PriceModifier    decimal.Decimal `json:"price_modifier"`
	IsActive         bool            `json:"is_active"`
}

func (e MarketEvent) IsCurrentlyActive() bool {
	return e.ActiveAt(time.Now().UTC())
}

func (e MarketEvent) ActiveAt(now time.Time) bool {
	if !e.IsActive || now.Before(e.StartedAt) {
		return false
	}
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}

// PriceAdjustment returns the event's modifier when its region/item filters
// match (nil filter = global), identity otherwise.
func (e MarketEvent) PriceAdjustment(regionID, itemID uuid.UUID, now time.Time) decimal.Decimal {
	affectsRegion := e.AffectedRegionID == nil || *e.AffectedRegionID == regionID
	affectsItem := e.AffectedItemID == nil || *e.AffectedItemID == itemID
	if affectsRegion && affectsItem && e.ActiveAt(now) {
		return e.PriceModifier
	}
	return decimal.NewFromInt(1)
}

type DeathEvent struct {
	ID                uuid.UUID       `json:"id"`
	CharacterID       uuid.UUID       `json:"character_id"`
	DynastyID         uuid.UUID       `json:"dynasty_id"`
	DeathCause        string          `json:"death_cause"`
	WealthAtDeath     decimal.Decimal `json:"wealth_at_death"`
	InheritanceTax    decimal.Decimal `json:"inheritance_tax"`
	NetInheritance    decimal.Decimal `json:"net_inheritance"`
	MarketImpactScore int32           `json:"market_impact_score"`
	DiedAt            time.Time       `json:"died_at"`
}

type MarketPrice struct {
	Time       time.Time        `json:"time"`
	RegionID   uuid.UUID        `json:"region_id"`
	ItemID     uuid.UUID        `json:"item_id"`
	AvgPrice   decimal.Decimal  `json:"avg_price"`
	MinPrice   decimal.Decimal  `json:"min_price"`
	MaxPrice   decimal.Decimal  `json:"max_price"`
	Volume     int64            `json:"volume"`
	Volatility *decimal.Decimal `json:"volatility,omitempty"`
}

// PurchaseCost prices a fill: itemCost goes to the seller, tax to the
// region treasury, total leaves the buyer. taxRate is a percentage.
func PurchaseCost(unitPrice decimal.Decimal, quantity int32, taxRate decimal.Decimal) (itemCost, tax, total decimal.Decimal) {
	itemCost = unitPrice.Mul(decimal.NewFromInt32(quantity))
	tax = itemCost.Mul(taxRate).Div(decimal.NewFromInt(100))
	total = itemCost.Add(tax)
	return itemCost, tax, total
}

// InheritanceSplit applies the death tax. net is what heirs or the dynasty
// treasury actually receive.
func InheritanceSplit(wealth decimal.Decimal) (tax, net decimal.Decimal) {
	tax = wealth.Mul(InheritanceTaxRate)
	return tax, wealth.Sub(tax)
}

// SplitAmongHeirs divides a net estate evenly across heirs. Sub-cent
// remainders round half-up at six decimal places.
func SplitAmongHeirs(net decimal.Decimal, heirs int) decimal.Decimal {
	if heirs <= 0 {
		return decimal.Zero
	}
	return net.DivRound(decimal.NewFromInt(int64(heirs)), 6)
}

// MarketImpactScore estimates how hard a death shakes the market.
func MarketImpactScore(wealth decimal.Decimal, generation int32) int32 {
	base := int32(wealth.Div(decimal.NewFromInt(1000)).IntPart())
	return base * generation
}

// DeathImpactSeverity buckets estate size into event severity 1..5.
func DeathImpactSeverity(wealth decimal.Decimal) int32 {
	impact, _ := wealth.Div(decimal.NewFromInt(1000)).Float64()
	switch {
	case impact > 10:
		return 5
	case impact > 5:
		return 3
	case impact > 1:
		return 2
	default:
		return 1
	}
}
