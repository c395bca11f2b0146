package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateDynastyInput struct {
	UserID      uuid.UUID
	Name        string
	Motto       string
	FounderName string
}

type DynastyView struct {
	Dynasty
	Prestige int32         `json:"prestige"`
	Perks    []DynastyPerk `json:"perks"`
}

type DynastySummary struct {
	DynastyView
	LivingMembers int64            `json:"living_members"`
	TotalMembers  int64            `json:"total_members"`
	Characters    []CharacterView  `json:"characters,omitempty"`
	RecentDeaths  []DeathEvent     `json:"recent_deaths,omitempty"`
	NetWorth      *decimal.Decimal `json:"net_worth,omitempty"`
}

type CharacterView struct {
	Character
	Age          int32            `json:"age"`
	TradingBonus float64          `json:"trading_bonus"`
	NetWorth     *decimal.Decimal `json:"net_worth,omitempty"`
}

type CreateCharacterInput struct {
	UserID    uuid.UUID
	DynastyID uuid.UUID
	Name      string
	ParentID  *uuid.UUID
}

type InventoryEntry struct {
	ItemID       uuid.UUID       `json:"item_id"`
	ItemName     string          `json:"item_name"`
	Category     string          `json:"category"`
	Rarity       ItemRarity      `json:"rarity"`
	Quantity     int32           `json:"quantity"`
	AvgCost      decimal.Decimal `json:"avg_acquired_price"`
	BasePrice    decimal.Decimal `json:"base_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
	AcquiredFrom *string         `json:"acquired_from,omitempty"`
}

type ListingView struct {
	MarketListing
	ItemName       string          `json:"item_name"`
	Category       string          `json:"category"`
	Rarity         ItemRarity      `json:"rarity"`
	SellerName     *string         `json:"seller_name,omitempty"`
	EffectivePrice decimal.Decimal `json:"effective_price"`
}

type ListingsQuery struct {
	RegionID     uuid.UUID
	ItemID       *uuid.UUID
	Category     string
	MaxPrice     *decimal.Decimal
	IncludeGhost bool
	Limit        int32
	Offset       int32
}

type CreateListingInput struct {
	UserID      uuid.UUID
	CharacterID uuid.UUID
	RegionID    uuid.UUID
	ItemID      uuid.UUID
	Price       decimal.Decimal
	Quantity    int32
	ExpiresIn   time.Duration
}

type TransactionRecord struct {
	ID                uuid.UUID       `json:"id"`
	ListingID         uuid.UUID       `json:"listing_id"`
	RegionID          uuid.UUID       `json:"region_id"`
	ItemID            uuid.UUID       `json:"item_id"`
	ItemName          string          `json:"item_name"`
	BuyerCharacterID  uuid.UUID       `json:"buyer_character_id"`
	SellerCharacterID *uuid.UUID      `json:"seller_character_id,omitempty"`
	Quantity          int32           `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	ItemCost          decimal.Decimal `json:"item_cost"`
	TaxPaid           decimal.Decimal `json:"tax_paid"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	WasGhost          bool            `json:"was_ghost_purchase"`
	ExecutedAt        time.Time       `json:"executed_at"`
}

type PurchaseInput struct {
	UserID      uuid.UUID
	ListingID   uuid.UUID
	CharacterID uuid.UUID
	Quantity    int32
}

type PurchaseResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	ListingID     uuid.UUID       `json:"listing_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	Quantity      int32           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ItemCost      decimal.Decimal `json:"item_cost"`
	TaxPaid       decimal.Decimal `json:"tax_paid"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	BuyerBalance  decimal.Decimal `json:"buyer_balance"`
	WasGhost      bool            `json:"was_ghost_listing"`
}

type DeathResult struct {
	Event          DeathEvent `json:"event"`
	HeirCount      int        `json:"heir_count"`
	GhostListings  int        `json:"ghost_listings_created"`
	TreasuryFunded bool       `json:"treasury_funded"`
}

type LeaderboardMetric string

const (
	MetricPrestige   LeaderboardMetric = "prestige"
	MetricWealth     LeaderboardMetric = "wealth"
	MetricReputation LeaderboardMetric = "reputation"
	MetricGeneration LeaderboardMetric = "generation"
	MetricLegacy     LeaderboardMetric = "legacy"
)

type WealthPoint struct {
	RecordedAt   time.Time       `json:"recorded_at"`
	TotalWealth  decimal.Decimal `json:"total_wealth"`
	Treasury     decimal.Decimal `json:"treasury"`
	Reputation   int32           `json:"reputation"`
	LegacyPoints int32           `json:"legacy_points"`
}

type LeaderboardRow struct {
	Rank         int64           `json:"rank"`
	DynastyID    uuid.UUID       `json:"dynasty_id"`
	Name         string          `json:"name"`
	Generation   int32           `json:"generation"`
	TotalWealth  decimal.Decimal `json:"total_wealth"`
	Reputation   int32           `json:"reputation"`
	LegacyPoints int32           `json:"legacy_points"`
	Prestige     int32           `json:"prestige"`
}

type PricePoint struct {
	Time     time.Time       `json:"time"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	MinPrice decimal.Decimal `json:"min_price"`
	MaxPrice decimal.Decimal `json:"max_price"`
	Volume   int64           `json:"volume"`
}

type PriceAnalytics struct {
	RegionID   uuid.UUID    `json:"region_id"`
	ItemID     uuid.UUID    `json:"item_id"`
	Window     string       `json:"window"`
	Points     []PricePoint `json:"points"`
	SMA7       *float64     `json:"sma_7,omitempty"`
	SMA14      *float64     `json:"sma_14,omitempty"`
	SMA30      *float64     `json:"sma_30,omitempty"`
	EMA7       *float64     `json:"ema_7,omitempty"`
	EMA14      *float64     `json:"ema_14,omitempty"`
	RSI14      *float64     `json:"rsi_14,omitempty"`
	BollUpper  *float64     `json:"bollinger_upper,omitempty"`
	BollMiddle *float64     `json:"bollinger_middle,omitempty"`
	BollLower  *float64     `json:"bollinger_lower,omitempty"`
	Trend      string       `json:"trend"`
}

type ArbitrageRoute struct {
	ItemID         uuid.UUID       `json:"item_id"`
	ItemName       string          `json:"item_name"`
	BuyRegionID    uuid.UUID       `json:"buy_region_id"`
	BuyRegionName  string          `json:"buy_region_name"`
	SellRegionID   uuid.UUID       `json:"sell_region_id"`
	SellRegionName string          `json:"sell_region_name"`
	BuyPrice       decimal.Decimal `json:"buy_price"`
	SellPrice      decimal.Decimal `json:"sell_price"`
	GrossSpread    decimal.Decimal `json:"gross_spread"`
	NetSpread      decimal.Decimal `json:"net_spread"`
	NetMarginPct   decimal.Decimal `json:"net_margin_pct"`
}

type MarketOverview struct {
	RegionID       uuid.UUID     `json:"region_id"`
	RegionName     string        `json:"region_name"`
	ActiveListings int64         `json:"active_listings"`
	GhostListings  int64         `json:"ghost_listings"`
	Volume24h      int64         `json:"volume_24h"`
	Turnover24h    decimal.Decimal `json:"turnover_24h"`
	ActiveEvents   []MarketEvent `json:"active_events"`
}
