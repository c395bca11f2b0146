package game

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDynastyPrestige(t *testing.T) {
	tests := []struct {
		name string
		d    Dynasty
		want int32
	}{
		{name: "empty", d: Dynasty{Generation: 1}, want: 10},
		{
			name: "established",
			d: Dynasty{
				Generation:   3,
				TotalWealth:  decimal.NewFromInt(250_000),
				Reputation:   120,
				LegacyPoints: 7,
			},
			want: 25 + 30 + 12 + 7,
		},
		{
			name: "wealth rounds down",
			d:    Dynasty{Generation: 1, TotalWealth: decimal.NewFromInt(19_999)},
			want: 1 + 10,
		},
	}
	for _, tc := range tests {
		if got := tc.d.Prestige(); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}

func TestDynastyPerks(t *testing.T) {
	d := Dynasty{Generation: 5, Reputation: 1200, TotalWealth: decimal.NewFromInt(2_000_000), LegacyPoints: 150}
	perks := d.Perks()
	want := []DynastyPerk{PerkAncientLineage, PerkRenowned, PerkWealthy, PerkLegendary}
	if len(perks) != len(want) {
		t.Fatalf("got %d perks, want %d", len(perks), len(want))
	}
	for i, p := range want {
		if perks[i] != p {
			t.Fatalf("perk[%d] = %q, want %q", i, perks[i], p)
		}
	}

	fresh := Dynasty{Generation: 1, TotalWealth: decimal.NewFromInt(1_000_000)}
	if got := fresh.Perks(); len(got) != 0 {
		t.Fatalf("expected no perks at exactly 1M wealth, got %v", got)
	}
}

func TestCharacterAgeAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := Character{BirthDate: now.AddDate(-42, 0, -3)}
	if got := c.AgeAt(now); got != 42 {
		t.Fatalf("got age %d want 42", got)
	}

	died := now.AddDate(-2, 0, 0)
	c.DeathDate = &died
	if got := c.AgeAt(now); got != 40 {
		t.Fatalf("age should freeze at death: got %d want 40", got)
	}
}

func TestApplyAging(t *testing.T) {
	now := time.Now().UTC()
	c := Character{
		BirthDate:    now.AddDate(-60, 0, -10),
		Health:       80,
		Stamina:      70,
		Charisma:     50,
		Intelligence: 60,
		IsAlive:      true,
	}
	c.ApplyAging(0.9) // no intelligence gain

	// age 60: health loss capped at 2, stamina loss capped at 3.
	if c.Health != 78 {
		t.Fatalf("health: got %d want 78", c.Health)
	}
	if c.Stamina != 67 {
		t.Fatalf("stamina: got %d want 67", c.Stamina)
	}
	// 60 is outside both charisma bands.
	if c.Charisma != 50 {
		t.Fatalf("charisma: got %d want 50", c.Charisma)
	}
	if c.Intelligence != 60 {
		t.Fatalf("intelligence: got %d want 60", c.Intelligence)
	}

	young := Character{BirthDate: now.AddDate(-30, 0, -10), Charisma: 40, Intelligence: 40}
	young.ApplyAging(0.1)
	if young.Charisma != 41 {
		t.Fatalf("prime charisma: got %d want 41", young.Charisma)
	}
	if young.Intelligence != 41 {
		t.Fatalf("wisdom gain: got %d want 41", young.Intelligence)
	}
}

func TestApplyAgingClampsStats(t *testing.T) {
	now := time.Now().UTC()
	c := Character{BirthDate: now.AddDate(-95, 0, -10), Health: 1, Stamina: 2, Charisma: 0}
	c.ApplyAging(0.9)
	if c.Health != 0 || c.Stamina != 0 || c.Charisma != 0 {
		t.Fatalf("stats must clamp at 0: health=%d stamina=%d charisma=%d", c.Health, c.Stamina, c.Charisma)
	}
}

func TestOldAgeDeathChance(t *testing.T) {
	tests := []struct {
		age    int32
		health int32
		want   float64
	}{
		{age: 25, health: 100, want: 0},
		{age: 45, health: 100, want: 0.001},
		{age: 55, health: 100, want: 0.01},
		{age: 65, health: 60, want: 0.05 + 0.2},
		{age: 75, health: 100, want: 0.15},
		{age: 85, health: 100, want: 0.30},
		{age: 95, health: 100, want: 0.50},
		{age: 110, health: 0, want: 0.80 + 0.5},
	}
	for _, tc := range tests {
		got := OldAgeDeathChance(tc.age, tc.health)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("age=%d health=%d got=%f want=%f", tc.age, tc.health, got, tc.want)
		}
	}
}

func TestShouldDieOfOldAge(t *testing.T) {
	now := time.Now().UTC()
	elder := Character{BirthDate: now.AddDate(-85, 0, -10), Health: 100, IsAlive: true}
	if !elder.ShouldDieOfOldAge(0.1) {
		t.Fatalf("roll below chance should die")
	}
	if elder.ShouldDieOfOldAge(0.9) {
		t.Fatalf("roll above chance should survive")
	}

	dead := Character{BirthDate: now.AddDate(-85, 0, 0)}
	if dead.ShouldDieOfOldAge(0.0) {
		t.Fatalf("the dead do not die twice")
	}
}

func TestTradingBonus(t *testing.T) {
	c := Character{Charisma: 100, Intelligence: 100, Luck: 100, Health: 100}
	if got := c.TradingBonus(); got < 0.8-1e-9 || got > 0.8+1e-9 {
		t.Fatalf("max bonus: got %f want 0.8", got)
	}

	sick := Character{Charisma: 50, Intelligence: 50, Luck: 50, Health: 20}
	want := 0.15 + 0.15 + 0.10 - 0.06
	got := sick.TradingBonus()
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("sick bonus: got %f want %f", got, want)
	}
}

func TestPurchaseCost(t *testing.T) {
	itemCost, tax, total := PurchaseCost(decimal.NewFromInt(100), 5, decimal.NewFromInt(8))
	if !itemCost.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("item cost: got %s want 500", itemCost)
	}
	if !tax.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("tax: got %s want 40", tax)
	}
	if !total.Equal(decimal.NewFromInt(540)) {
		t.Fatalf("total: got %s want 540", total)
	}
}

func TestInheritanceSplit(t *testing.T) {
	tax, net := InheritanceSplit(decimal.NewFromInt(10_000))
	if !tax.Equal(decimal.NewFromInt(1_000)) {
		t.Fatalf("tax: got %s want 1000", tax)
	}
	if !net.Equal(decimal.NewFromInt(9_000)) {
		t.Fatalf("net: got %s want 9000", net)
	}
}

func TestSplitAmongHeirs(t *testing.T) {
	share := SplitAmongHeirs(decimal.NewFromInt(9_000), 3)
	if !share.Equal(decimal.NewFromInt(3_000)) {
		t.Fatalf("got %s want 3000", share)
	}
	if got := SplitAmongHeirs(decimal.NewFromInt(100), 0); !got.IsZero() {
		t.Fatalf("zero heirs must yield zero, got %s", got)
	}
	uneven := SplitAmongHeirs(decimal.NewFromInt(100), 3)
	total := uneven.Mul(decimal.NewFromInt(3))
	if total.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(decimal.RequireFromString("0.001")) {
		t.Fatalf("shares drift too far from estate: 3 x %s = %s", uneven, total)
	}
}

func TestGhostListingEffectivePrice(t *testing.T) {
	l := MarketListing{
		Price:              decimal.NewFromInt(80),
		IsGhostListing:     true,
		GhostPriceModifier: GhostPriceModifier,
	}
	if !l.EffectivePrice().Equal(decimal.NewFromInt(96)) {
		t.Fatalf("ghost price: got %s want 96", l.EffectivePrice())
	}

	plain := MarketListing{Price: decimal.NewFromInt(80), GhostPriceModifier: decimal.NewFromInt(1)}
	if !plain.EffectivePrice().Equal(decimal.NewFromInt(80)) {
		t.Fatalf("plain price: got %s want 80", plain.EffectivePrice())
	}
}

func TestListingExpiry(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if !(MarketListing{ExpiresAt: &past}).IsExpiredAt(now) {
		t.Fatalf("past expiry should be expired")
	}
	if (MarketListing{ExpiresAt: &future}).IsExpiredAt(now) {
		t.Fatalf("future expiry should not be expired")
	}
	if (MarketListing{}).IsExpiredAt(now) {
		t.Fatalf("nil expiry never expires")
	}
}

func TestMarketEventPriceAdjustment(t *testing.T) {
	now := time.Now().UTC()
	later := now.Add(time.Hour)
	region := DefaultRegionID
	mod := decimal.RequireFromString("1.5")

	global := MarketEvent{StartedAt: now.Add(-time.Minute), ExpiresAt: &later, PriceModifier: mod, IsActive: true}
	if got := global.PriceAdjustment(region, DefaultRegionID, now); !got.Equal(mod) {
		t.Fatalf("global event should apply: got %s", got)
	}

	other := region
	other[0] ^= 0xff
	scoped := global
	scoped.AffectedRegionID = &other
	if got := scoped.PriceAdjustment(region, DefaultRegionID, now); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("foreign region event should not apply: got %s", got)
	}

	expired := global
	expired.IsActive = false
	if got := expired.PriceAdjustment(region, DefaultRegionID, now); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("inactive event should not apply: got %s", got)
	}
}

func TestMarketImpactScore(t *testing.T) {
	got := MarketImpactScore(decimal.NewFromInt(12_500), 4)
	if got != 48 {
		t.Fatalf("got %d want 48", got)
	}
}

func TestDeathImpactSeverity(t *testing.T) {
	tests := []struct {
		wealth int64
		want   int32
	}{
		{wealth: 500, want: 1},
		{wealth: 1_500, want: 2},
		{wealth: 7_000, want: 3},
		{wealth: 50_000, want: 5},
	}
	for _, tc := range tests {
		if got := DeathImpactSeverity(decimal.NewFromInt(tc.wealth)); got != tc.want {
			t.Fatalf("wealth=%d got=%d want=%d", tc.wealth, got, tc.want)
		}
	}
}

func TestValidateEntityName(t *testing.T) {
	if err := validateEntityName("House Valmont"); err != nil {
		t.Fatalf("expected valid name: %v", err)
	}
	if err := validateEntityName("admin dynasty"); err == nil {
		t.Fatalf("expected blocked name to fail")
	}
	if err := validateEntityName(""); err == nil {
		t.Fatalf("expected empty name to fail")
	}
}
