package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"dynastra/internal/game"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
	ghostTint   = color.New(color.FgHiMagenta)
)

type charactersPayload struct {
	Characters []game.CharacterView `json:"characters"`
}

type inventoryPayload struct {
	Inventory []game.InventoryEntry `json:"inventory"`
}

type regionsPayload struct {
	Regions []game.Region `json:"regions"`
}

type listingsPayload struct {
	Listings []game.ListingView `json:"listings"`
}

type eventsPayload struct {
	Events []game.MarketEvent `json:"events"`
}

type routesPayload struct {
	Routes []game.ArbitrageRoute `json:"routes"`
}

type leaderboardPayload struct {
	Rows []game.LeaderboardRow `json:"rows"`
}

type pricesPayload struct {
	Prices []game.PricePoint `json:"prices"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptUUID(label string) (string, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return "", err
		}
		if _, err := uuid.Parse(text); err != nil {
			printWarn("Enter a valid id.")
			continue
		}
		return text, nil
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptQuantity(label string) (int32, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil || v <= 0 {
			printWarn("Enter a positive whole number.")
			continue
		}
		return int32(v), nil
	}
}

func promptPrice(label string) (string, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return "", err
		}
		v, err := decimal.NewFromString(text)
		if err != nil || !v.IsPositive() {
			printWarn("Enter a positive price, e.g. 12.50.")
			continue
		}
		return v.String(), nil
	}
}

func renderDynasty(raw map[string]any) error {
	d, err := decodeInto[game.DynastySummary](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== HOUSE %s ==\n", strings.ToUpper(d.Name))
	fmt.Printf("ID:          %s\n", d.ID)
	if d.Motto != nil && strings.TrimSpace(*d.Motto) != "" {
		fmt.Printf("Motto:       %q\n", *d.Motto)
	}
	fmt.Printf("Founded:     %s\n", d.FoundedAt.Local().Format("2006-01-02"))
	fmt.Printf("Generation:  %d\n", d.Generation)
	fmt.Printf("Wealth:      %s\n", formatDecimal(d.TotalWealth))
	fmt.Printf("Treasury:    %s\n", formatDecimal(d.Treasury))
	fmt.Printf("Reputation:  %d\n", d.Reputation)
	fmt.Printf("Legacy:      %d\n", d.LegacyPoints)
	fmt.Printf("Prestige:    %d\n", d.Prestige)
	if len(d.Perks) > 0 {
		perks := make([]string, 0, len(d.Perks))
		for _, p := range d.Perks {
			perks = append(perks, string(p))
		}
		fmt.Printf("Perks:       %s\n", strings.Join(perks, ", "))
	}
	if d.TotalMembers > 0 {
		fmt.Printf("Members:     %d living / %d total\n", d.LivingMembers, d.TotalMembers)
	}
	if len(d.RecentDeaths) > 0 {
		fmt.Println()
		accent.Println("Recent Deaths")
		fmt.Printf("%-20s %-12s %14s %14s\n", "DIED", "CAUSE", "ESTATE", "INHERITED")
		for _, de := range d.RecentDeaths {
			fmt.Printf("%-20s %-12s %14s %14s\n",
				de.DiedAt.Local().Format("2006-01-02 15:04"),
				truncate(de.DeathCause, 12),
				formatDecimal(de.WealthAtDeath),
				formatDecimal(de.NetInheritance),
			)
		}
	}
	fmt.Println()
	return nil
}

func renderCharacter(raw map[string]any) error {
	c, err := decodeInto[game.CharacterView](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(c.Name))
	status := success.Sprint("alive")
	if !c.IsAlive {
		cause := "unknown"
		if c.DeathCause != nil {
			cause = *c.DeathCause
		}
		status = danger.Sprintf("dead (%s)", cause)
	}
	fmt.Printf("ID:           %s\n", c.ID)
	fmt.Printf("Status:       %s\n", status)
	fmt.Printf("Age:          %d\n", c.Age)
	fmt.Printf("Generation:   %d\n", c.Generation)
	fmt.Printf("Health:       %s\n", colorizeStat(c.Health))
	fmt.Printf("Stamina:      %s\n", colorizeStat(c.Stamina))
	fmt.Printf("Charisma:     %d\n", c.Charisma)
	fmt.Printf("Intelligence: %d\n", c.Intelligence)
	fmt.Printf("Luck:         %d\n", c.Luck)
	fmt.Printf("Trade bonus:  %+.2f%%\n", c.TradingBonus*100)
	fmt.Printf("Balance:      %s\n", formatDecimal(c.Balance))
	if c.NetWorth != nil {
		fmt.Printf("Net worth:    %s\n", formatDecimal(*c.NetWorth))
	}
	if c.LocationID != nil {
		fmt.Printf("Location:     %s\n", *c.LocationID)
	}
	fmt.Println()
	return nil
}

func renderCharacters(raw map[string]any) error {
	out, err := decodeInto[charactersPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== CHARACTERS ==")
	if len(out.Characters) == 0 {
		printInfo("No characters yet.")
		return nil
	}
	fmt.Printf("%-38s %-20s %5s %5s %4s %-8s %14s\n", "ID", "NAME", "GEN", "AGE", "HP", "STATUS", "BALANCE")
	for _, c := range out.Characters {
		status := "alive"
		if !c.IsAlive {
			status = "dead"
		}
		fmt.Printf("%-38s %-20s %5d %5d %4d %-8s %14s\n",
			c.ID,
			truncate(c.Name, 20),
			c.Generation,
			c.Age,
			c.Health,
			status,
			formatDecimal(c.Balance),
		)
	}
	fmt.Println()
	return nil
}

func renderInventory(raw map[string]any, characterID string) error {
	out, err := decodeInto[inventoryPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== INVENTORY %s ==\n", characterID)
	if len(out.Inventory) == 0 {
		printInfo("Inventory is empty.")
		return nil
	}
	total := decimal.Zero
	fmt.Printf("%-38s %-18s %-10s %6s %12s %14s\n", "ITEM ID", "NAME", "RARITY", "QTY", "AVG COST", "VALUE")
	for _, e := range out.Inventory {
		total = total.Add(e.MarketValue)
		fmt.Printf("%-38s %-18s %-10s %6d %12s %14s\n",
			e.ItemID,
			truncate(e.ItemName, 18),
			e.Rarity,
			e.Quantity,
			formatDecimal(e.AvgCost),
			formatDecimal(e.MarketValue),
		)
	}
	fmt.Printf("%-74s %14s\n", "TOTAL", formatDecimal(total))
	fmt.Println()
	return nil
}

func renderRegions(raw map[string]any) error {
	out, err := decodeInto[regionsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== REGIONS ==")
	if len(out.Regions) == 0 {
		printInfo("No regions found.")
		return nil
	}
	fmt.Printf("%-38s %-20s %8s %8s %12s\n", "ID", "NAME", "TAX", "SAFETY", "PROSPERITY")
	for _, r := range out.Regions {
		fmt.Printf("%-38s %-20s %7s%% %8d %12d\n",
			r.ID,
			truncate(r.Name, 20),
			formatDecimal(r.TaxRate),
			r.SafetyLevel,
			r.ProsperityLevel,
		)
	}
	fmt.Println()
	return nil
}

func renderRegionMarket(raw map[string]any) error {
	out, err := decodeInto[game.MarketOverview](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== MARKET: %s ==\n", strings.ToUpper(out.RegionName))
	fmt.Printf("Active listings: %d (%d ghost)\n", out.ActiveListings, out.GhostListings)
	fmt.Printf("24h volume:      %d units\n", out.Volume24h)
	fmt.Printf("24h turnover:    %s\n", formatDecimal(out.Turnover24h))
	if len(out.ActiveEvents) > 0 {
		fmt.Println()
		accent.Println("Active Events")
		printEventRows(out.ActiveEvents)
	}
	fmt.Println()
	return nil
}

func renderListings(raw map[string]any) error {
	out, err := decodeInto[listingsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== LISTINGS ==")
	if len(out.Listings) == 0 {
		printInfo("No active listings.")
		return nil
	}
	fmt.Printf("%-38s %-18s %-10s %6s %12s %-8s\n", "LISTING ID", "ITEM", "RARITY", "QTY", "PRICE", "SELLER")
	for _, l := range out.Listings {
		seller := "-"
		if l.SellerName != nil {
			seller = *l.SellerName
		}
		line := fmt.Sprintf("%-38s %-18s %-10s %6d %12s %-8s",
			l.ID,
			truncate(l.ItemName, 18),
			l.Rarity,
			l.Quantity,
			formatDecimal(l.EffectivePrice),
			truncate(seller, 8),
		)
		if l.IsGhostListing {
			ghostTint.Printf("%s  (estate)\n", line)
		} else {
			fmt.Println(line)
		}
	}
	fmt.Println()
	return nil
}

func renderPurchase(raw map[string]any) error {
	out, err := decodeInto[game.PurchaseResult](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PURCHASE ==")
	fmt.Printf("Quantity:   %d\n", out.Quantity)
	fmt.Printf("Unit price: %s\n", formatDecimal(out.UnitPrice))
	fmt.Printf("Items:      %s\n", formatDecimal(out.ItemCost))
	fmt.Printf("Tax:        %s\n", formatDecimal(out.TaxPaid))
	fmt.Printf("Total:      %s\n", formatDecimal(out.TotalCost))
	fmt.Printf("Balance:    %s\n", formatDecimal(out.BuyerBalance))
	if out.WasGhost {
		ghostTint.Println("Bought from a deceased trader's estate.")
	}
	fmt.Println()
	return nil
}

func renderEvents(raw map[string]any) error {
	out, err := decodeInto[eventsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== MARKET EVENTS ==")
	if len(out.Events) == 0 {
		printInfo("No active events.")
		return nil
	}
	printEventRows(out.Events)
	fmt.Println()
	return nil
}

func printEventRows(events []game.MarketEvent) {
	fmt.Printf("%-10s %4s %10s %-20s %-40s\n", "TYPE", "SEV", "MODIFIER", "EXPIRES", "DESCRIPTION")
	for _, e := range events {
		expires := "-"
		if e.ExpiresAt != nil {
			expires = e.ExpiresAt.Local().Format("2006-01-02 15:04")
		}
		desc := ""
		if e.Description != nil {
			desc = *e.Description
		}
		fmt.Printf("%-10s %4d %9sx %-20s %-40s\n",
			e.EventType,
			e.Severity,
			formatDecimal(e.PriceModifier),
			expires,
			truncate(desc, 40),
		)
	}
}

func renderArbitrage(raw map[string]any) error {
	out, err := decodeInto[routesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== ARBITRAGE ROUTES ==")
	if len(out.Routes) == 0 {
		printInfo("No profitable routes right now.")
		return nil
	}
	fmt.Printf("%-18s %-16s %-16s %10s %10s %10s %8s\n", "ITEM", "BUY IN", "SELL IN", "BUY", "SELL", "NET", "MARGIN")
	for _, r := range out.Routes {
		fmt.Printf("%-18s %-16s %-16s %10s %10s %10s %7s%%\n",
			truncate(r.ItemName, 18),
			truncate(r.BuyRegionName, 16),
			truncate(r.SellRegionName, 16),
			formatDecimal(r.BuyPrice),
			formatDecimal(r.SellPrice),
			success.Sprint(formatDecimal(r.NetSpread)),
			formatDecimal(r.NetMarginPct),
		)
	}
	fmt.Println()
	return nil
}

func renderLeaderboard(raw map[string]any, metric string) error {
	out, err := decodeInto[leaderboardPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== LEADERBOARD (%s) ==\n", strings.ToUpper(metric))
	if len(out.Rows) == 0 {
		printInfo("No dynasties ranked yet.")
		return nil
	}
	fmt.Printf("%-6s %-22s %5s %14s %10s %8s %10s\n", "RANK", "DYNASTY", "GEN", "WEALTH", "REP", "LEGACY", "PRESTIGE")
	for _, row := range out.Rows {
		fmt.Printf("%-6d %-22s %5d %14s %10d %8d %10d\n",
			row.Rank,
			truncate(row.Name, 22),
			row.Generation,
			formatDecimal(row.TotalWealth),
			row.Reputation,
			row.LegacyPoints,
			row.Prestige,
		)
	}
	fmt.Println()
	return nil
}

func renderPriceHistory(raw map[string]any) error {
	out, err := decodeInto[pricesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PRICE HISTORY ==")
	if len(out.Prices) == 0 {
		printInfo("No trades recorded in this window.")
		return nil
	}
	limit := len(out.Prices)
	if limit > 24 {
		limit = 24
	}
	fmt.Printf("%-20s %12s %12s %12s %8s\n", "HOUR", "AVG", "MIN", "MAX", "VOLUME")
	for i := 0; i < limit; i++ {
		p := out.Prices[i]
		fmt.Printf("%-20s %12s %12s %12s %8d\n",
			p.Time.Local().Format("2006-01-02 15:04"),
			formatDecimal(p.AvgPrice),
			formatDecimal(p.MinPrice),
			formatDecimal(p.MaxPrice),
			p.Volume,
		)
	}
	fmt.Println()
	return nil
}

func renderAnalytics(raw map[string]any) error {
	out, err := decodeInto[game.PriceAnalytics](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PRICE ANALYTICS ==")
	fmt.Printf("Window:    %s\n", out.Window)
	fmt.Printf("Samples:   %d\n", len(out.Points))
	printIndicator("SMA 7", out.SMA7)
	printIndicator("SMA 14", out.SMA14)
	printIndicator("SMA 30", out.SMA30)
	printIndicator("EMA 7", out.EMA7)
	printIndicator("EMA 14", out.EMA14)
	printIndicator("RSI 14", out.RSI14)
	printIndicator("Boll up", out.BollUpper)
	printIndicator("Boll mid", out.BollMiddle)
	printIndicator("Boll low", out.BollLower)
	trend := neutral.Sprint(out.Trend)
	switch out.Trend {
	case "rising":
		trend = success.Sprint(out.Trend)
	case "falling":
		trend = danger.Sprint(out.Trend)
	}
	fmt.Printf("Trend:     %s\n", trend)
	fmt.Println()
	return nil
}

func printIndicator(label string, v *float64) {
	if v == nil {
		fmt.Printf("%-10s -\n", label+":")
		return
	}
	fmt.Printf("%-10s %.4f\n", label+":", *v)
}

func renderSimpleOK(successMessage string) error {
	printSuccess(successMessage)
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizeStat(v int32) string {
	text := strconv.FormatInt(int64(v), 10)
	switch {
	case v >= 60:
		return success.Sprint(text)
	case v >= 30:
		return warn.Sprint(text)
	default:
		return danger.Sprint(text)
	}
}

func formatDecimal(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
