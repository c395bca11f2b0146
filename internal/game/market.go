package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ListRegions returns all trading regions.
func (s *Service) ListRegions(ctx context.Context) ([]Region, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, tax_rate, treasury, safety_level, prosperity_level
		FROM regions
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Region
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.TaxRate,
			&r.Treasury, &r.SafetyLevel, &r.ProsperityLevel); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RegionOverview summarizes a region's market: listing counts, 24h volume
// and the events currently moving prices.
func (s *Service) RegionOverview(ctx context.Context, regionID uuid.UUID) (MarketOverview, error) {
	var out MarketOverview
	err := s.db.QueryRow(ctx, `
		SELECT id, name
		FROM regions
		WHERE id = $1
	`, regionID).Scan(&out.RegionID, &out.RegionName)
	if err == pgx.ErrNoRows {
		return out, fmt.Errorf("region %s: %w", regionID, ErrNotFound)
	}
	if err != nil {
		return out, err
	}

	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(1) FILTER (WHERE NOT is_ghost_listing),
		       COUNT(1) FILTER (WHERE is_ghost_listing)
		FROM market_listings
		WHERE region_id = $1 AND is_active = true AND quantity > 0
		  AND (expires_at IS NULL OR expires_at > now())
	`, regionID).Scan(&out.ActiveListings, &out.GhostListings); err != nil {
		return out, err
	}

	if err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0), COALESCE(SUM(total_cost), 0)
		FROM market_transactions
		WHERE region_id = $1 AND executed_at > now() - interval '24 hours'
	`, regionID).Scan(&out.Volume24h, &out.Turnover24h); err != nil {
		return out, err
	}

	events, err := s.activeEvents(ctx, &regionID)
	if err != nil {
		return out, err
	}
	out.ActiveEvents = events
	return out, nil
}

// Listings searches a region's active listings with optional filters.
func (s *Service) Listings(ctx context.Context, q ListingsQuery) ([]ListingView, error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	query := `
		SELECT l.id, l.region_id, l.item_id, l.seller_character_id,
		       l.price, l.quantity, l.original_quantity, l.listed_at, l.expires_at,
		       l.is_active, l.is_ghost_listing, l.ghost_price_modifier,
		       i.name, i.category, i.rarity, c.name
		FROM market_listings l
		JOIN items i ON i.id = l.item_id
		LEFT JOIN characters c ON c.id = l.seller_character_id
		WHERE l.region_id = $1 AND l.is_active = true AND l.quantity > 0
		  AND (l.expires_at IS NULL OR l.expires_at > now())
	`
	args := []any{q.RegionID}
	if q.ItemID != nil {
		args = append(args, *q.ItemID)
		query += fmt.Sprintf(" AND l.item_id = $%d", len(args))
	}
	if q.Category != "" {
		args = append(args, q.Category)
		query += fmt.Sprintf(" AND i.category = $%d", len(args))
	}
	if q.MaxPrice != nil {
		args = append(args, *q.MaxPrice)
		query += fmt.Sprintf(" AND l.price * CASE WHEN l.is_ghost_listing THEN l.ghost_price_modifier ELSE 1 END <= $%d", len(args))
	}
	if !q.IncludeGhost {
		query += " AND l.is_ghost_listing = false"
	}
	args = append(args, q.Limit, q.Offset)
	query += fmt.Sprintf(" ORDER BY l.listed_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ListingView, 0)
	for rows.Next() {
		var v ListingView
		if err := rows.Scan(&v.ID, &v.RegionID, &v.ItemID, &v.SellerCharacterID,
			&v.Price, &v.Quantity, &v.OriginalQuantity, &v.ListedAt, &v.ExpiresAt,
			&v.IsActive, &v.IsGhostListing, &v.GhostPriceModifier,
			&v.ItemName, &v.Category, &v.Rarity, &v.SellerName); err != nil {
			return nil, err
		}
		v.EffectivePrice = v.MarketListing.EffectivePrice()
		out = append(out, v)
	}
	return out, rows.Err()
}

// CreateListing moves goods out of a character's inventory onto the market.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (ListingView, error) {
	var out ListingView
	if in.Quantity <= 0 {
		return out, fmt.Errorf("%w: quantity must be > 0", ErrInvalidInput)
	}
	if !in.Price.IsPositive() {
		return out, fmt.Errorf("%w: price must be > 0", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	var dynastyID uuid.UUID
	var alive bool
	err = tx.QueryRow(ctx, `
		SELECT dynasty_id, is_alive
		FROM characters
		WHERE id = $1
		FOR UPDATE
	`, in.CharacterID).Scan(&dynastyID, &alive)
	if err == pgx.ErrNoRows {
		return out, fmt.Errorf("character %s: %w", in.CharacterID, ErrNotFound)
	}
	if err != nil {
		return out, err
	}
	if !alive {
		return out, fmt.Errorf("%w: character is deceased", ErrInvalidInput)
	}
	if _, err := ownedDynastyTx(ctx, tx, dynastyID, in.UserID); err != nil {
		return out, err
	}

	var held int32
	err = tx.QueryRow(ctx, `
		SELECT quantity
		FROM character_inventory
		WHERE character_id = $1 AND item_id = $2
		FOR UPDATE
	`, in.CharacterID, in.ItemID).Scan(&held)
	if err == pgx.ErrNoRows || (err == nil && held < in.Quantity) {
		return out, ErrInsufficientInventory
	}
	if err != nil {
		return out, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE character_inventory
		SET quantity = quantity - $1
		WHERE character_id = $2 AND item_id = $3
	`, in.Quantity, in.CharacterID, in.ItemID); err != nil {
		return out, err
	}

	var expiresAt *time.Time
	if in.ExpiresIn > 0 {
		t := time.Now().UTC().Add(in.ExpiresIn)
		expiresAt = &t
	}

	var l MarketListing
	err = tx.QueryRow(ctx, `
		INSERT INTO market_listings
		    (region_id, item_id, seller_character_id, price, quantity, original_quantity,
		     expires_at, is_active, is_ghost_listing, ghost_price_modifier)
		VALUES ($1, $2, $3, $4, $5, $5, $6, true, false, 1)
		RETURNING id, region_id, item_id, seller_character_id, price, quantity,
		          original_quantity, listed_at, expires_at, is_active,
		          is_ghost_listing, ghost_price_modifier
	`, in.RegionID, in.ItemID, in.CharacterID, in.Price, in.Quantity, expiresAt).Scan(
		&l.ID, &l.RegionID, &l.ItemID, &l.SellerCharacterID, &l.Price, &l.Quantity,
		&l.OriginalQuantity, &l.ListedAt, &l.ExpiresAt, &l.IsActive,
		&l.IsGhostListing, &l.GhostPriceModifier,
	)
	if err != nil {
		return out, err
	}

	// Initial price point for the hour; the snapshot tick replaces it with
	// the full aggregate later.
	if _, err := tx.Exec(ctx, `
		INSERT INTO market_prices (time, region_id, item_id, avg_price, min_price, max_price, volume, volatility)
		VALUES (date_trunc('hour', now()), $1, $2, $3, $3, $3, $4, 0)
		ON CONFLICT (time, region_id, item_id) DO NOTHING
	`, l.RegionID, l.ItemID, l.Price, l.Quantity); err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	item, err := s.Item(ctx, in.ItemID)
	if err != nil {
		return out, err
	}
	out.MarketListing = l
	out.ItemName = item.Name
	out.Category = item.Category
	out.Rarity = item.Rarity
	out.EffectivePrice = l.EffectivePrice()
	return out, nil
}

// CancelListing pulls a listing and returns unsold goods to the seller.
// Ghost listings have no living seller and cannot be cancelled.
func (s *Service) CancelListing(ctx context.Context, userID, listingID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var l MarketListing
	err = tx.QueryRow(ctx, `
		SELECT id, item_id, seller_character_id, price, quantity, is_active, is_ghost_listing
		FROM market_listings
		WHERE id = $1
		FOR UPDATE
	`, listingID).Scan(&l.ID, &l.ItemID, &l.SellerCharacterID, &l.Price,
		&l.Quantity, &l.IsActive, &l.IsGhostListing)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if l.IsGhostListing || l.SellerCharacterID == nil {
		return ErrForbidden
	}
	if !l.IsActive {
		return fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}

	var dynastyID uuid.UUID
	if err := tx.QueryRow(ctx, `
		SELECT dynasty_id FROM characters WHERE id = $1
	`, *l.SellerCharacterID).Scan(&dynastyID); err != nil {
		return err
	}
	if _, err := ownedDynastyTx(ctx, tx, dynastyID, userID); err != nil {
		return err
	}

	if l.Quantity > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO character_inventory (character_id, item_id, quantity, acquired_price, acquired_from)
			VALUES ($1, $2, $3, $4, 'listing_cancelled')
			ON CONFLICT (character_id, item_id)
			DO UPDATE SET quantity = character_inventory.quantity + EXCLUDED.quantity
		`, *l.SellerCharacterID, l.ItemID, l.Quantity, l.Price); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE market_listings
		SET is_active = false, quantity = 0
		WHERE id = $1
	`, listingID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Purchase fills quantity from a listing. The buyer pays the effective
// price plus region tax; the seller receives the item cost and the tax
// lands in the region treasury. Ghost estate sales have no seller, so
// their proceeds go to the region alongside the tax.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	var out PurchaseResult
	if in.Quantity <= 0 {
		return out, fmt.Errorf("%w: quantity must be > 0", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	var l MarketListing
	err = tx.QueryRow(ctx, `
		SELECT id, region_id, item_id, seller_character_id, price, quantity,
		       original_quantity, listed_at, expires_at, is_active,
		       is_ghost_listing, ghost_price_modifier
		FROM market_listings
		WHERE id = $1
		FOR UPDATE
	`, in.ListingID).Scan(&l.ID, &l.RegionID, &l.ItemID, &l.SellerCharacterID,
		&l.Price, &l.Quantity, &l.OriginalQuantity, &l.ListedAt, &l.ExpiresAt,
		&l.IsActive, &l.IsGhostListing, &l.GhostPriceModifier)
	if err == pgx.ErrNoRows {
		return out, fmt.Errorf("listing %s: %w", in.ListingID, ErrNotFound)
	}
	if err != nil {
		return out, err
	}
	if err := l.FillError(in.Quantity, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return out, fmt.Errorf("listing %s: %w", in.ListingID, err)
		}
		return out, err
	}
	if l.SellerCharacterID != nil && *l.SellerCharacterID == in.CharacterID && !l.IsGhostListing {
		return out, ErrSelfTrade
	}

	var buyerDynastyID uuid.UUID
	var buyerBalance decimal.Decimal
	var buyerAlive bool
	err = tx.QueryRow(ctx, `
		SELECT dynasty_id, balance, is_alive
		FROM characters
		WHERE id = $1
		FOR UPDATE
	`, in.CharacterID).Scan(&buyerDynastyID, &buyerBalance, &buyerAlive)
	if err == pgx.ErrNoRows {
		return out, fmt.Errorf("character %s: %w", in.CharacterID, ErrNotFound)
	}
	if err != nil {
		return out, err
	}
	if !buyerAlive {
		return out, fmt.Errorf("%w: character is deceased", ErrInvalidInput)
	}
	if _, err := ownedDynastyTx(ctx, tx, buyerDynastyID, in.UserID); err != nil {
		return out, err
	}

	var taxRate decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT tax_rate
		FROM regions
		WHERE id = $1
		FOR UPDATE
	`, l.RegionID).Scan(&taxRate); err != nil {
		return out, err
	}

	unitPrice := l.EffectivePrice()
	itemCost, taxPaid, totalCost := PurchaseCost(unitPrice, in.Quantity, taxRate)
	if buyerBalance.LessThan(totalCost) {
		return out, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, totalCost, buyerBalance)
	}

	buyerBalance = buyerBalance.Sub(totalCost)
	if _, err := tx.Exec(ctx, `
		UPDATE characters
		SET balance = $1, updated_at = now()
		WHERE id = $2
	`, buyerBalance, in.CharacterID); err != nil {
		return out, err
	}

	if !l.IsGhostListing && l.SellerCharacterID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE characters
			SET balance = balance + $1, updated_at = now()
			WHERE id = $2
		`, itemCost, *l.SellerCharacterID); err != nil {
			return out, err
		}
	}

	regionCredit := taxPaid
	if l.IsGhostListing {
		// The estate was already settled through inheritance. Ghost sale
		// proceeds sink into the region instead of paying it twice.
		regionCredit = regionCredit.Add(itemCost)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE regions
		SET treasury = treasury + $1
		WHERE id = $2
	`, regionCredit, l.RegionID); err != nil {
		return out, err
	}

	remaining := l.Quantity - in.Quantity
	if _, err := tx.Exec(ctx, `
		UPDATE market_listings
		SET quantity = $1, is_active = ($1 > 0)
		WHERE id = $2
	`, remaining, l.ID); err != nil {
		return out, err
	}

	if err := addInventoryTx(ctx, tx, in.CharacterID, l.ItemID, in.Quantity, unitPrice); err != nil {
		return out, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO market_transactions
		    (listing_id, region_id, item_id, buyer_character_id, seller_character_id,
		     quantity, unit_price, item_cost, tax_paid, total_cost, was_ghost_purchase)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, l.ID, l.RegionID, l.ItemID, in.CharacterID, l.SellerCharacterID,
		in.Quantity, unitPrice, itemCost, taxPaid, totalCost, l.IsGhostListing).Scan(&out.TransactionID)
	if err != nil {
		return out, err
	}

	if err := refreshDynastyWealthTx(ctx, tx, buyerDynastyID); err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	out.ListingID = l.ID
	out.ItemID = l.ItemID
	out.Quantity = in.Quantity
	out.UnitPrice = unitPrice
	out.ItemCost = itemCost
	out.TaxPaid = taxPaid
	out.TotalCost = totalCost
	out.BuyerBalance = buyerBalance
	out.WasGhost = l.IsGhostListing

	s.log.Info("purchase settled",
		"transaction_id", out.TransactionID, "listing_id", l.ID,
		"quantity", in.Quantity, "total", totalCost, "ghost", l.IsGhostListing)

	// Trading builds renown. Best effort after the trade itself settled.
	if _, err := s.ModifyReputation(ctx, buyerDynastyID, 1); err != nil {
		s.log.Warn("reputation credit failed", "dynasty_id", buyerDynastyID, "err", err)
	}
	s.publish("trades", out)
	return out, nil
}

// addInventoryTx upserts a holding, blending the acquired price as a
// quantity-weighted average.
func addInventoryTx(ctx context.Context, tx pgx.Tx, characterID, itemID uuid.UUID, quantity int32, unitPrice decimal.Decimal) error {
	var oldQty int32
	var oldAvg decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT quantity, acquired_price
		FROM character_inventory
		WHERE character_id = $1 AND item_id = $2
		FOR UPDATE
	`, characterID, itemID).Scan(&oldQty, &oldAvg)
	if err != nil && err != pgx.ErrNoRows {
		return err
	}
	if err == pgx.ErrNoRows {
		_, err = tx.Exec(ctx, `
			INSERT INTO character_inventory (character_id, item_id, quantity, acquired_price, acquired_from)
			VALUES ($1, $2, $3, $4, 'market_purchase')
		`, characterID, itemID, quantity, unitPrice)
		return err
	}

	newQty := oldQty + quantity
	oldCost := oldAvg.Mul(decimal.NewFromInt32(oldQty))
	newCost := unitPrice.Mul(decimal.NewFromInt32(quantity))
	newAvg := oldCost.Add(newCost).DivRound(decimal.NewFromInt32(newQty), 6)
	_, err = tx.Exec(ctx, `
		UPDATE character_inventory
		SET quantity = $1, acquired_price = $2
		WHERE character_id = $3 AND item_id = $4
	`, newQty, newAvg, characterID, itemID)
	return err
}

// ExpireListings deactivates listings whose TTL has passed and returns
// unsold goods to their sellers. Ghost estate listings have no seller and
// their goods are simply lost to time. Running the sweep twice is safe:
// the second pass finds no active expired rows.
func (s *Service) ExpireListings(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, item_id, seller_character_id, price, quantity, is_ghost_listing
		FROM market_listings
		WHERE is_active = true AND expires_at IS NOT NULL AND expires_at <= now()
		FOR UPDATE
	`)
	if err != nil {
		return 0, err
	}
	var expired []MarketListing
	for rows.Next() {
		var l MarketListing
		if err := rows.Scan(&l.ID, &l.ItemID, &l.SellerCharacterID, &l.Price, &l.Quantity, &l.IsGhostListing); err != nil {
			rows.Close()
			return 0, err
		}
		expired = append(expired, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	for _, l := range expired {
		if l.RestockOnExpiry() {
			if _, err := tx.Exec(ctx, `
				INSERT INTO character_inventory (character_id, item_id, quantity, acquired_price, acquired_from)
				VALUES ($1, $2, $3, $4, 'listing_expired')
				ON CONFLICT (character_id, item_id)
				DO UPDATE SET quantity = character_inventory.quantity + EXCLUDED.quantity
			`, *l.SellerCharacterID, l.ItemID, l.Quantity, l.Price); err != nil {
				return 0, err
			}
		}
		if _, err := tx.Exec(ctx, `
			UPDATE market_listings
			SET is_active = false
			WHERE id = $1
		`, l.ID); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	s.log.Info("expired listings", "count", len(expired))
	return int64(len(expired)), nil
}

// CharacterTransactions lists a character's trade history, both sides,
// newest first.
func (s *Service) CharacterTransactions(ctx context.Context, characterID uuid.UUID, limit, offset int32) ([]TransactionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.listing_id, t.region_id, t.item_id, i.name,
		       t.buyer_character_id, t.seller_character_id,
		       t.quantity, t.unit_price, t.item_cost, t.tax_paid, t.total_cost,
		       t.was_ghost_purchase, t.executed_at
		FROM market_transactions t
		JOIN items i ON i.id = t.item_id
		WHERE t.buyer_character_id = $1 OR t.seller_character_id = $1
		ORDER BY t.executed_at DESC
		LIMIT $2 OFFSET $3
	`, characterID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		var t TransactionRecord
		if err := rows.Scan(&t.ID, &t.ListingID, &t.RegionID, &t.ItemID, &t.ItemName,
			&t.BuyerCharacterID, &t.SellerCharacterID,
			&t.Quantity, &t.UnitPrice, &t.ItemCost, &t.TaxPaid, &t.TotalCost,
			&t.WasGhost, &t.ExecutedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
