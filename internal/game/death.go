package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// EventPublisher receives fire-and-forget game notifications. A nil
// publisher disables them.
type EventPublisher interface {
	Publish(topic string, payload any)
}

// SetPublisher wires an event sink. Call before serving traffic.
func (s *Service) SetPublisher(pub EventPublisher) {
	s.pub = pub
}

func (s *Service) publish(topic string, payload any) {
	if s.pub != nil {
		s.pub.Publish(topic, payload)
	}
}

// ProcessDeath settles a character's death in one transaction: value the
// estate, tax it, pay heirs or the dynasty treasury, list valuable goods
// as ghost listings, mark the character dead, record the death event and
// raise a market event sized to the estate.
func (s *Service) ProcessDeath(ctx context.Context, characterID uuid.UUID, cause string) (DeathResult, error) {
	var out DeathResult
	if cause == "" {
		cause = "unknown"
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	var c Character
	err = tx.QueryRow(ctx, `
		SELECT id, dynasty_id, name, birth_date, health, location_id, is_alive, generation, balance
		FROM characters
		WHERE id = $1
		FOR UPDATE
	`, characterID).Scan(&c.ID, &c.DynastyID, &c.Name, &c.BirthDate, &c.Health,
		&c.LocationID, &c.IsAlive, &c.Generation, &c.Balance)
	if err == pgx.ErrNoRows {
		return out, fmt.Errorf("character %s: %w", characterID, ErrNotFound)
	}
	if err != nil {
		return out, err
	}
	if !c.IsAlive {
		return out, fmt.Errorf("%w: character already deceased", ErrInvalidInput)
	}

	wealth, err := characterWealthTx(ctx, tx, characterID)
	if err != nil {
		return out, err
	}
	tax, net := InheritanceSplit(wealth)

	heirs, err := livingChildrenTx(ctx, tx, characterID)
	if err != nil {
		return out, err
	}
	out.HeirCount = len(heirs)

	if len(heirs) > 0 {
		share := SplitAmongHeirs(net, len(heirs))
		for _, heirID := range heirs {
			if _, err := tx.Exec(ctx, `
				UPDATE characters
				SET balance = balance + $1, updated_at = now()
				WHERE id = $2
			`, share, heirID); err != nil {
				return out, err
			}
		}
	} else {
		if _, err := tx.Exec(ctx, `
			UPDATE dynasties
			SET treasury = treasury + $1, updated_at = now()
			WHERE id = $2
		`, net, c.DynastyID); err != nil {
			return out, err
		}
		out.TreasuryFunded = true
	}

	ghosts, err := s.listEstateTx(ctx, tx, c)
	if err != nil {
		return out, err
	}
	out.GhostListings = ghosts

	diedAt := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE characters
		SET is_alive = false,
		    death_date = $1,
		    death_cause = $2,
		    balance = 0,
		    updated_at = now()
		WHERE id = $3
	`, diedAt, cause, characterID); err != nil {
		return out, err
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM character_inventory WHERE character_id = $1
	`, characterID); err != nil {
		return out, err
	}

	impact := MarketImpactScore(wealth, c.Generation)
	ev := DeathEvent{
		CharacterID:       characterID,
		DynastyID:         c.DynastyID,
		DeathCause:        cause,
		WealthAtDeath:     wealth,
		InheritanceTax:    tax,
		NetInheritance:    net,
		MarketImpactScore: impact,
		DiedAt:            diedAt,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO death_events
		    (character_id, dynasty_id, death_cause, wealth_at_death, inheritance_tax,
		     net_inheritance, market_impact_score, died_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, ev.CharacterID, ev.DynastyID, ev.DeathCause, ev.WealthAtDeath,
		ev.InheritanceTax, ev.NetInheritance, ev.MarketImpactScore, ev.DiedAt).Scan(&ev.ID); err != nil {
		return out, err
	}

	// The dynasty earns legacy for every generation it carried to the grave.
	if _, err := tx.Exec(ctx, `
		UPDATE dynasties
		SET legacy_points = legacy_points + $1, updated_at = now()
		WHERE id = $2
	`, c.Generation, c.DynastyID); err != nil {
		return out, err
	}
	if err := refreshDynastyWealthTx(ctx, tx, c.DynastyID); err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	s.log.Info("character died",
		"character_id", characterID, "cause", cause,
		"wealth", wealth, "heirs", out.HeirCount, "ghost_listings", ghosts)

	// Market reaction is best effort once the inheritance has settled.
	if err := s.raiseDeathMarketEvent(ctx, c, wealth); err != nil {
		s.log.Warn("death market event failed", "character_id", characterID, "err", err)
	}
	out.Event = ev
	s.publish("deaths", ev)
	return out, nil
}

// KillCharacter settles an owner-ordered death on the spot. Only the
// dynasty owner may order one.
func (s *Service) KillCharacter(ctx context.Context, userID, characterID uuid.UUID, cause string) (DeathResult, error) {
	var ownerID uuid.UUID
	err := s.db.QueryRow(ctx, `
		SELECT d.user_id
		FROM characters c
		JOIN dynasties d ON d.id = c.dynasty_id
		WHERE c.id = $1
	`, characterID).Scan(&ownerID)
	if err == pgx.ErrNoRows {
		return DeathResult{}, fmt.Errorf("character %s: %w", characterID, ErrNotFound)
	}
	if err != nil {
		return DeathResult{}, err
	}
	if ownerID != userID {
		return DeathResult{}, ErrForbidden
	}
	if strings.TrimSpace(cause) == "" {
		cause = "executed"
	}
	return s.ProcessDeath(ctx, characterID, cause)
}

func livingChildrenTx(ctx context.Context, tx pgx.Tx, parentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
		SELECT id
		FROM characters
		WHERE parent_character_id = $1 AND is_alive = true
		ORDER BY birth_date ASC
		FOR UPDATE
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// listEstateTx converts the deceased's inventory into ghost listings in
// their last region. Items at or below the value threshold are discarded.
func (s *Service) listEstateTx(ctx context.Context, tx pgx.Tx, c Character) (int, error) {
	regionID := DefaultRegionID
	if c.LocationID != nil {
		regionID = *c.LocationID
	}
	rows, err := tx.Query(ctx, `
		SELECT ci.item_id, ci.quantity, i.base_price
		FROM character_inventory ci
		JOIN items i ON i.id = ci.item_id
		WHERE ci.character_id = $1 AND ci.quantity > 0
	`, c.ID)
	if err != nil {
		return 0, err
	}
	type holding struct {
		itemID    uuid.UUID
		quantity  int32
		basePrice decimal.Decimal
	}
	var holdings []holding
	for rows.Next() {
		var h holding
		if err := rows.Scan(&h.itemID, &h.quantity, &h.basePrice); err != nil {
			rows.Close()
			return 0, err
		}
		holdings = append(holdings, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	created := 0
	expiresAt := time.Now().UTC().Add(GhostListingTTL)
	for _, h := range holdings {
		if !h.basePrice.GreaterThan(GhostValueThreshold) {
			continue
		}
		price := h.basePrice.Mul(GhostPriceRate).Round(6)
		// Estate listings are system-owned: seller stays NULL so nothing
		// ever flows back to the deceased.
		if _, err := tx.Exec(ctx, `
			INSERT INTO market_listings
			    (region_id, item_id, seller_character_id, price, quantity, original_quantity,
			     expires_at, is_active, is_ghost_listing, ghost_price_modifier)
			VALUES ($1, $2, NULL, $3, $4, $4, $5, true, true, $6)
		`, regionID, h.itemID, price, h.quantity, expiresAt, GhostPriceModifier); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// raiseDeathMarketEvent floods the local market with a surplus event
// proportional to the estate. Small estates pass unnoticed. Runs outside
// the death transaction.
func (s *Service) raiseDeathMarketEvent(ctx context.Context, c Character, wealth decimal.Decimal) error {
	severity := DeathImpactSeverity(wealth)
	if severity <= 1 {
		return nil
	}
	regionID := DefaultRegionID
	if c.LocationID != nil {
		regionID = *c.LocationID
	}
	// Prices dip 3% per severity point while the estate clears.
	modifier := decimal.NewFromInt(1).Sub(decimal.NewFromInt32(severity).Mul(decimal.RequireFromString("0.03")))
	desc := fmt.Sprintf("The estate of %s floods local markets", c.Name)
	expiresAt := time.Now().UTC().Add(48 * time.Hour)
	_, err := s.db.Exec(ctx, `
		INSERT INTO market_events
		    (event_type, severity, affected_region_id, description, started_at, expires_at, price_modifier, is_active)
		VALUES ($1, $2, $3, $4, now(), $5, $6, true)
	`, EventSurplus, severity, regionID, desc, expiresAt, modifier)
	return err
}

// RunMortalityTick draws old-age and disease deaths across the living
// population. Deaths per tick are capped so one pass cannot wipe a server.
func (s *Service) RunMortalityTick(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, birth_date, health
		FROM characters
		WHERE is_alive = true
	`)
	if err != nil {
		return 0, err
	}
	type candidate struct {
		id     uuid.UUID
		age    int32
		health int32
	}
	now := time.Now().UTC()
	var old, sick []candidate
	for rows.Next() {
		var id uuid.UUID
		var birthDate time.Time
		var health int32
		if err := rows.Scan(&id, &birthDate, &health); err != nil {
			rows.Close()
			return 0, err
		}
		age := Character{BirthDate: birthDate}.AgeAt(now)
		c := candidate{id: id, age: age, health: health}
		if age > 70 {
			old = append(old, c)
		} else {
			sick = append(sick, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	died := 0
	naturalDeaths := 0
	for _, c := range old {
		if naturalDeaths >= maxNaturalDeathsPerTick {
			break
		}
		// Hazard climbs 5% per year past 70.
		chance := float64(c.age-70) * 0.05
		if s.nextFloat() >= chance {
			continue
		}
		if _, err := s.ProcessDeath(ctx, c.id, "old_age"); err != nil {
			s.log.Error("old age death failed", "character_id", c.id, "error", err)
			continue
		}
		naturalDeaths++
		died++
	}

	randomDeaths := 0
	for _, c := range sick {
		if randomDeaths >= maxRandomDeathsPerTick {
			break
		}
		var chance float64
		switch {
		case c.health < 20:
			chance = 0.01
		case c.health < 40:
			chance = 0.001
		default:
			chance = 0.0001
		}
		if s.nextFloat() >= chance {
			continue
		}
		if _, err := s.ProcessDeath(ctx, c.id, "disease"); err != nil {
			s.log.Error("disease death failed", "character_id", c.id, "error", err)
			continue
		}
		randomDeaths++
		died++
	}

	if died > 0 {
		s.log.Info("mortality tick complete", "deaths", died)
	}
	return died, nil
}

// RunAgingTick ages every living character: stat drift plus the banded
// mortality draw for characters whose time has come.
func (s *Service) RunAgingTick(ctx context.Context) (aged, died int, err error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, birth_date, health, stamina, charisma, intelligence, luck
		FROM characters
		WHERE is_alive = true
	`)
	if err != nil {
		return 0, 0, err
	}
	var chars []Character
	for rows.Next() {
		var c Character
		c.IsAlive = true
		if err := rows.Scan(&c.ID, &c.BirthDate, &c.Health, &c.Stamina,
			&c.Charisma, &c.Intelligence, &c.Luck); err != nil {
			rows.Close()
			return 0, 0, err
		}
		chars = append(chars, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	for i := range chars {
		c := &chars[i]
		if c.ShouldDieOfOldAge(s.nextFloat()) {
			if _, err := s.ProcessDeath(ctx, c.ID, "old_age"); err != nil {
				s.log.Error("aging death failed", "character_id", c.ID, "error", err)
				continue
			}
			died++
			continue
		}
		c.ApplyAging(s.nextFloat())
		if _, err := s.db.Exec(ctx, `
			UPDATE characters
			SET health = $1, stamina = $2, charisma = $3, intelligence = $4, updated_at = now()
			WHERE id = $5 AND is_alive = true
		`, c.Health, c.Stamina, c.Charisma, c.Intelligence, c.ID); err != nil {
			s.log.Error("aging update failed", "character_id", c.ID, "error", err)
			continue
		}
		aged++
	}
	return aged, died, nil
}
