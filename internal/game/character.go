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

// starterKit is the Bernoulli table for a new character's inventory. Each
// row is rolled independently; the acquired price gets a jitter of
// 0.8x to 1.2x around base price.
var starterKit = []struct {
	ItemName string
	Chance   float64
	Quantity int32
}{
	{"Wheat", 1.00, 10},
	{"Salt", 0.80, 5},
	{"Wool", 0.60, 8},
	{"Iron Tools", 0.50, 2},
	{"Wine", 0.30, 3},
	{"Books", 0.20, 1},
}

// spawnCharacterTx inserts a character with rolled stats, aged into
// adulthood, placed in the default region, holding a starter inventory.
func (s *Service) spawnCharacterTx(ctx context.Context, tx pgx.Tx, dynastyID uuid.UUID, name string, generation int32, parentID *uuid.UUID) (Character, error) {
	var c Character
	birthDate := time.Now().UTC().AddDate(-CharacterStartingAge, 0, 0)
	health := s.rollStat(50, 30)
	stamina := s.rollStat(50, 30)
	charisma := s.rollStat(40, 40)
	intelligence := s.rollStat(40, 40)
	luck := s.rollStat(30, 50)

	err := tx.QueryRow(ctx, `
		INSERT INTO characters
		    (dynasty_id, name, birth_date, health, stamina, charisma, intelligence, luck,
		     location_id, is_alive, generation, parent_character_id, balance)
		VALUES
		    ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, $10, $11, 0)
		RETURNING id, dynasty_id, name, birth_date, death_date, death_cause,
		          health, stamina, charisma, intelligence, luck,
		          location_id, is_alive, generation, parent_character_id, balance
	`, dynastyID, name, birthDate, health, stamina, charisma, intelligence, luck,
		DefaultRegionID, generation, parentID).Scan(
		&c.ID, &c.DynastyID, &c.Name, &c.BirthDate, &c.DeathDate, &c.DeathCause,
		&c.Health, &c.Stamina, &c.Charisma, &c.Intelligence, &c.Luck,
		&c.LocationID, &c.IsAlive, &c.Generation, &c.ParentCharacterID, &c.Balance,
	)
	if err != nil {
		return c, err
	}

	for _, kit := range starterKit {
		if s.nextFloat() >= kit.Chance {
			continue
		}
		var itemID uuid.UUID
		var basePrice decimal.Decimal
		err := tx.QueryRow(ctx, `
			SELECT id, base_price FROM items WHERE name = $1
		`, kit.ItemName).Scan(&itemID, &basePrice)
		if err == pgx.ErrNoRows {
			continue
		}
		if err != nil {
			return c, err
		}
		jitter := decimal.NewFromFloat(0.8 + 0.4*s.nextFloat())
		acquired := basePrice.Mul(jitter).Round(6)
		if _, err := tx.Exec(ctx, `
			INSERT INTO character_inventory (character_id, item_id, quantity, acquired_price, acquired_from)
			VALUES ($1, $2, $3, $4, 'inheritance_kit')
			ON CONFLICT (character_id, item_id)
			DO UPDATE SET quantity = character_inventory.quantity + EXCLUDED.quantity
		`, c.ID, itemID, kit.Quantity, acquired); err != nil {
			return c, err
		}
	}
	return c, nil
}

// CreateCharacter births an heir into the caller's dynasty. The parent
// must be a living member; the child enters one generation deeper and the
// dynasty's generation advances if this is its deepest line.
func (s *Service) CreateCharacter(ctx context.Context, in CreateCharacterInput) (CharacterView, error) {
	var out CharacterView
	in.Name = strings.TrimSpace(in.Name)
	if err := validateEntityName(in.Name); err != nil {
		return out, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	d, err := ownedDynastyTx(ctx, tx, in.DynastyID, in.UserID)
	if err != nil {
		return out, err
	}

	generation := d.Generation
	var parentID *uuid.UUID
	if in.ParentID != nil {
		var parentGen int32
		var parentAlive bool
		err := tx.QueryRow(ctx, `
			SELECT generation, is_alive
			FROM characters
			WHERE id = $1 AND dynasty_id = $2
		`, *in.ParentID, in.DynastyID).Scan(&parentGen, &parentAlive)
		if err == pgx.ErrNoRows {
			return out, fmt.Errorf("parent %s: %w", *in.ParentID, ErrNotFound)
		}
		if err != nil {
			return out, err
		}
		if !parentAlive {
			return out, fmt.Errorf("%w: parent is deceased", ErrInvalidInput)
		}
		generation = parentGen + 1
		parentID = in.ParentID
	}

	c, err := s.spawnCharacterTx(ctx, tx, in.DynastyID, in.Name, generation, parentID)
	if err != nil {
		return out, err
	}

	if generation > d.Generation {
		if _, err := tx.Exec(ctx, `
			UPDATE dynasties
			SET generation = $1, updated_at = now()
			WHERE id = $2
		`, generation, in.DynastyID); err != nil {
			return out, err
		}
	}
	if err := refreshDynastyWealthTx(ctx, tx, in.DynastyID); err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	s.log.Info("character born",
		"character_id", c.ID, "dynasty_id", in.DynastyID, "generation", generation)
	return newCharacterView(c), nil
}

func newCharacterView(c Character) CharacterView {
	return CharacterView{Character: c, Age: c.Age(), TradingBonus: c.TradingBonus()}
}

// GetCharacter returns a character with age, trading bonus and net worth.
func (s *Service) GetCharacter(ctx context.Context, characterID uuid.UUID) (CharacterView, error) {
	c, err := s.characterByID(ctx, characterID)
	if err != nil {
		return CharacterView{}, err
	}
	out := newCharacterView(c)

	var holdings decimal.Decimal
	if err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(ci.quantity * i.base_price), 0)
		FROM character_inventory ci
		JOIN items i ON i.id = ci.item_id
		WHERE ci.character_id = $1
	`, characterID).Scan(&holdings); err != nil {
		return out, err
	}
	netWorth := c.Balance.Add(holdings)
	out.NetWorth = &netWorth
	return out, nil
}

func (s *Service) characterByID(ctx context.Context, characterID uuid.UUID) (Character, error) {
	var c Character
	err := s.db.QueryRow(ctx, `
		SELECT id, dynasty_id, name, birth_date, death_date, death_cause,
		       health, stamina, charisma, intelligence, luck,
		       location_id, is_alive, generation, parent_character_id, balance
		FROM characters
		WHERE id = $1
	`, characterID).Scan(
		&c.ID, &c.DynastyID, &c.Name, &c.BirthDate, &c.DeathDate, &c.DeathCause,
		&c.Health, &c.Stamina, &c.Charisma, &c.Intelligence, &c.Luck,
		&c.LocationID, &c.IsAlive, &c.Generation, &c.ParentCharacterID, &c.Balance,
	)
	if err == pgx.ErrNoRows {
		return c, fmt.Errorf("character %s: %w", characterID, ErrNotFound)
	}
	return c, err
}

// ListCharacters returns a dynasty's members, living first, eldest line first.
func (s *Service) ListCharacters(ctx context.Context, dynastyID uuid.UUID, aliveOnly bool) ([]CharacterView, error) {
	query := `
		SELECT id, dynasty_id, name, birth_date, death_date, death_cause,
		       health, stamina, charisma, intelligence, luck,
		       location_id, is_alive, generation, parent_character_id, balance
		FROM characters
		WHERE dynasty_id = $1
	`
	if aliveOnly {
		query += " AND is_alive = true"
	}
	query += " ORDER BY is_alive DESC, generation ASC, birth_date ASC"
	rows, err := s.db.Query(ctx, query, dynastyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CharacterView
	for rows.Next() {
		var c Character
		if err := rows.Scan(
			&c.ID, &c.DynastyID, &c.Name, &c.BirthDate, &c.DeathDate, &c.DeathCause,
			&c.Health, &c.Stamina, &c.Charisma, &c.Intelligence, &c.Luck,
			&c.LocationID, &c.IsAlive, &c.Generation, &c.ParentCharacterID, &c.Balance,
		); err != nil {
			return nil, err
		}
		out = append(out, newCharacterView(c))
	}
	return out, rows.Err()
}

// Inventory lists a character's holdings valued at current base prices.
func (s *Service) Inventory(ctx context.Context, characterID uuid.UUID) ([]InventoryEntry, error) {
	if _, err := s.characterByID(ctx, characterID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT ci.item_id, i.name, i.category, i.rarity, ci.quantity,
		       ci.acquired_price, i.base_price, ci.acquired_from
		FROM character_inventory ci
		JOIN items i ON i.id = ci.item_id
		WHERE ci.character_id = $1 AND ci.quantity > 0
		ORDER BY i.category, i.name
	`, characterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]InventoryEntry, 0)
	for rows.Next() {
		var e InventoryEntry
		if err := rows.Scan(&e.ItemID, &e.ItemName, &e.Category, &e.Rarity,
			&e.Quantity, &e.AvgCost, &e.BasePrice, &e.AcquiredFrom); err != nil {
			return nil, err
		}
		e.MarketValue = e.BasePrice.Mul(decimal.NewFromInt32(e.Quantity))
		out = append(out, e)
	}
	return out, rows.Err()
}

// MoveCharacter relocates a living character to another region. Ownership
// is checked through the dynasty.
func (s *Service) MoveCharacter(ctx context.Context, userID, characterID, regionID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var dynastyID uuid.UUID
	var alive bool
	err = tx.QueryRow(ctx, `
		SELECT dynasty_id, is_alive
		FROM characters
		WHERE id = $1
		FOR UPDATE
	`, characterID).Scan(&dynastyID, &alive)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("character %s: %w", characterID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !alive {
		return fmt.Errorf("%w: character is deceased", ErrInvalidInput)
	}
	if _, err := ownedDynastyTx(ctx, tx, dynastyID, userID); err != nil {
		return err
	}

	var regionName string
	err = tx.QueryRow(ctx, `SELECT name FROM regions WHERE id = $1`, regionID).Scan(&regionName)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("region %s: %w", regionID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE characters
		SET location_id = $1, updated_at = now()
		WHERE id = $2
	`, regionID, characterID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
