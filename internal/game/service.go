package game

import (
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var blockedNameFragments = []string{
	"admin",
	"mod",
	"support",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

const itemCacheSize = 512

type Service struct {
	db    *pgxpool.Pool
	log   *slog.Logger
	items *lru.Cache
	pub   EventPublisher
	mu    sync.Mutex
	rand  *mathrand.Rand
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New(itemCacheSize)
	return &Service{
		db:    db,
		log:   logger,
		items: cache,
		rand:  mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

// rollStat returns base + U[0, spread].
func (s *Service) rollStat(base, spread int32) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return base + s.rand.Int31n(spread+1)
}

// Item fetches item metadata through the in-process cache. Items are
// immutable after seeding so cache entries never go stale.
func (s *Service) Item(ctx context.Context, itemID uuid.UUID) (Item, error) {
	if cached, ok := s.items.Get(itemID); ok {
		return cached.(Item), nil
	}
	var it Item
	err := s.db.QueryRow(ctx, `
		SELECT id, name, category, base_price, weight, perishable, rarity, description
		FROM items
		WHERE id = $1
	`, itemID).Scan(&it.ID, &it.Name, &it.Category, &it.BasePrice, &it.Weight, &it.Perishable, &it.Rarity, &it.Description)
	if err != nil {
		if err == pgx.ErrNoRows {
			return it, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
		}
		return it, err
	}
	s.items.Add(itemID, it)
	return it, nil
}

func validateEntityName(name string) error {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(clean) > 64 {
		return fmt.Errorf("%w: name too long (max 64 chars)", ErrInvalidInput)
	}
	lower := strings.ToLower(clean)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("%w: name contains blocked content", ErrInvalidInput)
		}
	}
	return nil
}

// characterWealthTx is liquid balance plus inventory valued at base price.
// Every wealth figure in the system comes through here.
func characterWealthTx(ctx context.Context, tx pgx.Tx, characterID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT balance
		FROM characters
		WHERE id = $1
	`, characterID).Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	var holdings decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(ci.quantity * i.base_price), 0)
		FROM character_inventory ci
		JOIN items i ON i.id = ci.item_id
		WHERE ci.character_id = $1
	`, characterID).Scan(&holdings); err != nil {
		return decimal.Zero, err
	}
	return balance.Add(holdings), nil
}

// refreshDynastyWealthTx recomputes total_wealth from living members.
func refreshDynastyWealthTx(ctx context.Context, tx pgx.Tx, dynastyID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE dynasties d
		SET total_wealth = (
		        SELECT COALESCE(SUM(c.balance), 0) + COALESCE((
		            SELECT SUM(ci.quantity * i.base_price)
		            FROM character_inventory ci
		            JOIN items i ON i.id = ci.item_id
		            JOIN characters cc ON cc.id = ci.character_id
		            WHERE cc.dynasty_id = d.id AND cc.is_alive = true
		        ), 0) + d.treasury
		        FROM characters c
		        WHERE c.dynasty_id = d.id AND c.is_alive = true
		    ),
		    updated_at = now()
		WHERE d.id = $1
	`, dynastyID)
	return err
}
