package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type eventSpec struct {
	Type        MarketEventType
	Weight      float64
	MinModifier float64
	MaxModifier float64
	Description string
}

// eventTable drives random market event generation. Weight is the relative
// draw probability; the modifier range is scaled by rolled severity.
var eventTable = []eventSpec{
	{EventShortage, 0.20, 1.10, 1.60, "A shortage drives prices up"},
	{EventSurplus, 0.20, 0.60, 0.90, "A surplus floods the market"},
	{EventDisaster, 0.08, 1.30, 2.00, "Disaster strikes the region"},
	{EventFestival, 0.15, 1.05, 1.25, "A festival draws eager buyers"},
	{EventWar, 0.07, 1.40, 2.20, "War disrupts the trade routes"},
	{EventDiscovery, 0.10, 0.50, 0.80, "A new source is discovered"},
	{EventEmbargo, 0.10, 1.20, 1.80, "An embargo chokes supply"},
	{EventTaxChange, 0.10, 0.90, 1.15, "The regional levy shifts"},
}

// eventSpawnChance is the per-tick probability of a new random event.
const eventSpawnChance = 0.15

func (s *Service) activeEvents(ctx context.Context, regionID *uuid.UUID) ([]MarketEvent, error) {
	query := `
		SELECT id, event_type, severity, affected_region_id, affected_item_id,
		       description, started_at, expires_at, price_modifier, is_active
		FROM market_events
		WHERE is_active = true AND started_at <= now()
		  AND (expires_at IS NULL OR expires_at > now())
	`
	args := []any{}
	if regionID != nil {
		args = append(args, *regionID)
		query += " AND (affected_region_id IS NULL OR affected_region_id = $1)"
	}
	query += " ORDER BY started_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MarketEvent, 0)
	for rows.Next() {
		var e MarketEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Severity, &e.AffectedRegionID,
			&e.AffectedItemID, &e.Description, &e.StartedAt, &e.ExpiresAt,
			&e.PriceModifier, &e.IsActive); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ActiveEvents lists every event currently in effect across all regions.
func (s *Service) ActiveEvents(ctx context.Context) ([]MarketEvent, error) {
	return s.activeEvents(ctx, nil)
}

type CreateMarketEventInput struct {
	EventType     MarketEventType
	Severity      int32
	RegionID      *uuid.UUID
	ItemID        *uuid.UUID
	Description   string
	Duration      time.Duration
	PriceModifier decimal.Decimal
}

func (in CreateMarketEventInput) validate() error {
	if !in.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, in.EventType)
	}
	if in.Severity < 1 || in.Severity > 5 {
		return fmt.Errorf("%w: severity must be between 1 and 5", ErrInvalidInput)
	}
	if !in.PriceModifier.IsPositive() {
		return fmt.Errorf("%w: price modifier must be > 0", ErrInvalidInput)
	}
	if in.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidInput)
	}
	return nil
}

// CreateMarketEvent starts an operator-authored event. Severity and the
// price modifier are taken as given, never derived.
func (s *Service) CreateMarketEvent(ctx context.Context, in CreateMarketEventInput) (MarketEvent, error) {
	var ev MarketEvent
	if err := in.validate(); err != nil {
		return ev, err
	}
	duration := in.Duration
	if duration == 0 {
		duration = 24 * time.Hour
	}
	expiresAt := time.Now().UTC().Add(duration)
	var desc *string
	if d := strings.TrimSpace(in.Description); d != "" {
		desc = &d
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO market_events
		    (event_type, severity, affected_region_id, affected_item_id,
		     description, started_at, expires_at, price_modifier, is_active)
		VALUES ($1, $2, $3, $4, $5, now(), $6, $7, true)
		RETURNING id, started_at
	`, in.EventType, in.Severity, in.RegionID, in.ItemID, desc, expiresAt,
		in.PriceModifier).Scan(&ev.ID, &ev.StartedAt)
	if err != nil {
		return ev, err
	}

	ev.EventType = in.EventType
	ev.Severity = in.Severity
	ev.AffectedRegionID = in.RegionID
	ev.AffectedItemID = in.ItemID
	ev.Description = desc
	ev.ExpiresAt = &expiresAt
	ev.PriceModifier = in.PriceModifier
	ev.IsActive = true

	s.log.Info("market event created",
		"event_id", ev.ID, "type", in.EventType, "severity", in.Severity)
	s.publish("events", ev)
	return ev, nil
}

// RunEventTick rolls for a new random market event and retires stale ones.
func (s *Service) RunEventTick(ctx context.Context) error {
	if _, err := s.expireEvents(ctx); err != nil {
		return err
	}
	if s.nextFloat() >= eventSpawnChance {
		return nil
	}

	entry := s.drawEvent()
	severity := int32(1 + int(s.nextFloat()*5))
	if severity > 5 {
		severity = 5
	}
	// Severity pushes the modifier toward the extreme end of its range.
	frac := float64(severity-1) / 4.0
	modifier := entry.MinModifier + (entry.MaxModifier-entry.MinModifier)*frac

	regions, err := s.ListRegions(ctx)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		return nil
	}
	region := regions[int(s.nextFloat()*float64(len(regions)))%len(regions)]

	// Half the events target a single item, the rest hit the whole region.
	var itemID *uuid.UUID
	if s.nextFloat() < 0.5 {
		var id uuid.UUID
		err := s.db.QueryRow(ctx, `
			SELECT id FROM items ORDER BY random() LIMIT 1
		`).Scan(&id)
		if err == nil {
			itemID = &id
		}
	}

	duration := time.Duration(6+int(s.nextFloat()*66)) * time.Hour
	expiresAt := time.Now().UTC().Add(duration)
	desc := fmt.Sprintf("%s in %s", entry.Description, region.Name)

	var ev MarketEvent
	err = s.db.QueryRow(ctx, `
		INSERT INTO market_events
		    (event_type, severity, affected_region_id, affected_item_id,
		     description, started_at, expires_at, price_modifier, is_active)
		VALUES ($1, $2, $3, $4, $5, now(), $6, $7, true)
		RETURNING id, started_at
	`, entry.Type, severity, region.ID, itemID, desc, expiresAt,
		decimal.NewFromFloat(modifier).Round(4)).Scan(&ev.ID, &ev.StartedAt)
	if err != nil {
		return err
	}

	ev.EventType = entry.Type
	ev.Severity = severity
	ev.AffectedRegionID = &region.ID
	ev.AffectedItemID = itemID
	ev.Description = &desc
	ev.ExpiresAt = &expiresAt
	ev.PriceModifier = decimal.NewFromFloat(modifier).Round(4)
	ev.IsActive = true

	s.log.Info("market event started",
		"event_id", ev.ID, "type", entry.Type, "severity", severity, "region", region.Name)
	s.publish("events", ev)
	return nil
}

func (s *Service) drawEvent() eventSpec {
	var total float64
	for _, e := range eventTable {
		total += e.Weight
	}
	roll := s.nextFloat() * total
	for _, e := range eventTable {
		if roll < e.Weight {
			return e
		}
		roll -= e.Weight
	}
	return eventTable[len(eventTable)-1]
}

func (s *Service) expireEvents(ctx context.Context) (int64, error) {
	cmd, err := s.db.Exec(ctx, `
		UPDATE market_events
		SET is_active = false
		WHERE is_active = true AND expires_at IS NOT NULL AND expires_at <= now()
	`)
	if err != nil {
		return 0, err
	}
	if n := cmd.RowsAffected(); n > 0 {
		s.log.Info("expired market events", "count", n)
		return n, nil
	}
	return 0, nil
}
