package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateDynasty founds a dynasty plus its first-generation founder
// character in one transaction. A user can have at most one active dynasty.
func (s *Service) CreateDynasty(ctx context.Context, in CreateDynastyInput) (DynastySummary, error) {
	var out DynastySummary
	in.Name = strings.TrimSpace(in.Name)
	in.FounderName = strings.TrimSpace(in.FounderName)
	if err := validateEntityName(in.Name); err != nil {
		return out, err
	}
	if in.FounderName == "" {
		in.FounderName = in.Name + " the Founder"
	}
	if err := validateEntityName(in.FounderName); err != nil {
		return out, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM dynasties
		WHERE user_id = $1 AND is_active = true
	`, in.UserID).Scan(&existing); err != nil {
		return out, err
	}
	if existing > 0 {
		return out, ErrDuplicateDynasty
	}

	d := Dynasty{Generation: 1, IsActive: true}
	var motto *string
	if m := strings.TrimSpace(in.Motto); m != "" {
		motto = &m
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO dynasties (user_id, name, motto, generation, is_active)
		VALUES ($1, $2, $3, 1, true)
		RETURNING id, user_id, name, motto, founded_at, generation, total_wealth, treasury, reputation, legacy_points, is_active
	`, in.UserID, in.Name, motto).Scan(
		&d.ID, &d.UserID, &d.Name, &d.Motto, &d.FoundedAt, &d.Generation,
		&d.TotalWealth, &d.Treasury, &d.Reputation, &d.LegacyPoints, &d.IsActive,
	)
	if err != nil {
		return out, err
	}

	founder, err := s.spawnCharacterTx(ctx, tx, d.ID, in.FounderName, 1, nil)
	if err != nil {
		return out, err
	}
	if err := refreshDynastyWealthTx(ctx, tx, d.ID); err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	s.log.Info("dynasty founded",
		"dynasty_id", d.ID, "user_id", in.UserID, "name", d.Name, "founder", founder.Name)

	out.DynastyView = newDynastyView(d)
	out.LivingMembers = 1
	out.TotalMembers = 1
	out.Characters = []CharacterView{newCharacterView(founder)}
	return out, nil
}

func newDynastyView(d Dynasty) DynastyView {
	return DynastyView{Dynasty: d, Prestige: d.Prestige(), Perks: d.Perks()}
}

// GetDynasty loads a dynasty with member counts and recent deaths. Access
// is not restricted: dynasties are public records.
func (s *Service) GetDynasty(ctx context.Context, dynastyID uuid.UUID) (DynastySummary, error) {
	var out DynastySummary
	d, err := s.dynastyByID(ctx, dynastyID)
	if err != nil {
		return out, err
	}
	out.DynastyView = newDynastyView(d)

	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(1) FILTER (WHERE is_alive), COUNT(1)
		FROM characters
		WHERE dynasty_id = $1
	`, dynastyID).Scan(&out.LivingMembers, &out.TotalMembers); err != nil {
		return out, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, character_id, dynasty_id, death_cause, wealth_at_death,
		       inheritance_tax, net_inheritance, market_impact_score, died_at
		FROM death_events
		WHERE dynasty_id = $1
		ORDER BY died_at DESC
		LIMIT 10
	`, dynastyID)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var ev DeathEvent
		if err := rows.Scan(&ev.ID, &ev.CharacterID, &ev.DynastyID, &ev.DeathCause,
			&ev.WealthAtDeath, &ev.InheritanceTax, &ev.NetInheritance,
			&ev.MarketImpactScore, &ev.DiedAt); err != nil {
			return out, err
		}
		out.RecentDeaths = append(out.RecentDeaths, ev)
	}
	return out, rows.Err()
}

func (s *Service) dynastyByID(ctx context.Context, dynastyID uuid.UUID) (Dynasty, error) {
	var d Dynasty
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, name, motto, founded_at, generation, total_wealth, treasury, reputation, legacy_points, is_active
		FROM dynasties
		WHERE id = $1
	`, dynastyID).Scan(
		&d.ID, &d.UserID, &d.Name, &d.Motto, &d.FoundedAt, &d.Generation,
		&d.TotalWealth, &d.Treasury, &d.Reputation, &d.LegacyPoints, &d.IsActive,
	)
	if err == pgx.ErrNoRows {
		return d, fmt.Errorf("dynasty %s: %w", dynastyID, ErrNotFound)
	}
	return d, err
}

// UserDynasty resolves the caller's active dynasty.
func (s *Service) UserDynasty(ctx context.Context, userID uuid.UUID) (DynastySummary, error) {
	var dynastyID uuid.UUID
	err := s.db.QueryRow(ctx, `
		SELECT id
		FROM dynasties
		WHERE user_id = $1 AND is_active = true
		ORDER BY founded_at DESC
		LIMIT 1
	`, userID).Scan(&dynastyID)
	if err == pgx.ErrNoRows {
		return DynastySummary{}, fmt.Errorf("no active dynasty: %w", ErrNotFound)
	}
	if err != nil {
		return DynastySummary{}, err
	}
	return s.GetDynasty(ctx, dynastyID)
}

// UpdateMotto changes the dynasty motto. Only the owner may do this.
func (s *Service) UpdateMotto(ctx context.Context, userID, dynastyID uuid.UUID, motto string) error {
	motto = strings.TrimSpace(motto)
	if len(motto) > 128 {
		return fmt.Errorf("%w: motto too long (max 128 chars)", ErrInvalidInput)
	}
	var m *string
	if motto != "" {
		m = &motto
	}
	cmd, err := s.db.Exec(ctx, `
		UPDATE dynasties
		SET motto = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
	`, m, dynastyID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := s.dynastyByID(ctx, dynastyID); err != nil {
			return err
		}
		return ErrForbidden
	}
	return nil
}

// Leaderboard ranks active dynasties by the requested metric. Prestige is
// computed in SQL with the same weights as Dynasty.Prestige.
func (s *Service) Leaderboard(ctx context.Context, metric LeaderboardMetric, limit int32) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var orderBy string
	switch metric {
	case MetricPrestige, "":
		orderBy = "prestige DESC"
	case MetricWealth:
		orderBy = "total_wealth DESC"
	case MetricReputation:
		orderBy = "reputation DESC"
	case MetricGeneration:
		orderBy = "generation DESC"
	case MetricLegacy:
		orderBy = "legacy_points DESC"
	default:
		return nil, fmt.Errorf("%q: %w", metric, ErrInvalidMetric)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, name, generation, total_wealth, reputation, legacy_points,
		       (FLOOR(total_wealth / 10000) + generation * 10 + reputation / 10 + legacy_points)::int AS prestige
		FROM dynasties
		WHERE is_active = true
		ORDER BY `+orderBy+`, founded_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	var rank int64 = 1
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.DynastyID, &r.Name, &r.Generation, &r.TotalWealth,
			&r.Reputation, &r.LegacyPoints, &r.Prestige); err != nil {
			return nil, err
		}
		r.Rank = rank
		rank++
		out = append(out, r)
	}
	return out, rows.Err()
}

// ModifyReputation shifts a dynasty's reputation by delta, clamped at zero,
// and returns the new value.
func (s *Service) ModifyReputation(ctx context.Context, dynastyID uuid.UUID, delta int32) (int32, error) {
	var reputation int32
	err := s.db.QueryRow(ctx, `
		UPDATE dynasties
		SET reputation = GREATEST(0, reputation + $1), updated_at = now()
		WHERE id = $2 AND is_active = true
		RETURNING reputation
	`, delta, dynastyID).Scan(&reputation)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("dynasty %s: %w", dynastyID, ErrNotFound)
	}
	return reputation, err
}

// AddLegacyPoints credits legacy points and returns the new total.
func (s *Service) AddLegacyPoints(ctx context.Context, dynastyID uuid.UUID, delta int32) (int32, error) {
	var legacy int32
	err := s.db.QueryRow(ctx, `
		UPDATE dynasties
		SET legacy_points = legacy_points + $1, updated_at = now()
		WHERE id = $2 AND is_active = true
		RETURNING legacy_points
	`, delta, dynastyID).Scan(&legacy)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("dynasty %s: %w", dynastyID, ErrNotFound)
	}
	return legacy, err
}

// AdvanceGeneration bumps the generation counter by exactly one, for when a
// new root heir supersedes the founder line.
func (s *Service) AdvanceGeneration(ctx context.Context, dynastyID uuid.UUID) (int32, error) {
	var generation int32
	err := s.db.QueryRow(ctx, `
		UPDATE dynasties
		SET generation = generation + 1, updated_at = now()
		WHERE id = $1 AND is_active = true
		RETURNING generation
	`, dynastyID).Scan(&generation)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("dynasty %s: %w", dynastyID, ErrNotFound)
	}
	return generation, err
}

// RecordWealthSnapshot appends a point-in-time wealth row for one dynasty.
// Current state is never mutated.
func (s *Service) RecordWealthSnapshot(ctx context.Context, dynastyID uuid.UUID) error {
	cmd, err := s.db.Exec(ctx, `
		INSERT INTO dynasty_wealth_history (dynasty_id, total_wealth, treasury, reputation, legacy_points, recorded_at)
		SELECT id, total_wealth, treasury, reputation, legacy_points, now()
		FROM dynasties
		WHERE id = $1 AND is_active = true
	`, dynastyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("dynasty %s: %w", dynastyID, ErrNotFound)
	}
	return nil
}

// RunWealthSnapshotTick snapshots every active dynasty in one statement.
func (s *Service) RunWealthSnapshotTick(ctx context.Context) (int64, error) {
	cmd, err := s.db.Exec(ctx, `
		INSERT INTO dynasty_wealth_history (dynasty_id, total_wealth, treasury, reputation, legacy_points, recorded_at)
		SELECT id, total_wealth, treasury, reputation, legacy_points, now()
		FROM dynasties
		WHERE is_active = true
	`)
	if err != nil {
		return 0, err
	}
	if n := cmd.RowsAffected(); n > 0 {
		s.log.Info("dynasty wealth snapshots recorded", "count", n)
		return n, nil
	}
	return 0, nil
}

// WealthHistory reads back recorded snapshots, newest first.
func (s *Service) WealthHistory(ctx context.Context, dynastyID uuid.UUID, limit int32) ([]WealthPoint, error) {
	if limit <= 0 || limit > 500 {
		limit = 90
	}
	rows, err := s.db.Query(ctx, `
		SELECT recorded_at, total_wealth, treasury, reputation, legacy_points
		FROM dynasty_wealth_history
		WHERE dynasty_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, dynastyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WealthPoint
	for rows.Next() {
		var p WealthPoint
		if err := rows.Scan(&p.RecordedAt, &p.TotalWealth, &p.Treasury, &p.Reputation, &p.LegacyPoints); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ownedDynastyTx loads a dynasty inside a transaction and checks ownership.
func ownedDynastyTx(ctx context.Context, tx pgx.Tx, dynastyID, userID uuid.UUID) (Dynasty, error) {
	var d Dynasty
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, name, motto, founded_at, generation, total_wealth, treasury, reputation, legacy_points, is_active
		FROM dynasties
		WHERE id = $1
		FOR UPDATE
	`, dynastyID).Scan(
		&d.ID, &d.UserID, &d.Name, &d.Motto, &d.FoundedAt, &d.Generation,
		&d.TotalWealth, &d.Treasury, &d.Reputation, &d.LegacyPoints, &d.IsActive,
	)
	if err == pgx.ErrNoRows {
		return d, fmt.Errorf("dynasty %s: %w", dynastyID, ErrNotFound)
	}
	if err != nil {
		return d, err
	}
	if d.UserID != userID {
		return d, ErrForbidden
	}
	return d, nil
}
