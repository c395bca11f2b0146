package game

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunPriceSnapshotTick aggregates the currently active listings into the
// price history table, one row per region and item. Ghost estate listings
// count at their marked-up effective price. Volatility is the spread of
// asking prices relative to the average.
func (s *Service) RunPriceSnapshotTick(ctx context.Context) (int64, error) {
	cmd, err := s.db.Exec(ctx, `
		WITH asks AS (
			SELECT region_id,
			       item_id,
			       CASE WHEN is_ghost_listing THEN price * ghost_price_modifier ELSE price END AS effective_price,
			       quantity
			FROM market_listings
			WHERE is_active = true
			  AND (expires_at IS NULL OR expires_at > now())
		)
		INSERT INTO market_prices (time, region_id, item_id, avg_price, min_price, max_price, volume, volatility)
		SELECT date_trunc('hour', now()),
		       region_id,
		       item_id,
		       SUM(effective_price * quantity) / SUM(quantity),
		       MIN(effective_price),
		       MAX(effective_price),
		       SUM(quantity),
		       (MAX(effective_price) - MIN(effective_price)) / NULLIF(SUM(effective_price * quantity) / SUM(quantity), 0)
		FROM asks
		GROUP BY region_id, item_id
		ON CONFLICT (time, region_id, item_id) DO UPDATE
		SET avg_price = EXCLUDED.avg_price,
		    min_price = EXCLUDED.min_price,
		    max_price = EXCLUDED.max_price,
		    volume = EXCLUDED.volume,
		    volatility = EXCLUDED.volatility
	`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// PriceHistory returns hourly price points for an item in a region, oldest
// first, bounded by the window in days.
func (s *Service) PriceHistory(ctx context.Context, regionID, itemID uuid.UUID, days int32) ([]PricePoint, error) {
	if days <= 0 || days > 90 {
		days = 30
	}
	rows, err := s.db.Query(ctx, `
		SELECT time, avg_price, min_price, max_price, volume
		FROM market_prices
		WHERE region_id = $1 AND item_id = $2
		  AND time > now() - ($3 || ' days')::interval
		ORDER BY time ASC
	`, regionID, itemID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PricePoint, 0)
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Time, &p.AvgPrice, &p.MinPrice, &p.MaxPrice, &p.Volume); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PriceAnalytics computes the trading indicators over an item's recent
// history in one region.
func (s *Service) PriceAnalytics(ctx context.Context, regionID, itemID uuid.UUID, days int32) (PriceAnalytics, error) {
	out := PriceAnalytics{RegionID: regionID, ItemID: itemID, Window: fmt.Sprintf("%dd", days), Trend: "flat"}
	points, err := s.PriceHistory(ctx, regionID, itemID, days)
	if err != nil {
		return out, err
	}
	out.Points = points
	if len(points) == 0 {
		return out, nil
	}

	series := make([]float64, len(points))
	for i, p := range points {
		f, _ := p.AvgPrice.Float64()
		series[i] = f
	}

	out.SMA7 = simpleMovingAverage(series, 7)
	out.SMA14 = simpleMovingAverage(series, 14)
	out.SMA30 = simpleMovingAverage(series, 30)
	out.EMA7 = exponentialMovingAverage(series, 7)
	out.EMA14 = exponentialMovingAverage(series, 14)
	out.RSI14 = relativeStrengthIndex(series, 14)
	upper, middle, lower := bollingerBands(series, 20, 2.0)
	out.BollUpper, out.BollMiddle, out.BollLower = upper, middle, lower
	out.Trend = classifyTrend(out.SMA7, out.SMA30, series)
	return out, nil
}

// simpleMovingAverage over the trailing period, nil when the series is
// shorter than the period.
func simpleMovingAverage(series []float64, period int) *float64 {
	if len(series) < period || period <= 0 {
		return nil
	}
	var sum float64
	for _, v := range series[len(series)-period:] {
		sum += v
	}
	avg := sum / float64(period)
	return &avg
}

func exponentialMovingAverage(series []float64, period int) *float64 {
	if len(series) < period || period <= 0 {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	ema := series[0]
	for _, v := range series[1:] {
		ema = v*k + ema*(1.0-k)
	}
	return &ema
}

// relativeStrengthIndex (Wilder's RSI) over the trailing period.
func relativeStrengthIndex(series []float64, period int) *float64 {
	if len(series) < period+1 || period <= 0 {
		return nil
	}
	var gains, losses float64
	start := len(series) - period
	for i := start; i < len(series); i++ {
		delta := series[i] - series[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	if losses == 0 {
		hundred := 100.0
		return &hundred
	}
	rs := (gains / float64(period)) / (losses / float64(period))
	rsi := 100.0 - 100.0/(1.0+rs)
	return &rsi
}

func bollingerBands(series []float64, period int, width float64) (upper, middle, lower *float64) {
	mid := simpleMovingAverage(series, period)
	if mid == nil {
		return nil, nil, nil
	}
	var variance float64
	for _, v := range series[len(series)-period:] {
		d := v - *mid
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))
	u := *mid + width*sd
	l := *mid - width*sd
	return &u, mid, &l
}

func classifyTrend(shortMA, longMA *float64, series []float64) string {
	if shortMA != nil && longMA != nil {
		switch {
		case *shortMA > *longMA*1.02:
			return "rising"
		case *shortMA < *longMA*0.98:
			return "falling"
		default:
			return "flat"
		}
	}
	if len(series) >= 2 {
		first, last := series[0], series[len(series)-1]
		switch {
		case last > first*1.02:
			return "rising"
		case last < first*0.98:
			return "falling"
		}
	}
	return "flat"
}

// Arbitrage finds items whose cheapest active listing in one region beats
// the going rate in another by more than the buy-side tax. Routes are
// ranked by net margin.
func (s *Service) Arbitrage(ctx context.Context, limit int32) ([]ArbitrageRoute, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		WITH best AS (
			SELECT l.region_id, l.item_id,
			       MIN(l.price * CASE WHEN l.is_ghost_listing THEN l.ghost_price_modifier ELSE 1 END) AS best_price
			FROM market_listings l
			WHERE l.is_active = true AND l.quantity > 0
			  AND (l.expires_at IS NULL OR l.expires_at > now())
			GROUP BY l.region_id, l.item_id
		)
		SELECT buy.item_id, i.name,
		       buy.region_id, rb.name, sell.region_id, rs.name,
		       buy.best_price, sell.best_price,
		       rb.tax_rate
		FROM best buy
		JOIN best sell ON sell.item_id = buy.item_id AND sell.region_id <> buy.region_id
		JOIN items i ON i.id = buy.item_id
		JOIN regions rb ON rb.id = buy.region_id
		JOIN regions rs ON rs.id = sell.region_id
		WHERE sell.best_price > buy.best_price
		ORDER BY (sell.best_price - buy.best_price) / buy.best_price DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ArbitrageRoute, 0)
	for rows.Next() {
		var r ArbitrageRoute
		var buyTaxRate decimal.Decimal
		if err := rows.Scan(&r.ItemID, &r.ItemName,
			&r.BuyRegionID, &r.BuyRegionName, &r.SellRegionID, &r.SellRegionName,
			&r.BuyPrice, &r.SellPrice, &buyTaxRate); err != nil {
			return nil, err
		}
		r.GrossSpread = r.SellPrice.Sub(r.BuyPrice)
		buyTax := r.BuyPrice.Mul(buyTaxRate).Div(decimal.NewFromInt(100))
		r.NetSpread = r.GrossSpread.Sub(buyTax)
		if r.BuyPrice.IsPositive() {
			r.NetMarginPct = r.NetSpread.Div(r.BuyPrice).Mul(decimal.NewFromInt(100)).Round(2)
		}
		if !r.NetSpread.IsPositive() {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
