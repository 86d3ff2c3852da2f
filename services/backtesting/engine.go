package backtesting

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"research_platform_backend/models"
	"research_platform_backend/services/modelrunner"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Engine replays a published model's heuristic over cached price history
type Engine struct {
	db *gorm.DB
}

// NewEngine creates a new backtest engine
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Config holds backtest parameters
type Config struct {
	ModelID        uint
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	Commission     decimal.Decimal // rate, e.g. 0.0015 for 0.15%
	RiskPerTrade   decimal.Decimal // fraction of cash per entry
}

// position is an open position during the replay
type position struct {
	Ticker     string
	Quantity   int64
	EntryPrice decimal.Decimal
	EntryDate  time.Time
}

// state holds the running backtest state
type state struct {
	Cash        decimal.Decimal
	Equity      decimal.Decimal
	Positions   map[string]*position
	Closed      []models.BacktestTrade
	DailyEquity map[string]decimal.Decimal
	MaxEquity   decimal.Decimal
	MaxDrawdown decimal.Decimal
}

// Run executes a backtest for the model and persists the result.
func (e *Engine) Run(config *Config) (*models.ModelBacktest, error) {
	var model models.PublishedModel
	if err := e.db.First(&model, config.ModelID).Error; err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}

	tickers := splitTickers(model.Tickers)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("model %q has no tickers configured", model.Name)
	}

	backtest := &models.ModelBacktest{
		ModelID:        model.ID,
		StartDate:      config.StartDate,
		EndDate:        config.EndDate,
		InitialCapital: config.InitialCapital,
	}
	if err := e.db.Create(backtest).Error; err != nil {
		return nil, fmt.Errorf("failed to create backtest: %w", err)
	}

	// Preload close history per ticker, including warmup before the start
	// date so the heuristic has enough bars on day one.
	warmupStart := config.StartDate.AddDate(0, -4, 0)
	history := make(map[string][]models.PriceBar)
	for _, ticker := range tickers {
		var bars []models.PriceBar
		if err := e.db.Where("ticker = ? AND date >= ? AND date <= ?", ticker, warmupStart, config.EndDate).
			Order("date ASC").Find(&bars).Error; err != nil {
			return nil, fmt.Errorf("failed to load bars for %s: %w", ticker, err)
		}
		history[ticker] = bars
	}

	st := &state{
		Cash:        config.InitialCapital,
		Equity:      config.InitialCapital,
		Positions:   make(map[string]*position),
		DailyEquity: make(map[string]decimal.Decimal),
		MaxEquity:   config.InitialCapital,
	}

	for day := config.StartDate; !day.After(config.EndDate); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		lastClose := make(map[string]decimal.Decimal)
		for _, ticker := range tickers {
			bars := history[ticker]
			idx := barIndexOn(bars, day)
			if idx < 0 {
				continue
			}
			bar := bars[idx]
			lastClose[ticker] = bar.Close

			closes := closesUpTo(bars, idx)
			signal := modelrunner.Classify(model.Category, closes)

			switch signal.Action {
			case models.ActionBuy:
				if _, held := st.Positions[ticker]; !held && st.Cash.GreaterThan(decimal.Zero) {
					e.executeBuy(backtest.ID, ticker, &bar, st, config)
				}
			case models.ActionSell:
				if _, held := st.Positions[ticker]; held {
					e.executeSell(backtest.ID, ticker, &bar, st, config)
				}
			}
		}

		// Mark to market.
		totalEquity := st.Cash
		for ticker, pos := range st.Positions {
			if px, ok := lastClose[ticker]; ok {
				totalEquity = totalEquity.Add(px.Mul(decimal.NewFromInt(pos.Quantity)))
			} else {
				totalEquity = totalEquity.Add(pos.EntryPrice.Mul(decimal.NewFromInt(pos.Quantity)))
			}
		}
		st.Equity = totalEquity
		st.DailyEquity[day.Format("2006-01-02")] = totalEquity

		if totalEquity.GreaterThan(st.MaxEquity) {
			st.MaxEquity = totalEquity
		}
		if st.MaxEquity.GreaterThan(decimal.Zero) {
			drawdown := st.MaxEquity.Sub(totalEquity).Div(st.MaxEquity)
			if drawdown.GreaterThan(st.MaxDrawdown) {
				st.MaxDrawdown = drawdown
			}
		}
	}

	// Close remaining positions at the last available bar.
	for ticker := range st.Positions {
		bars := history[ticker]
		if len(bars) == 0 {
			continue
		}
		last := bars[len(bars)-1]
		e.executeSell(backtest.ID, ticker, &last, st, config)
	}

	CalculateMetrics(backtest, st.Equity, st.MaxDrawdown, st.Closed, config.InitialCapital, config.StartDate, config.EndDate)

	equityJSON, _ := json.Marshal(st.DailyEquity)
	backtest.EquityCurve = string(equityJSON)
	completedAt := time.Now()
	backtest.CompletedAt = &completedAt

	if err := e.db.Save(backtest).Error; err != nil {
		return nil, fmt.Errorf("failed to save backtest results: %w", err)
	}

	return backtest, nil
}

// executeBuy opens a position sized by RiskPerTrade.
func (e *Engine) executeBuy(backtestID uint, ticker string, bar *models.PriceBar, st *state, config *Config) {
	positionSize := st.Cash.Mul(config.RiskPerTrade)
	quantity := positionSize.Div(bar.Close).IntPart()
	if quantity <= 0 {
		return
	}

	totalCost := bar.Close.Mul(decimal.NewFromInt(quantity))
	commission := totalCost.Mul(config.Commission)
	totalAmount := totalCost.Add(commission)
	if totalAmount.GreaterThan(st.Cash) {
		return
	}

	st.Positions[ticker] = &position{
		Ticker:     ticker,
		Quantity:   quantity,
		EntryPrice: bar.Close,
		EntryDate:  bar.Date,
	}
	st.Cash = st.Cash.Sub(totalAmount)

	trade := models.BacktestTrade{
		BacktestID: backtestID,
		Ticker:     ticker,
		Type:       models.ActionBuy,
		Date:       bar.Date,
		Quantity:   quantity,
		Price:      bar.Close,
		Commission: commission,
	}
	e.db.Create(&trade)
}

// executeSell closes the position and records realized PnL.
func (e *Engine) executeSell(backtestID uint, ticker string, bar *models.PriceBar, st *state, config *Config) {
	pos, exists := st.Positions[ticker]
	if !exists {
		return
	}

	totalRevenue := bar.Close.Mul(decimal.NewFromInt(pos.Quantity))
	commission := totalRevenue.Mul(config.Commission)
	netRevenue := totalRevenue.Sub(commission)
	pnl := netRevenue.Sub(pos.EntryPrice.Mul(decimal.NewFromInt(pos.Quantity)))

	st.Cash = st.Cash.Add(netRevenue)
	delete(st.Positions, ticker)

	trade := models.BacktestTrade{
		BacktestID: backtestID,
		Ticker:     ticker,
		Type:       models.ActionSell,
		Date:       bar.Date,
		Quantity:   pos.Quantity,
		Price:      bar.Close,
		Commission: commission,
		PnL:        pnl,
	}
	e.db.Create(&trade)
	st.Closed = append(st.Closed, trade)
}

// CalculateMetrics fills in the performance metrics on a backtest from its
// closed trades and final equity.
func CalculateMetrics(backtest *models.ModelBacktest, finalEquity, maxDrawdown decimal.Decimal, closed []models.BacktestTrade, initialCapital decimal.Decimal, start, end time.Time) {
	backtest.FinalCapital = finalEquity
	backtest.MaxDrawdown = maxDrawdown

	totalReturn := decimal.Zero
	if initialCapital.GreaterThan(decimal.Zero) {
		totalReturn = finalEquity.Sub(initialCapital).Div(initialCapital)
	}
	backtest.TotalReturn = totalReturn

	days := end.Sub(start).Hours() / 24
	if years := days / 365.0; years > 0 {
		tr, _ := totalReturn.Float64()
		if tr > -1 {
			backtest.AnnualReturn = decimal.NewFromFloat(math.Pow(1+tr, 1/years) - 1)
		}
	}

	backtest.TotalTrades = len(closed)
	winning, losing := 0, 0
	totalWin, totalLoss := decimal.Zero, decimal.Zero
	for _, trade := range closed {
		if trade.PnL.GreaterThan(decimal.Zero) {
			winning++
			totalWin = totalWin.Add(trade.PnL)
		} else {
			losing++
			totalLoss = totalLoss.Add(trade.PnL.Abs())
		}
	}
	backtest.WinningTrades = winning
	backtest.LosingTrades = losing

	if backtest.TotalTrades > 0 {
		backtest.WinRate = decimal.NewFromInt(int64(winning)).Div(decimal.NewFromInt(int64(backtest.TotalTrades)))
	}
	if winning > 0 {
		backtest.AvgWin = totalWin.Div(decimal.NewFromInt(int64(winning)))
	}
	if losing > 0 {
		backtest.AvgLoss = totalLoss.Div(decimal.NewFromInt(int64(losing)))
	}
	if totalLoss.GreaterThan(decimal.Zero) {
		backtest.ProfitFactor = totalWin.Div(totalLoss)
	}

	// Crude Sharpe proxy: return over drawdown. Good enough to rank models
	// in the catalog; not a statistical Sharpe.
	backtest.SharpeRatio = totalReturn.Div(maxDrawdown.Add(decimal.NewFromFloat(0.01)))
}

// barIndexOn returns the index of the bar on the given calendar day, or -1.
func barIndexOn(bars []models.PriceBar, day time.Time) int {
	target := day.Format("2006-01-02")
	for i := len(bars) - 1; i >= 0; i-- {
		d := bars[i].Date.Format("2006-01-02")
		if d == target {
			return i
		}
		if d < target {
			return -1
		}
	}
	return -1
}

// closesUpTo returns the close series up to and including index idx.
func closesUpTo(bars []models.PriceBar, idx int) []float64 {
	closes := make([]float64, 0, idx+1)
	for i := 0; i <= idx; i++ {
		v, _ := bars[i].Close.Float64()
		closes = append(closes, v)
	}
	return closes
}

func splitTickers(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.ToUpper(strings.TrimSpace(part)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
