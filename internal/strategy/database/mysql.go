package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gold-signal-sentry/pkg/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Manager 数据库管理器
type Manager struct {
	db     *gorm.DB
	config types.MySQLConfig
}

// KLine 数据库K线模型
type KLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"type:varchar(20);not null;uniqueIndex:uk_symbol_interval_time" json:"symbol"`
	Interval  string    `gorm:"column:bar_interval;type:varchar(10);not null;default:'1d';uniqueIndex:uk_symbol_interval_time" json:"interval"`
	OpenTime  int64     `gorm:"not null;uniqueIndex:uk_symbol_interval_time" json:"open_time"`
	Open      float64   `gorm:"type:decimal(20,8);not null" json:"open"`
	High      float64   `gorm:"type:decimal(20,8);not null" json:"high"`
	Low       float64   `gorm:"type:decimal(20,8);not null" json:"low"`
	Close     float64   `gorm:"type:decimal(20,8);not null" json:"close"`
	Volume    *float64  `gorm:"type:decimal(20,8)" json:"volume"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalysisRecord 分析结果模型
type AnalysisRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AnalysisID     string    `gorm:"type:varchar(36);uniqueIndex" json:"analysis_id"`
	Symbol         string    `gorm:"type:varchar(20);not null;index:idx_symbol_time" json:"symbol"`
	AnalysisTime   int64     `gorm:"not null;index:idx_symbol_time" json:"analysis_time"`
	MarketState    string    `gorm:"type:varchar(20);not null" json:"market_state"`
	Price          float64   `gorm:"type:decimal(20,8);not null" json:"price"`
	SignalLevel    string    `gorm:"type:varchar(20);not null;index" json:"signal_level"`
	PositionSize   string    `gorm:"type:varchar(10)" json:"position_size"`
	CompositeScore *float64  `gorm:"type:decimal(8,2)" json:"composite_score"`
	TechnicalScore *float64  `gorm:"type:decimal(8,2)" json:"technical_score"`
	SentimentScore *float64  `gorm:"type:decimal(8,2)" json:"sentiment_score"`
	Confidence     *float64  `gorm:"type:decimal(5,2)" json:"confidence"`
	EntryPrice     *float64  `gorm:"type:decimal(20,8)" json:"entry_price"`
	StopLoss       *float64  `gorm:"type:decimal(20,8)" json:"stop_loss"`
	TakeProfit     *float64  `gorm:"type:decimal(20,8)" json:"take_profit"`
	RiskWarning    string    `gorm:"type:varchar(512)" json:"risk_warning"`
	Explanation    string    `gorm:"type:text" json:"explanation"`
	Payload        string    `gorm:"type:mediumtext" json:"-"` // 完整分析JSON
	CreatedAt      time.Time `json:"created_at"`
}

// DailySignalStats 每日信号统计模型
type DailySignalStats struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Symbol        string    `gorm:"type:varchar(20);not null;uniqueIndex:uk_symbol_date" json:"symbol"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:uk_symbol_date" json:"date"`
	TotalSignals  int       `gorm:"default:0" json:"total_signals"`
	BuySignals    int       `gorm:"default:0" json:"buy_signals"`
	SellSignals   int       `gorm:"default:0" json:"sell_signals"`
	HoldSignals   int       `gorm:"default:0" json:"hold_signals"`
	AvgConfidence *float64  `gorm:"type:decimal(5,2)" json:"avg_confidence"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewManager 创建数据库管理器
func NewManager(config types.MySQLConfig) (*Manager, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)

	// 配置GORM日志
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库实例失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	manager := &Manager{
		db:     db,
		config: config,
	}

	// 自动迁移表结构
	if err := manager.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	zap.L().Info("✅ MySQL数据库连接成功",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("database", config.Database))

	return manager, nil
}

// AutoMigrate 自动迁移表结构
func (m *Manager) AutoMigrate() error {
	return m.db.AutoMigrate(
		&KLine{},
		&AnalysisRecord{},
		&DailySignalStats{},
	)
}

// NewAnalysisRecord 分析结果转换为数据库模型
func NewAnalysisRecord(symbol string, analysis *types.MarketAnalysis) (*AnalysisRecord, error) {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("序列化分析结果失败: %w", err)
	}

	signal := analysis.Signal
	return &AnalysisRecord{
		AnalysisID:     analysis.ID,
		Symbol:         symbol,
		AnalysisTime:   analysis.Timestamp.Unix(),
		MarketState:    string(analysis.MarketState),
		Price:          analysis.CurrentPrice,
		SignalLevel:    string(signal.Level),
		PositionSize:   string(signal.Position),
		CompositeScore: signal.CompositeScore,
		TechnicalScore: signal.TechnicalScore,
		SentimentScore: signal.SentimentScore,
		Confidence:     signal.Confidence,
		EntryPrice:     signal.EntryPrice,
		StopLoss:       signal.StopLoss,
		TakeProfit:     signal.TakeProfit,
		RiskWarning:    signal.RiskWarning,
		Explanation:    analysis.Explanation,
		Payload:        string(payload),
		CreatedAt:      time.Now(),
	}, nil
}

// Analysis 还原完整分析结果
func (r *AnalysisRecord) Analysis() (*types.MarketAnalysis, error) {
	var analysis types.MarketAnalysis
	if err := json.Unmarshal([]byte(r.Payload), &analysis); err != nil {
		return nil, fmt.Errorf("解析分析记录失败: %w", err)
	}
	return &analysis, nil
}

// SaveAnalysis 保存分析结果并更新当日统计
func (m *Manager) SaveAnalysis(symbol string, analysis *types.MarketAnalysis) error {
	record, err := NewAnalysisRecord(symbol, analysis)
	if err != nil {
		return err
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("保存分析记录失败: %w", err)
		}
		return updateDailyStats(tx, symbol, analysis.Timestamp, analysis.Signal)
	})
}

// updateDailyStats 更新当日信号统计
func updateDailyStats(tx *gorm.DB, symbol string, at time.Time, signal types.TradingSignal) error {
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())

	var stats DailySignalStats
	result := tx.Where("symbol = ? AND date = ?", symbol, day).First(&stats)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		stats = DailySignalStats{Symbol: symbol, Date: day}
		stats.Add(signal)
		return tx.Create(&stats).Error
	} else if result.Error != nil {
		return result.Error
	}

	stats.Add(signal)
	return tx.Model(&stats).Where("id = ?", stats.ID).Updates(map[string]interface{}{
		"total_signals":  stats.TotalSignals,
		"buy_signals":    stats.BuySignals,
		"sell_signals":   stats.SellSignals,
		"hold_signals":   stats.HoldSignals,
		"avg_confidence": stats.AvgConfidence,
	}).Error
}

// Add 计入一条信号，置信度取滚动平均
func (s *DailySignalStats) Add(signal types.TradingSignal) {
	prevTotal := s.TotalSignals
	s.TotalSignals++

	switch {
	case signal.Level.IsBuy():
		s.BuySignals++
	case signal.Level.IsSell():
		s.SellSignals++
	default:
		s.HoldSignals++
	}

	if signal.Confidence == nil {
		return
	}
	if s.AvgConfidence == nil || prevTotal == 0 {
		avg := *signal.Confidence
		s.AvgConfidence = &avg
		return
	}
	avg := (*s.AvgConfidence*float64(prevTotal) + *signal.Confidence) / float64(s.TotalSignals)
	s.AvgConfidence = &avg
}

// BatchSaveKlines 批量保存K线数据，重复K线更新价格
func (m *Manager) BatchSaveKlines(symbol, interval string, bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	// 转换为数据库模型
	dbKlines := make([]KLine, 0, len(bars))
	for _, b := range bars {
		dbKlines = append(dbKlines, KLine{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  b.Time.Unix(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			CreatedAt: time.Now(),
		})
	}

	err := m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "bar_interval"}, {Name: "open_time"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).CreateInBatches(dbKlines, 100).Error
	if err != nil {
		return fmt.Errorf("批量保存K线数据失败: %w", err)
	}

	zap.L().Debug("✅ 批量保存K线数据完成",
		zap.Int("count", len(bars)),
		zap.String("symbol", symbol))

	return nil
}

// GetKLines 获取最近 limit 根K线，按时间正序返回
func (m *Manager) GetKLines(symbol, interval string, limit int) ([]types.Bar, error) {
	var dbKlines []KLine
	err := m.db.Where("symbol = ? AND bar_interval = ?", symbol, interval).
		Order("open_time DESC").
		Limit(limit).
		Find(&dbKlines).Error
	if err != nil {
		return nil, err
	}

	bars := make([]types.Bar, len(dbKlines))
	for i, k := range dbKlines {
		bars[len(dbKlines)-1-i] = types.Bar{
			Time:   time.Unix(k.OpenTime, 0),
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Volume,
		}
	}
	return bars, nil
}

// GetAnalyses 获取最近的分析记录
func (m *Manager) GetAnalyses(symbol string, limit int) ([]AnalysisRecord, error) {
	var records []AnalysisRecord
	err := m.db.Where("symbol = ?", symbol).
		Order("analysis_time DESC").
		Limit(limit).
		Find(&records).Error

	return records, err
}

// GetDailyStats 获取最近 days 天的信号统计
func (m *Manager) GetDailyStats(symbol string, days int) ([]DailySignalStats, error) {
	var stats []DailySignalStats
	startDate := time.Now().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	err := m.db.Where("symbol = ? AND date >= ?", symbol, startDate).
		Order("date DESC").
		Find(&stats).Error

	return stats, err
}

// Close 关闭数据库连接
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接健康状态
func (m *Manager) Health() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
