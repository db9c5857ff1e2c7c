package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Run is a persisted backtest artifact: configuration echo, final
// metrics, and a pointer to its snapshot rows.
type Run struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Symbols        string    `json:"symbols"`
	StartTS        int64     `json:"start_ts"`
	EndTS          int64     `json:"end_ts"`
	InitialCapital float64   `json:"initial_capital"`
	FinalValue     float64   `json:"final_value"`
	TotalReturn    float64   `json:"total_return"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	TotalTrades    int       `json:"total_trades"`
	WinRate        float64   `json:"win_rate"`
	Results        Results   `json:"results"`
	CreatedAt      time.Time `json:"created_at"`
}

type runModel struct {
	ID             string `gorm:"primaryKey"`
	Label          string
	Symbols        string
	StartTS        int64
	EndTS          int64
	InitialCapital float64
	FinalValue     float64
	TotalReturn    float64
	SharpeRatio    float64
	MaxDrawdown    float64
	TotalTrades    int
	WinRate        float64
	ResultsJSON    datatypes.JSON
	CreatedAt      time.Time
}

func (runModel) TableName() string { return "backtest_runs" }

type snapshotModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	RunID         string `gorm:"index"`
	TS            int64
	Value         float64
	Cash          float64
	RealizedPnL   float64
	UnrealizedPnL float64
}

func (snapshotModel) TableName() string { return "backtest_snapshots" }

// ResultStore persists backtest runs and their equity snapshots to
// SQLite. It is write-once per run; the engine never reads it back at
// startup.
type ResultStore struct {
	db *gorm.DB
}

func NewResultStore(path string) (*ResultStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &snapshotModel{}); err != nil {
		return nil, err
	}
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun persists a completed run with its snapshots and returns the
// generated run id.
func (s *ResultStore) SaveRun(label string, symbols []string, results Results, snapshots []Snapshot, initialCapital float64) (string, error) {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	run := runModel{
		ID:             uuid.NewString(),
		Label:          label,
		Symbols:        strings.Join(symbols, ","),
		StartTS:        results.StartTime,
		EndTS:          results.EndTime,
		InitialCapital: initialCapital,
		FinalValue:     initialCapital + results.TotalReturnDollars,
		TotalReturn:    results.TotalReturn,
		SharpeRatio:    results.SharpeRatio,
		MaxDrawdown:    results.MaxDrawdown,
		TotalTrades:    results.TotalTrades,
		WinRate:        results.WinRate,
		ResultsJSON:    datatypes.JSON(resultsJSON),
		CreatedAt:      time.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(snapshots) == 0 {
			return nil
		}
		rows := make([]snapshotModel, 0, len(snapshots))
		for _, snap := range snapshots {
			rows = append(rows, snapshotModel{
				RunID:         run.ID,
				TS:            snap.Timestamp,
				Value:         snap.Value,
				Cash:          snap.Cash,
				RealizedPnL:   snap.RealizedPnL,
				UnrealizedPnL: snap.UnrealizedPnL,
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// ListRuns returns runs newest first.
func (s *ResultStore) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []runModel
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(models))
	for _, m := range models {
		runs = append(runs, m.toRun())
	}
	return runs, nil
}

// GetRun fetches one run by id.
func (s *ResultStore) GetRun(id string) (Run, error) {
	var m runModel
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		return Run{}, err
	}
	return m.toRun(), nil
}

// Snapshots returns a run's equity series ordered by timestamp.
func (s *ResultStore) Snapshots(runID string) ([]Snapshot, error) {
	var models []snapshotModel
	if err := s.db.Where("run_id = ?", runID).Order("ts ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	snaps := make([]Snapshot, 0, len(models))
	for _, m := range models {
		snaps = append(snaps, Snapshot{
			Timestamp:     m.TS,
			Value:         m.Value,
			Cash:          m.Cash,
			RealizedPnL:   m.RealizedPnL,
			UnrealizedPnL: m.UnrealizedPnL,
		})
	}
	return snaps, nil
}

func (m runModel) toRun() Run {
	run := Run{
		ID:             m.ID,
		Label:          m.Label,
		Symbols:        m.Symbols,
		StartTS:        m.StartTS,
		EndTS:          m.EndTS,
		InitialCapital: m.InitialCapital,
		FinalValue:     m.FinalValue,
		TotalReturn:    m.TotalReturn,
		SharpeRatio:    m.SharpeRatio,
		MaxDrawdown:    m.MaxDrawdown,
		TotalTrades:    m.TotalTrades,
		WinRate:        m.WinRate,
		CreatedAt:      m.CreatedAt,
	}
	if len(m.ResultsJSON) > 0 {
		_ = json.Unmarshal(m.ResultsJSON, &run.Results)
	}
	return run
}
