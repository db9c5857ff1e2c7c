package backtest

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// LoadCSV reads a trade log with columns timestamp,symbol,price,volume.
// Lines starting with # are comments; a header is detected by the
// literal words "timestamp" or "symbol" on the first data line.
// Timestamps are Unix milliseconds. Records are returned sorted
// ascending by timestamp. A malformed row aborts the load.
func LoadCSV(path string) ([]TradeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	var records []TradeRecord
	scanner := bufio.NewScanner(f)
	lineNo := 0
	sawFirst := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !sawFirst {
			sawFirst = true
			lower := strings.ToLower(line)
			if strings.Contains(lower, "timestamp") || strings.Contains(lower, "symbol") {
				continue
			}
		}
		rec, err := parseRow(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	SortByTimestamp(records)
	return records, nil
}

func parseRow(line string) (TradeRecord, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return TradeRecord{}, fmt.Errorf("expected 4 columns, got %d", len(fields))
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("bad timestamp %q", fields[0])
	}
	symbol := strings.TrimSpace(fields[1])
	if symbol == "" {
		return TradeRecord{}, fmt.Errorf("empty symbol")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("bad price %q", fields[2])
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("bad volume %q", fields[3])
	}
	return TradeRecord{Timestamp: ts, Symbol: symbol, Price: price, Volume: volume}, nil
}

// FilterBySymbol keeps records for one symbol.
func FilterBySymbol(data []TradeRecord, symbol string) []TradeRecord {
	var out []TradeRecord
	for _, rec := range data {
		if rec.Symbol == symbol {
			out = append(out, rec)
		}
	}
	return out
}

// FilterByTimeRange keeps records with start <= ts <= end.
func FilterByTimeRange(data []TradeRecord, start, end int64) []TradeRecord {
	var out []TradeRecord
	for _, rec := range data {
		if rec.Timestamp >= start && rec.Timestamp <= end {
			out = append(out, rec)
		}
	}
	return out
}

// SortByTimestamp sorts records ascending by timestamp, stably so
// same-timestamp rows keep file order.
func SortByTimestamp(data []TradeRecord) {
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Timestamp < data[j].Timestamp
	})
}
