package strategies

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/model"
)

var maxTotalAllocation = decimal.RequireFromString("1.01")

// ParseMultiStrategyConfig reads the startup strategy roster. One record
// per line, `extractor,strategy_id,allocation[,symbol]`, comments start
// with '#'. The extractor field may be a file path; its basename without
// extension is the registry name. Totals above 1.01 are rejected; totals
// below 1.0 leave the remainder in cash.
func ParseMultiStrategyConfig(r io.Reader) ([]model.StrategyConfig, error) {
	var configs []model.StrategyConfig
	seen := make(map[string]struct{})
	total := decimal.Zero

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 3 || len(fields) > 4 {
			return nil, fmt.Errorf("line %d: expected extractor,strategy_id,allocation[,symbol], got %q", lineNo, line)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		extractor := extractorName(fields[0])
		if extractor == "" {
			return nil, fmt.Errorf("line %d: extractor is required", lineNo)
		}

		strategyID := fields[1]
		if strategyID == "" {
			return nil, fmt.Errorf("line %d: strategy_id is required", lineNo)
		}
		if _, dup := seen[strategyID]; dup {
			return nil, fmt.Errorf("line %d: duplicate strategy_id %s", lineNo, strategyID)
		}

		allocation, err := decimal.NewFromString(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid allocation %q: %w", lineNo, fields[2], err)
		}
		if allocation.LessThanOrEqual(decimal.Zero) || allocation.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("line %d: allocation %s out of range (0, 1]", lineNo, allocation)
		}

		symbol := ""
		if len(fields) == 4 {
			symbol = fields[3]
		}

		total = total.Add(allocation)
		seen[strategyID] = struct{}{}
		configs = append(configs, model.StrategyConfig{
			StrategyID: strategyID,
			Extractor:  extractor,
			Allocation: allocation,
			Symbol:     symbol,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if total.GreaterThan(maxTotalAllocation) {
		return nil, fmt.Errorf("total allocation %s exceeds %s", total, maxTotalAllocation)
	}
	if total.LessThan(decimal.NewFromInt(1)) {
		logger.WithFields(logger.Fields{
			"total":     total,
			"remainder": decimal.NewFromInt(1).Sub(total),
		}).Info("strategy allocations sum below 1.0, remainder stays in cash")
	}

	return configs, nil
}

// LoadMultiStrategyConfig reads the roster from a file.
func LoadMultiStrategyConfig(path string) ([]model.StrategyConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening strategy config: %w", err)
	}
	defer f.Close()

	configs, err := ParseMultiStrategyConfig(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return configs, nil
}

// extractorName maps a raw extractor field, possibly a source file path,
// to a registry name.
func extractorName(raw string) string {
	base := filepath.Base(raw)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
