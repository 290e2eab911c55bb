// Package snapshot 上线日余额快照的数据源实现
package snapshot

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// CSVSource 从 CSV 文件加载的快照数据源，格式为 address,balance。
// 全量载入内存后只读，适合单次比对任务。
type CSVSource struct {
	balances map[string]decimal.Decimal
}

// LoadCSV 读取快照文件
func LoadCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	balances := make(map[string]decimal.Decimal)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot record: %w", err)
		}
		line++

		address := strings.TrimSpace(record[0])
		// 首行允许是表头
		if line == 1 && strings.EqualFold(address, "address") {
			continue
		}
		balance, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("snapshot line %d: invalid balance %q", line, record[1])
		}
		balances[address] = balance
	}
	return &CSVSource{balances: balances}, nil
}

// Balance 查询地址的快照余额
func (s *CSVSource) Balance(address string) (decimal.Decimal, bool) {
	balance, ok := s.balances[address]
	return balance, ok
}

// Len 快照条目数
func (s *CSVSource) Len() int {
	return len(s.balances)
}
