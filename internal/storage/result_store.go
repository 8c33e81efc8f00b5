package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
)

// ResultStore 结果文件存取
// 每次Save都写入完整的记录快照,JSON在前,CSV在后
type ResultStore struct {
	structuredPath string
	tabularPath    string
}

// NewResultStore 创建结果存储
func NewResultStore(structuredPath, tabularPath string) *ResultStore {
	return &ResultStore{
		structuredPath: structuredPath,
		tabularPath:    tabularPath,
	}
}

// Paths 返回JSON与CSV文件路径
func (s *ResultStore) Paths() (string, string) {
	return s.structuredPath, s.tabularPath
}

// Save 覆盖写入全部记录
func (s *ResultStore) Save(records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}

	if err := writeFileAtomic(s.structuredPath, func(w io.Writer) error {
		return encodeJSON(w, records)
	}); err != nil {
		return fmt.Errorf("写入JSON结果失败: %w", err)
	}

	if err := writeFileAtomic(s.tabularPath, func(w io.Writer) error {
		return encodeCSV(w, records)
	}); err != nil {
		return fmt.Errorf("写入CSV结果失败: %w", err)
	}

	utils.Logger.Debug().
		Int("records", len(records)).
		Str("json", s.structuredPath).
		Str("csv", s.tabularPath).
		Msg("结果已保存")
	return nil
}

// Load 从JSON文件读取已保存的记录,文件不存在时返回空集
func (s *ResultStore) Load() ([]models.Record, error) {
	data, err := os.ReadFile(s.structuredPath)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取结果文件失败: %w", err)
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.structuredPath, err)
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

// Count 已保存的记录数
func (s *ResultStore) Count() (int, error) {
	records, err := s.Load()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// LoadTabular 从CSV文件读取记录,空单元格还原为缺失字段
func (s *ResultStore) LoadTabular() ([]models.Record, error) {
	f, err := os.Open(s.tabularPath)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取CSV文件失败: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(models.CSVHeader)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.tabularPath, err)
	}
	if len(rows) == 0 {
		return []models.Record{}, nil
	}

	records := make([]models.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		index, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s 第%d行序号无效: %q", ErrCorrupt, s.tabularPath, i+2, row[0])
		}
		records = append(records, models.Record{
			Index:       index,
			Title:       models.Text(row[1]),
			Description: models.Text(row[2]),
			Author:      models.Text(row[3]),
			CourseURL:   models.Text(row[4]),
		})
	}
	return records, nil
}

func encodeJSON(w io.Writer, records []models.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func encodeCSV(w io.Writer, records []models.Record) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(models.CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.CSVRow()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
