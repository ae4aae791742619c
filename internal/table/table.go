package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/LJTian/FinRadar/internal/news"
)

var (
	RawHeader    = []string{"source", "title", "link"}
	RankedHeader = []string{"source", "title", "link", "score"}
)

// WriteRaw 写出未见过的条目；空列表也会写出表头
func WriteRaw(path string, items []news.FeedItem) error {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Source, it.Title, it.Link})
	}
	return write(path, RawHeader, rows)
}

// WriteRanked 写出完整的排序结果（不只 top-N）
func WriteRanked(path string, items []news.RankedItem) error {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Source, it.Title, it.Link, FormatScore(it.Score)})
	}
	return write(path, RankedHeader, rows)
}

func ReadRaw(path string) ([]news.FeedItem, error) {
	rows, err := read(path, RawHeader)
	if err != nil {
		return nil, err
	}
	items := make([]news.FeedItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, news.FeedItem{Source: r[0], Title: r[1], Link: r[2]})
	}
	return items, nil
}

func ReadRanked(path string) ([]news.RankedItem, error) {
	rows, err := read(path, RankedHeader)
	if err != nil {
		return nil, err
	}
	items := make([]news.RankedItem, 0, len(rows))
	for i, r := range rows {
		score, err := strconv.ParseFloat(strings.TrimSpace(r[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("table %s: row %d: invalid score %q", path, i+1, r[3])
		}
		items = append(items, news.RankedItem{
			FeedItem: news.FeedItem{Source: r[0], Title: r[1], Link: r[2]},
			Score:    score,
		})
	}
	return items, nil
}

func FormatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 1, 64)
}

// write 先写临时文件再 rename，下游不会读到写了一半的表
func write(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("table %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("table %s: %w", path, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("table %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("table %s: %w", path, err)
	}
	return nil
}

// read 按表头名定位列，返回按 want 顺序排列的行
func read(path string, want []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("table %s: missing header", path)
	}
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", path, err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	idx := make([]int, len(want))
	for i, col := range want {
		p, ok := pos[col]
		if !ok {
			return nil, fmt.Errorf("table %s: missing column %q", path, col)
		}
		idx[i] = p
	}

	var rows [][]string
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", path, err)
		}
		row := make([]string, len(want))
		for i, p := range idx {
			if p >= len(rec) {
				return nil, fmt.Errorf("table %s: line %d: missing %q", path, line, want[i])
			}
			row[i] = rec[p]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
