package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const TimestampLayout = "02/01/2006 15:04"

// WebData 是前端读取的 web_data.json
type WebData struct {
	LastUpdate string `json:"last_update"`
	ContentMD  string `json:"content_md"`
}

// Export 将简报 Markdown 转为 web_data.json。
// 简报不存在时跳过（skipped=true），不视为错误。
func Export(briefPath, outPath string, now time.Time, loc *time.Location) (skipped bool, err error) {
	content, err := os.ReadFile(briefPath)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read briefing: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(WebData{
		LastUpdate: now.In(loc).Format(TimestampLayout),
		ContentMD:  string(content),
	}); err != nil {
		return false, fmt.Errorf("encode web data: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".web_data-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	return false, os.Rename(tmp.Name(), outPath)
}

// Read 读取已导出的 web_data.json
func Read(path string) (*WebData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d WebData
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode web data: %w", err)
	}
	return &d, nil
}
