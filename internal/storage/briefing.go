package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("storage: not found")

// Briefing 每天一份执行简报（Markdown）
type Briefing struct {
	RunDate   string    `gorm:"primaryKey;size:10" json:"runDate"`
	ContentMD string    `gorm:"type:text" json:"contentMd"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SaveBriefing 写入或覆盖某天的简报
func (s *Store) SaveBriefing(ctx context.Context, runDate, markdown string) error {
	b := Briefing{RunDate: runDate, ContentMD: toValidUTF8(markdown)}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_md", "updated_at"}),
	}).Create(&b).Error
}

// LatestBriefing 返回最近一天的简报；没有数据时返回 ErrNotFound
func (s *Store) LatestBriefing(ctx context.Context) (*Briefing, error) {
	var b Briefing
	silent := s.DB.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
	err := silent.WithContext(ctx).Order("run_date DESC").First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
