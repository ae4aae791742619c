package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/FinRadar/internal/export"
	"github.com/LJTian/FinRadar/internal/pipeline"
	"github.com/LJTian/FinRadar/internal/storage"
	"github.com/LJTian/FinRadar/internal/table"
)

// Archive 是 API 依赖的只读归档（Postgres）
type Archive interface {
	ListRanked(ctx context.Context, date string, limit int) ([]storage.RankedNews, error)
	ListRunDates(ctx context.Context, limit int) ([]string, error)
	LatestBriefing(ctx context.Context) (*storage.Briefing, error)
	ListChannels(ctx context.Context) ([]storage.Channel, error)
}

// Trigger 在后台启动一次流水线
type Trigger interface {
	Go(ctx context.Context) error
}

type Server struct {
	archive Archive
	runs    Trigger
	paths   pipeline.Paths
}

// NewServer 创建 API；archive 为 nil 时直接读取数据目录中的产物
func NewServer(archive Archive, runs Trigger, paths pipeline.Paths) *Server {
	return &Server{archive: archive, runs: runs, paths: paths}
}

type rankedView struct {
	RunDate string  `json:"runDate"`
	Rank    int     `json:"rank"`
	Source  string  `json:"source"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}

type briefingView struct {
	RunDate   string `json:"runDate"`
	ContentMD string `json:"contentMd"`
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ranked", s.listRanked)
		v1.GET("/dates", s.listDates)
		v1.GET("/channels", s.listChannels)
		v1.GET("/briefing/latest", s.latestBriefing)
		v1.GET("/web-data", s.webData)
		v1.POST("/runs", s.triggerRun)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listRanked(c *gin.Context) {
	date := c.Query("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	if s.archive == nil {
		s.rankedFromFile(c, limit)
		return
	}

	rows, err := s.archive.ListRanked(c.Request.Context(), date, limit)
	if err != nil {
		internalError(c)
		return
	}
	items := make([]rankedView, 0, len(rows))
	for _, r := range rows {
		items = append(items, rankedView{RunDate: r.RunDate, Rank: r.Rank, Source: r.Source, Title: r.Title, URL: r.URL, Score: r.Score})
	}
	ok(c, items)
}

func (s *Server) rankedFromFile(c *gin.Context, limit int) {
	rows, err := table.ReadRanked(s.paths.Ranked)
	if errors.Is(err, fs.ErrNotExist) {
		ok(c, []rankedView{})
		return
	}
	if err != nil {
		internalError(c)
		return
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]rankedView, 0, len(rows))
	for i, r := range rows {
		items = append(items, rankedView{Rank: i + 1, Source: r.Source, Title: r.Title, URL: r.Link, Score: r.Score})
	}
	ok(c, items)
}

func (s *Server) listDates(c *gin.Context) {
	if s.archive == nil {
		ok(c, []string{})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "31"))
	dates, err := s.archive.ListRunDates(c.Request.Context(), limit)
	if err != nil {
		internalError(c)
		return
	}
	ok(c, dates)
}

func (s *Server) listChannels(c *gin.Context) {
	if s.archive == nil {
		ok(c, []storage.Channel{})
		return
	}
	list, err := s.archive.ListChannels(c.Request.Context())
	if err != nil {
		internalError(c)
		return
	}
	ok(c, list)
}

func (s *Server) latestBriefing(c *gin.Context) {
	if s.archive != nil {
		b, err := s.archive.LatestBriefing(c.Request.Context())
		switch {
		case err == nil:
			ok(c, briefingView{RunDate: b.RunDate, ContentMD: b.ContentMD})
			return
		case !errors.Is(err, storage.ErrNotFound):
			internalError(c)
			return
		}
	}

	info, err := os.Stat(s.paths.Brief)
	if err != nil {
		notFound(c, "no briefing yet")
		return
	}
	content, err := os.ReadFile(s.paths.Brief)
	if err != nil {
		internalError(c)
		return
	}
	ok(c, briefingView{RunDate: info.ModTime().Format("2006-01-02"), ContentMD: string(content)})
}

func (s *Server) webData(c *gin.Context) {
	d, err := export.Read(s.paths.WebData)
	if errors.Is(err, fs.ErrNotExist) {
		notFound(c, "web data not exported yet")
		return
	}
	if err != nil {
		internalError(c)
		return
	}
	// 前端直接消费 {last_update, content_md}
	c.JSON(http.StatusOK, d)
}

func (s *Server) triggerRun(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "unavailable", "message": "pipeline not configured"})
		return
	}
	// 后台运行不随请求结束而取消，最长运行时间由流水线的 RunTimeout 限定
	if err := s.runs.Go(context.Background()); err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"code": "busy", "message": "a run is already in progress"})
			return
		}
		internalError(c)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": "accepted", "message": "pipeline run started"})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": msg})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}
