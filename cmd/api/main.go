package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/LJTian/FinRadar/internal/api"
	"github.com/LJTian/FinRadar/internal/app"
	"github.com/LJTian/FinRadar/internal/config"
	"github.com/LJTian/FinRadar/internal/pipeline"
	"github.com/LJTian/FinRadar/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	a, err := app.Build(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("init pipeline failed: %v", err)
	}
	defer a.Close()

	s, err := scheduler.New(cfg.CronSpec, cfg.Location(), a.Pipeline,
		scheduler.WithBusyError(pipeline.ErrBusy),
		scheduler.WithRunTimeout(cfg.RunTimeout),
	)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	if cfg.RunOnStart {
		// 延迟执行首轮，避免与首屏请求争抢资源
		s.StartWithWarmup(15 * time.Second)
	} else {
		s.Start()
	}
	defer s.Stop()
	log.Printf("pipeline scheduled with %q (%s), next run at %s", cfg.CronSpec, cfg.Timezone, s.Next().Format(time.RFC3339))

	// API
	r := gin.Default()
	r.Use(cors.New(api.CORSConfig(cfg.FrontendURL)))
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	var archive api.Archive
	if a.Store != nil {
		archive = a.Store
	}
	apiServer := api.NewServer(archive, a.Pipeline, a.Pipeline.Paths())
	apiServer.RegisterRoutes(r)

	// 若配置了前端目录，则托管 SPA 静态文件并做 fallback
	if cfg.WebRoot != "" {
		assetsDir := filepath.Join(cfg.WebRoot, "assets")
		indexFile := filepath.Join(cfg.WebRoot, "index.html")
		r.Static("/assets", assetsDir)
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet {
				c.Status(http.StatusNotFound)
				return
			}
			c.File(indexFile)
		})
	}

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
