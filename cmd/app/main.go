package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videoscore-admin/internal/clients/bitable"
	"videoscore-admin/internal/clients/gemini"
	"videoscore-admin/internal/clients/videosource"
	"videoscore-admin/internal/config"
	"videoscore-admin/internal/scheduler"
	"videoscore-admin/internal/services"
	"videoscore-admin/internal/storage/mysql"
	"videoscore-admin/internal/web"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load("./configs", "config")
	if err != nil {
		log.Fatalf("錯誤：無法載入設定: %v", err)
	}
	log.Println("資訊：應用程式設定載入成功。")

	// 資料庫遷移
	migrationPath := "file://scripts/migrate/mysql"
	dbDSNForMigrate := fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&multiStatements=true",
		cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	log.Printf("資訊：準備執行資料庫遷移，來源: %s, DSN 使用資料庫: %s", migrationPath, cfg.Database.DBName)
	m, err := migrate.New(migrationPath, dbDSNForMigrate)
	if err != nil {
		log.Fatalf("錯誤：建立遷移實例失敗: %v", err)
	}
	currentVersion, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		log.Fatalf("錯誤：獲取資料庫遷移版本失敗: %v", err)
	}
	if dirty {
		log.Fatalf("錯誤：資料庫處於 dirty 狀態 (版本 %d)，遷移失敗。", currentVersion)
	}
	log.Printf("資訊：目前資料庫版本: %d。開始應用遷移...", currentVersion)
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("錯誤：執行資料庫遷移 (m.Up) 失敗: %v", err)
	} else if err == migrate.ErrNoChange {
		log.Println("資訊：資料庫結構已是最新，無需遷移。")
	} else {
		newVersion, _, _ := m.Version()
		log.Printf("資訊：資料庫遷移成功完成，版本更新至: %d。", newVersion)
	}

	dbStore, err := mysql.NewMySQLStore(cfg.Database)
	if err != nil {
		log.Fatalf("錯誤：初始化 MySQL 資料庫連線失敗: %v", err)
	}
	defer dbStore.Close()

	ctx := context.Background()
	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiClient.APIKey, cfg.GeminiClient.PrimaryModel, cfg.GeminiClient.FallbackModel)
	if err != nil {
		log.Fatalf("錯誤：初始化 Gemini 客戶端失敗: %v", err)
	}

	bitableClient, err := bitable.NewClient(cfg.Bitable.BaseURL, cfg.Bitable.AppToken, cfg.Bitable.TableID, cfg.Bitable.TokenProxyURL, 30*time.Second)
	if err != nil {
		log.Fatalf("錯誤：初始化記錄庫客戶端失敗: %v", err)
	}

	sourceClient, err := videosource.NewClient(cfg.VideoSource.WorkerURL, 3*time.Minute)
	if err != nil {
		log.Fatalf("錯誤：初始化影片來源客戶端失敗: %v", err)
	}

	scoreSvc, err := services.NewScoreService(cfg, dbStore, bitableClient, sourceClient, geminiClient)
	if err != nil {
		log.Fatalf("錯誤：初始化評分服務失敗: %v", err)
	}
	scanSvc, err := services.NewScanService(cfg, dbStore, bitableClient, scoreSvc)
	if err != nil {
		log.Fatalf("錯誤：初始化掃描服務失敗: %v", err)
	}

	// 啟動時確保記錄庫具備回寫欄位，失敗不阻擋啟動，處理時會再次確保。
	if token, err := bitableClient.TenantAccessToken(ctx); err != nil {
		log.Printf("警告：啟動時取得存取權杖失敗，跳過欄位檢查: %v", err)
	} else if err := scoreSvc.EnsureFields(ctx, token); err != nil {
		log.Printf("警告：啟動時欄位檢查失敗: %v", err)
	}

	if cfg.Scheduler.Enabled {
		log.Println("資訊：排程器已在設定檔中啟用，正在初始化...")
		appScheduler := scheduler.NewScheduler(
			scanSvc,
			cfg.Scheduler.ScanCronSpec,
			cfg.Scheduler.ProcessCronSpec,
		)
		appScheduler.Start()
		log.Println("資訊：排程器已啟動。")
		defer appScheduler.Stop()
	} else {
		log.Println("資訊：排程器已在設定檔中禁用。")
	}

	router := web.SetupRouter(scoreSvc, scanSvc, dbStore)
	serverAddr := ":8080"
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		log.Printf("資訊：HTTP 伺服器正在監聽 %s\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("錯誤：HTTP 伺服器監聽失敗: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("資訊：收到關閉訊號，正在關閉應用程式...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("錯誤：HTTP 伺服器優雅關閉失敗: %v", err)
	}
	log.Println("資訊：HTTP 伺服器已關閉。")
	log.Println("資訊：應用程式已成功關閉。")
}
