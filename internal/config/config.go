package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AnalysisPrompts 保存帶版本的提示詞集合，便於切版比對分析品質。
type AnalysisPrompts struct {
	CurrentVersion string            `mapstructure:"currentVersion"`
	Versions       map[string]string `mapstructure:"versions"`
}

// Current 取出現行版本的提示詞。
func (p AnalysisPrompts) Current() (text, version string, ok bool) {
	text, found := p.Versions[p.CurrentVersion]
	return text, p.CurrentVersion, found && text != ""
}

// PromptConfig 定義兩階段影片分析的提示詞：
// StageA 產出面板評估與結構/字幕，StageB 產出支柱、紅旗與標籤體系。
type PromptConfig struct {
	StageA AnalysisPrompts `mapstructure:"stageA"`
	StageB AnalysisPrompts `mapstructure:"stageB"`
}

// GeminiClientConfig 設定推論邊界：主力/備援模型與單次請求逾時。
type GeminiClientConfig struct {
	APIKey         string        `mapstructure:"apiKey"`
	PrimaryModel   string        `mapstructure:"primaryModel"`
	FallbackModel  string        `mapstructure:"fallbackModel"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
}

// BitableConfig 設定外部記錄庫（多維表格）。
type BitableConfig struct {
	BaseURL       string `mapstructure:"baseURL"`
	AppToken      string `mapstructure:"appToken"`
	TableID       string `mapstructure:"tableID"`
	TokenProxyURL string `mapstructure:"tokenProxyURL"`

	// 回寫目標欄位名稱
	StatusField  string `mapstructure:"statusField"`
	ScoreField   string `mapstructure:"scoreField"`
	ReportField  string `mapstructure:"reportField"`
	TagField     string `mapstructure:"tagField"`
	TagFieldAlt  string `mapstructure:"tagFieldAlt"`
	VideoIDField string `mapstructure:"videoIDField"`
	TimeField    string `mapstructure:"timeField"`
}

// VideoSourceConfig 設定影片來源 worker 與輸入大小界限。
type VideoSourceConfig struct {
	WorkerURL string `mapstructure:"workerURL"`
	MinBytes  int    `mapstructure:"minBytes"`
	MaxBytes  int    `mapstructure:"maxBytes"`
}

// DatabaseConfig 設定本地稽核資料庫。
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
}

// SchedulerConfig 設定掃描與處理兩個排程任務。
type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ScanCronSpec    string `mapstructure:"scanCronSpec"`
	ProcessCronSpec string `mapstructure:"processCronSpec"`
}

// RateLimitConfig 設定對下游消費端點的串行化節流間隔。
type RateLimitConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Config 是應用程式的全部設定。
type Config struct {
	AppName      string             `mapstructure:"appName"`
	GeminiClient GeminiClientConfig `mapstructure:"geminiClient"`
	Bitable      BitableConfig      `mapstructure:"bitable"`
	VideoSource  VideoSourceConfig  `mapstructure:"videoSource"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Prompts      PromptConfig       `mapstructure:"prompts"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	RateLimit    RateLimitConfig    `mapstructure:"rateLimit"`
}

// Load 讀取設定檔並套用預設值；找不到設定檔時退回預設值與環境變數。
func Load(configPath string, configName string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 設定預設值
	v.SetDefault("appName", "videoscore-admin")
	v.SetDefault("geminiClient.primaryModel", "gemini-2.5-pro")
	v.SetDefault("geminiClient.fallbackModel", "gemini-2.5-flash")
	v.SetDefault("geminiClient.requestTimeout", "90s")
	v.SetDefault("bitable.baseURL", "https://open.feishu.cn/open-apis")
	v.SetDefault("bitable.statusField", "是否发起分析")
	v.SetDefault("bitable.scoreField", "视频得分")
	v.SetDefault("bitable.reportField", "视频脚本")
	v.SetDefault("bitable.tagField", "视频标签")
	v.SetDefault("bitable.tagFieldAlt", "视频标签（多选）")
	v.SetDefault("bitable.videoIDField", "Video ID")
	v.SetDefault("bitable.timeField", "Time")
	v.SetDefault("videoSource.minBytes", 10*1024)
	v.SetDefault("videoSource.maxBytes", 95*1024*1024)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.scanCronSpec", "0 0 2 * * *")
	v.SetDefault("scheduler.processCronSpec", "0 */10 * * * *")
	v.SetDefault("rateLimit.interval", "1s")
	v.SetDefault("prompts.stageA.currentVersion", "default-v1")
	v.SetDefault("prompts.stageA.versions.default-v1", "請分析影片的面板維度、敘事結構與字幕片段，輸出 JSON。")
	v.SetDefault("prompts.stageB.currentVersion", "default-v1")
	v.SetDefault("prompts.stageB.versions.default-v1", "請分析影片的消費者支柱、紅旗與標籤體系，輸出 JSON。")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("警告：找不到設定檔，將使用預設值和環境變數。")
		} else {
			return nil, fmt.Errorf("讀取設定檔時發生錯誤: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("無法解析設定檔到結構: %w", err)
	}

	if cfg.GeminiClient.APIKey == "" {
		fmt.Println("警告：Gemini API Key 未設定！")
	}
	if cfg.Bitable.AppToken == "" {
		fmt.Println("警告：Bitable App Token 未設定！")
	}

	fmt.Println("資訊：設定載入成功。")
	return &cfg, nil
}
