package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"videoscore-admin/internal/models"
)

// ModelTier 標記本次請求使用主力或備援模型。
type ModelTier string

const (
	TierPrimary  ModelTier = "primary"
	TierFallback ModelTier = "fallback"
)

// OutcomeKind 是推論結果的封閉分類。
// 協調器據此決定重試路徑：只有 EmptyContent 走「重試一次再降級」，
// 其他失敗種類各有各的處置，不靠錯誤訊息字串比對分流。
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeEmptyContent
	OutcomeParseError
	OutcomeTransientError
)

// AnalysisOutcome 是一次推論呼叫的顯式結果型別。
type AnalysisOutcome struct {
	Kind    OutcomeKind
	Payload *models.AnalysisPayload
	RawJSON string
	Err     error
}

// Client 結構用於與 Gemini API 互動，持有主力與備援兩級影片分析模型。
type Client struct {
	primaryModel  *genai.GenerativeModel
	fallbackModel *genai.GenerativeModel
	primaryName   string
	fallbackName  string
}

// NewClient 建立一個 Gemini 客戶端實例。
func NewClient(ctx context.Context, apiKey, primaryName, fallbackName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API Key 不得為空")
	}
	if primaryName == "" {
		primaryName = "gemini-2.5-pro"
		log.Printf("警告：[Gemini Client] 未提供主力模型名稱，使用預設值: %s\n", primaryName)
	}
	if fallbackName == "" {
		fallbackName = "gemini-2.5-flash"
		log.Printf("警告：[Gemini Client] 未提供備援模型名稱，使用預設值: %s\n", fallbackName)
	}

	sdkClient, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("無法建立 Gemini GenAI SDK 客戶端: %w", err)
	}

	newModel := func(name string) *genai.GenerativeModel {
		m := sdkClient.GenerativeModel(name)
		var cfg genai.GenerationConfig
		cfg.ResponseMIMEType = "application/json"
		m.GenerationConfig = cfg
		return m
	}

	log.Printf("資訊：[Gemini Client] 影片分析模型初始化成功（主力: %s, 備援: %s）。\n", primaryName, fallbackName)
	return &Client{
		primaryModel:  newModel(primaryName),
		fallbackModel: newModel(fallbackName),
		primaryName:   primaryName,
		fallbackName:  fallbackName,
	}, nil
}

// ModelName 回傳指定層級的模型名稱，供稽核記錄。
func (c *Client) ModelName(tier ModelTier) string {
	if tier == TierFallback {
		return c.fallbackName
	}
	return c.primaryName
}

// cleanJSONString 清理從 LLM 收到的可能包含雜質的 JSON 字串：
// 剝除 markdown 代碼塊標記、截取最外層 JSON 結構、清除無效 UTF-8 與控制字元。
func cleanJSONString(rawResponse string) string {
	cleaned := strings.TrimSpace(rawResponse)

	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	// 尋找最外層的 JSON 結構
	var potentialJSON string
	firstBrace := strings.Index(cleaned, "{")
	lastBrace := strings.LastIndex(cleaned, "}")
	firstBracket := strings.Index(cleaned, "[")
	lastBracket := strings.LastIndex(cleaned, "]")
	isObject := firstBrace != -1 && lastBrace != -1 && lastBrace > firstBrace
	isArray := firstBracket != -1 && lastBracket != -1 && lastBracket > firstBracket

	if isObject && (!isArray || firstBrace < firstBracket) {
		potentialJSON = cleaned[firstBrace : lastBrace+1]
	} else if isArray && (!isObject || firstBracket < firstBrace) {
		potentialJSON = cleaned[firstBracket : lastBracket+1]
	} else {
		potentialJSON = cleaned
	}
	potentialJSON = strings.TrimSpace(potentialJSON)

	if !utf8.ValidString(potentialJSON) {
		log.Println("警告：[Gemini Client Clean] 回應包含無效的 UTF-8 字元，嘗試替換...")
		potentialJSON = strings.ToValidUTF8(potentialJSON, "")
	}

	// 移除控制字元
	var sb strings.Builder
	for _, r := range potentialJSON {
		if (r >= 0 && r < 9) || (r > 10 && r < 13) || (r > 13 && r < 32) || r == 127 {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimPrefix(sb.String(), "\uFEFF")
}

// AnalyzeVideo 向 Gemini API 發送影片位元組與提示進行分析，
// 以顯式的 AnalysisOutcome 回報結果。呼叫端不需要解讀錯誤字串：
// 空回應、解析失敗與暫時性錯誤各自對應一個結果種類。
func (c *Client) AnalyzeVideo(ctx context.Context, videoData []byte, mimeType, prompt string, tier ModelTier) AnalysisOutcome {
	log.Printf("資訊：[Gemini Client] AnalyzeVideo - 開始分析影片 (大小: %d bytes, 模型: %s)\n", len(videoData), c.ModelName(tier))
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	model := c.primaryModel
	if tier == TierFallback {
		model = c.fallbackModel
	}

	requestParts := []genai.Part{
		genai.Text(prompt),
		genai.Blob{MIMEType: mimeType, Data: videoData},
	}
	resp, err := model.GenerateContent(ctx, requestParts...)
	if err != nil {
		return AnalysisOutcome{Kind: OutcomeTransientError, Err: fmt.Errorf("Gemini API 影片分析 GenerateContent 失敗: %w", err)}
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return AnalysisOutcome{Kind: OutcomeEmptyContent, Err: fmt.Errorf("Gemini API 影片分析回應無效或為空 (nil response or no candidates)")}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			if candidate.SafetyRatings != nil {
				for _, rating := range candidate.SafetyRatings {
					log.Printf("警告：[Gemini Client] 安全評級 - Category: %s, Probability: %s\n", rating.Category, rating.Probability)
				}
			}
			return AnalysisOutcome{Kind: OutcomeEmptyContent, Err: fmt.Errorf("Gemini API 回應內容被阻止，原因: %s", candidate.FinishReason.String())}
		}
		return AnalysisOutcome{Kind: OutcomeEmptyContent, Err: fmt.Errorf("Gemini API 回應無內容 (FinishReason: %s)", candidate.FinishReason.String())}
	}

	var responseTextBuilder strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseTextBuilder.WriteString(string(txt))
		} else {
			log.Printf("警告：[Gemini Client] AnalyzeVideo - 收到非預期的 Part 類型: %T\n", part)
		}
	}
	rawText := responseTextBuilder.String()
	if strings.TrimSpace(rawText) == "" {
		return AnalysisOutcome{Kind: OutcomeEmptyContent, Err: fmt.Errorf("Gemini API 影片分析回傳的文字內容為空")}
	}

	cleanedJSON := cleanJSONString(rawText)
	if !json.Valid([]byte(cleanedJSON)) {
		log.Printf("錯誤：[Gemini Client] AnalyzeVideo - 清理後的字串仍然不是有效的 JSON (前200字元): %s\n", firstNChars(cleanedJSON, 200))
		return AnalysisOutcome{Kind: OutcomeParseError, RawJSON: cleanedJSON, Err: fmt.Errorf("清理後的字串不是有效的 JSON")}
	}

	var payload models.AnalysisPayload
	if err := json.Unmarshal([]byte(cleanedJSON), &payload); err != nil {
		log.Printf("錯誤：[Gemini Client] AnalyzeVideo - 無法將回應解析為分析結構: %v\n", err)
		return AnalysisOutcome{Kind: OutcomeParseError, RawJSON: cleanedJSON, Err: fmt.Errorf("無法將 Gemini API 回應解析為分析結構: %w", err)}
	}
	log.Println("資訊：[Gemini Client] AnalyzeVideo - JSON 回應解析成功。")
	return AnalysisOutcome{Kind: OutcomeSuccess, Payload: &payload, RawJSON: cleanedJSON}
}

// firstNChars 取字串前 n 個字元，避免切在 UTF-8 字元中間。
func firstNChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
