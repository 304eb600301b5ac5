// Package videosource 封裝影片來源邊界：
// 先以 POST 向 worker 端點解析 videoId → downloadUrl，再二次下載二進位內容。
package videosource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client 結構用於從遠端 worker 取得影片二進位內容。
type Client struct {
	httpClient *http.Client
	workerURL  string
}

// NewClient 建立影片來源客戶端。
func NewClient(workerURL string, timeout time.Duration) (*Client, error) {
	if workerURL == "" {
		return nil, fmt.Errorf("影片來源 Worker URL 不得為空")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		workerURL:  workerURL,
	}, nil
}

// resolveItem 是 worker 回應陣列中的一筆解析結果。
type resolveItem struct {
	VideoID     string `json:"videoId"`
	DownloadURL string `json:"downloadUrl"`
}

// FetchVideo 依影片識別碼取得影片位元組。
// 任一步失敗都是該影片的終止性錯誤，由呼叫端寫入「下载失败」狀態。
func (c *Client) FetchVideo(ctx context.Context, videoID string) ([]byte, error) {
	if videoID == "" {
		return nil, fmt.Errorf("影片識別碼不得為空")
	}

	body, err := json.Marshal(map[string]interface{}{"ids": []string{videoID}})
	if err != nil {
		return nil, fmt.Errorf("序列化解析請求失敗: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.workerURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("建立解析請求失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Worker 解析請求失敗: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Worker 解析請求回應異常: HTTP %d", resp.StatusCode)
	}

	var items []resolveItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("解析 Worker 回應失敗: %w", err)
	}
	var downloadURL string
	for _, item := range items {
		if item.VideoID == videoID {
			downloadURL = item.DownloadURL
			break
		}
	}
	if downloadURL == "" {
		return nil, fmt.Errorf("此影片識別碼沒有對應的下載連結")
	}

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("建立下載請求失敗: %w", err)
	}
	dlReq.Header.Set("User-Agent", "Mozilla/5.0")

	dlResp, err := c.httpClient.Do(dlReq)
	if err != nil {
		return nil, fmt.Errorf("下載影片失敗: %w", err)
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下載影片回應異常: HTTP %d", dlResp.StatusCode)
	}

	data, err := io.ReadAll(dlResp.Body)
	if err != nil {
		return nil, fmt.Errorf("讀取影片內容失敗: %w", err)
	}
	log.Printf("資訊：[VideoSource Client] 影片 %s 下載完成 (%d bytes)。\n", videoID, len(data))
	return data, nil
}
