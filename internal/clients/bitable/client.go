// Package bitable 封裝外部表格記錄庫（飛書多維表格）的 REST 介面：
// 欄位元資料、欄位自舉、記錄查詢與回寫。所有呼叫都帶 Bearer Token，
// Token 可由呼叫端透傳，或經 Token 代理服務換取。
package bitable

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

// 飛書欄位型別代碼。
const (
	FieldTypeText        = 1
	FieldTypeNumber      = 2
	FieldTypeMultiSelect = 20
)

// DefaultBaseURL 是飛書開放平台的 API 端點。
const DefaultBaseURL = "https://open.feishu.cn/open-apis"

// 新建的多選選項要等服務端傳播後才能在記錄寫入中引用。
const optionPropagationDelay = 3 * time.Second

// Client 結構用於與多維表格 API 互動。
type Client struct {
	httpClient    *http.Client
	baseURL       string
	appToken      string
	tableID       string
	tokenProxyURL string
}

// FieldMeta 是一個欄位的元資料。
type FieldMeta struct {
	FieldID   string         `json:"field_id"`
	FieldName string         `json:"field_name"`
	Type      int            `json:"type"`
	Property  *FieldProperty `json:"property,omitempty"`
}

// FieldProperty 目前只關心多選欄位的選項集。
type FieldProperty struct {
	Options []FieldOption `json:"options,omitempty"`
}

// FieldOption 是多選欄位的一個選項。
type FieldOption struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Record 是一筆表格記錄。
type Record struct {
	RecordID string                 `json:"record_id"`
	Fields   map[string]interface{} `json:"fields"`
}

// apiResponse 是飛書 API 的通用回應外殼。
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// NewClient 建立多維表格客戶端。baseURL 為空時使用官方端點。
func NewClient(baseURL, appToken, tableID, tokenProxyURL string, timeout time.Duration) (*Client, error) {
	if appToken == "" {
		return nil, fmt.Errorf("Bitable App Token 不得為空")
	}
	if tableID == "" {
		return nil, fmt.Errorf("Bitable Table ID 不得為空")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		appToken:      appToken,
		tableID:       tableID,
		tokenProxyURL: tokenProxyURL,
	}, nil
}

// doJSON 送出一個帶 Token 的 JSON 請求並解開通用回應外殼。
func (c *Client) doJSON(ctx context.Context, method, url, token string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化請求內容失敗: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("建立請求失敗: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("請求 %s 失敗: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("讀取回應失敗: %w", err)
	}
	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("回應不是有效的 JSON (HTTP %d): %s", resp.StatusCode, firstNBytes(raw, 200))
	}
	if resp.StatusCode != http.StatusOK || envelope.Code != 0 {
		return nil, fmt.Errorf("Bitable API 錯誤 (HTTP %d, code %d): %s", resp.StatusCode, envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}

func (c *Client) fieldsURL() string {
	return fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s/fields", c.baseURL, c.appToken, c.tableID)
}

// ListFields 取得資料表的全部欄位元資料。
func (c *Client) ListFields(ctx context.Context, token string) ([]FieldMeta, error) {
	data, err := c.doJSON(ctx, http.MethodGet, c.fieldsURL(), token, nil)
	if err != nil {
		return nil, fmt.Errorf("取得欄位元資料失敗: %w", err)
	}
	var out struct {
		Items []FieldMeta `json:"items"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("解析欄位元資料失敗: %w", err)
	}
	return out.Items, nil
}

// EnsureField 確保指定名稱與型別的欄位存在，不存在就建立。
func (c *Client) EnsureField(ctx context.Context, token, fieldName string, fieldType int) error {
	fields, err := c.ListFields(ctx, token)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if f.FieldName == fieldName {
			return nil
		}
	}
	payload := map[string]interface{}{"field_name": fieldName, "type": fieldType}
	if _, err := c.doJSON(ctx, http.MethodPost, c.fieldsURL(), token, payload); err != nil {
		return fmt.Errorf("建立欄位 '%s' 失敗: %w", fieldName, err)
	}
	log.Printf("資訊：[Bitable Client] 已建立欄位 '%s' (type %d)。\n", fieldName, fieldType)
	return nil
}

// FieldTarget 是多選標籤欄位的寫入目標。
type FieldTarget struct {
	FieldID   string
	FieldName string
}

// GetOrCreateMultiSelectField 取得標籤多選欄位，必要時建立。
// 若主名稱已被同名的非多選欄位占用，改用備用名稱。
func (c *Client) GetOrCreateMultiSelectField(ctx context.Context, token, primaryName, altName string) (FieldTarget, error) {
	fields, err := c.ListFields(ctx, token)
	if err != nil {
		return FieldTarget{}, err
	}
	for _, f := range fields {
		if f.FieldName == primaryName && f.Type == FieldTypeMultiSelect {
			return FieldTarget{FieldID: f.FieldID, FieldName: primaryName}, nil
		}
	}
	for _, f := range fields {
		if f.FieldName == altName && f.Type == FieldTypeMultiSelect {
			return FieldTarget{FieldID: f.FieldID, FieldName: altName}, nil
		}
	}

	payload := map[string]interface{}{
		"field_name": altName,
		"type":       FieldTypeMultiSelect,
		"property":   map[string]interface{}{"options": []interface{}{}},
	}
	data, err := c.doJSON(ctx, http.MethodPost, c.fieldsURL(), token, payload)
	if err != nil {
		return FieldTarget{}, fmt.Errorf("建立多選欄位 '%s' 失敗: %w", altName, err)
	}
	var created struct {
		Field FieldMeta `json:"field"`
	}
	if err := json.Unmarshal(data, &created); err != nil || created.Field.FieldID == "" {
		// 部分版本的 API 把欄位平鋪在 data 上
		var flat FieldMeta
		if err2 := json.Unmarshal(data, &flat); err2 != nil || flat.FieldID == "" {
			return FieldTarget{}, fmt.Errorf("解析新建多選欄位回應失敗")
		}
		return FieldTarget{FieldID: flat.FieldID, FieldName: altName}, nil
	}
	return FieldTarget{FieldID: created.Field.FieldID, FieldName: altName}, nil
}

// EnsureMultiSelectOptions 確保多選欄位包含指定選項，缺的追加。
func (c *Client) EnsureMultiSelectOptions(ctx context.Context, token, fieldID, fieldName string, optionNames []string) error {
	if len(optionNames) == 0 {
		return nil
	}
	fields, err := c.ListFields(ctx, token)
	if err != nil {
		return err
	}
	var current []FieldOption
	for _, f := range fields {
		if f.FieldID == fieldID && f.Property != nil {
			current = f.Property.Options
			break
		}
	}

	exists := make(map[string]bool, len(current))
	for _, o := range current {
		exists[o.Name] = true
	}
	merged := append([]FieldOption{}, current...)
	var added int
	for _, name := range optionNames {
		if !exists[name] {
			merged = append(merged, FieldOption{Name: name})
			added++
		}
	}
	if added == 0 {
		return nil
	}

	url := fmt.Sprintf("%s/%s", c.fieldsURL(), fieldID)
	payload := map[string]interface{}{
		"field_name": fieldName,
		"type":       FieldTypeMultiSelect,
		"property":   map[string]interface{}{"options": merged},
	}
	if _, err := c.doJSON(ctx, http.MethodPut, url, token, payload); err != nil {
		return fmt.Errorf("更新多選欄位選項失敗: %w", err)
	}
	log.Printf("資訊：[Bitable Client] 多選欄位 '%s' 追加了 %d 個選項，等待選項傳播。\n", fieldName, added)
	select {
	case <-time.After(optionPropagationDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// SearchCondition 是記錄查詢的一個過濾條件。
type SearchCondition struct {
	FieldName string   `json:"field_name"`
	Operator  string   `json:"operator"`
	Value     []string `json:"value"`
}

// SearchRecords 以 AND 條件查詢記錄，單頁最多 500 筆。
func (c *Client) SearchRecords(ctx context.Context, token string, conditions []SearchCondition) ([]Record, error) {
	url := fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s/records/search", c.baseURL, c.appToken, c.tableID)
	payload := map[string]interface{}{
		"filter": map[string]interface{}{
			"conjunction": "and",
			"conditions":  conditions,
		},
		"page_size": 500,
	}
	data, err := c.doJSON(ctx, http.MethodPost, url, token, payload)
	if err != nil {
		return nil, fmt.Errorf("查詢記錄失敗: %w", err)
	}
	var out struct {
		Items []Record `json:"items"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("解析記錄查詢結果失敗: %w", err)
	}
	return out.Items, nil
}

// GetRecord 依 record_id 取得單筆記錄，找不到回傳 nil。
func (c *Client) GetRecord(ctx context.Context, token, recordID string) (*Record, error) {
	url := fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s/records/%s", c.baseURL, c.appToken, c.tableID, recordID)
	data, err := c.doJSON(ctx, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Record *Record `json:"record"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("解析記錄失敗: %w", err)
	}
	return out.Record, nil
}

// UpdateRecord 更新單筆記錄的欄位。記錄回寫不做重試：
// 失敗直接回報，由呼叫端決定是否換一種欄位格式退回重寫。
func (c *Client) UpdateRecord(ctx context.Context, token, recordID string, fields map[string]interface{}) error {
	url := fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s/records/%s", c.baseURL, c.appToken, c.tableID, recordID)
	payload := map[string]interface{}{"fields": fields}
	if _, err := c.doJSON(ctx, http.MethodPut, url, token, payload); err != nil {
		return fmt.Errorf("更新記錄 %s 失敗: %w", recordID, err)
	}
	return nil
}

// TenantAccessToken 從 Token 代理服務換取 tenant_access_token。
// 工作描述自帶 Token 時不會走到這裡。
func (c *Client) TenantAccessToken(ctx context.Context) (string, error) {
	if c.tokenProxyURL == "" {
		return "", fmt.Errorf("未設定 Token 代理服務，且工作描述未提供 accessToken")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenProxyURL, nil)
	if err != nil {
		return "", fmt.Errorf("建立 Token 代理請求失敗: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Token 代理請求失敗: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("讀取 Token 代理回應失敗: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Token 代理回應異常 (HTTP %d): %s", resp.StatusCode, firstNBytes(raw, 200))
	}
	var out struct {
		TenantAccessToken string `json:"tenant_access_token"`
		AccessToken       string `json:"access_token"`
		Token             string `json:"token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("解析 Token 代理回應失敗: %w", err)
	}
	token := out.TenantAccessToken
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		token = out.Token
	}
	if token == "" {
		return "", fmt.Errorf("Token 代理未回傳 tenant_access_token")
	}
	return token, nil
}

func firstNBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
