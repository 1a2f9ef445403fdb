// Package chat implements the AI analysis assistant on top of the Gemini
// API, grounding each reply in live market data.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"StockDesk/internal/model"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	maxOutputTokens      = 8192
	generateRetries      = 2
)

const systemPrompt = `Bạn là StockDesk AI - Trợ lý Phân tích Chứng khoán Việt Nam chuyên nghiệp.

NHIỆM VỤ:
- Phân tích cổ phiếu dựa trên dữ liệu thị trường thực
- Đưa ra nhận định chuyên nghiệp, có căn cứ dữ liệu
- Trả lời bằng Tiếng Việt

KHI PHÂN TÍCH CỔ PHIẾU, SỬ DỤNG FORMAT SAU:

## 📊 PHÂN TÍCH [SYMBOL]

### 🔹 TỔNG QUAN
(Mô tả ngắn về công ty, ngành nghề, vị thế thị trường)

### 🔹 CHỈ SỐ TÀI CHÍNH
(Phân tích P/E, ROE, EPS, Beta - so sánh với ngành)

### 🔹 ĐỊNH GIÁ
(Đánh giá giá hiện tại vs giá mục tiêu, upside/downside)

### 🔹 XU HƯỚNG KỸ THUẬT
(Phân tích xu hướng giá, khối lượng giao dịch)

### 🔹 KHUYẾN NGHỊ
(Đưa ra khuyến nghị: MUA/GIỮ/BÁN với lý do rõ ràng)

⚠️ LƯU Ý: Đây là phân tích tham khảo, không phải tư vấn đầu tư.`

const assistantGreeting = "Xin chào! Tôi là StockDesk AI - Trợ lý phân tích chứng khoán. " +
	"Tôi sẵn sàng phân tích bất kỳ mã cổ phiếu nào trên thị trường Việt Nam với dữ liệu thời gian thực. " +
	"Bạn muốn phân tích mã nào?"

// Turn is one prior exchange fed back to the model as history.
type Turn struct {
	Role model.ChatRole
	Text string
}

// Generator produces an assistant reply for a prompt given prior turns and
// a market-data context block.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []Turn, marketContext string) (string, error)
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	log     *zap.Logger
}

func NewGeminiClient(apiKey, baseURL, modelName string, log *zap.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   modelName,
		client:  &http.Client{Timeout: 120 * time.Second},
		log:     log,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func geminiRole(r model.ChatRole) string {
	if r == model.RoleAssistant {
		return "model"
	}
	return "user"
}

// Generate sends the prompt with the system priming, prior turns and market
// context, retrying transient failures with exponential backoff.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, history []Turn, marketContext string) (string, error) {
	primer := systemPrompt
	if marketContext != "" {
		primer += "\n\n---\nDỮ LIỆU THỊ TRƯỜNG HIỆN TẠI:\n" + marketContext
	}

	contents := make([]geminiContent, 0, len(history)+3)
	contents = append(contents,
		geminiContent{Role: "user", Parts: []geminiPart{{Text: primer}}},
		geminiContent{Role: "model", Parts: []geminiPart{{Text: assistantGreeting}}},
	)
	for _, t := range history {
		contents = append(contents, geminiContent{Role: geminiRole(t.Role), Parts: []geminiPart{{Text: t.Text}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: prompt}}})

	req := geminiRequest{Contents: contents}
	req.GenerationConfig.MaxOutputTokens = maxOutputTokens
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= generateRetries; attempt++ {
		reply, err := g.generateOnce(ctx, body)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		g.log.Warn("gemini call failed",
			zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", fmt.Errorf("gemini: all %d attempts failed: %w", generateRetries+1, lastErr)
}

func (g *GeminiClient) generateOnce(ctx context.Context, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}

	var text string
	for _, p := range out.Candidates[0].Content.Parts {
		text += p.Text
	}
	return text, nil
}
