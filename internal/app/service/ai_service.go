package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yorunoba/nightdesk-backend/internal/ai"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/storage"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
)

var (
	ErrAIUnavailable    = errors.New("ai feature is not configured")
	ErrAIBadAnswer      = errors.New("ai answer could not be parsed")
	ErrInvalidImageType = errors.New("unsupported image type")
)

// imageTypes are the MIME types accepted for menu photos and uploads.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

const menuExtractionPrompt = `この画像は飲食店のメニュー表です。
掲載されている商品をすべて読み取り、次の形式のJSON配列だけを返してください。
[{"category_name": "カテゴリ名", "name": "商品名", "price": 1000, "description": "補足"}]
価格は税込の円の整数にしてください。読み取れない価格は0にしてください。`

const priceResearchPrompt = `あなたは日本のナイトワーク業界の価格調査担当です。
エリア「%s」のキャバクラ・ラウンジ・バーにおける「%s」の一般的な店頭価格を推定し、
次の形式のJSONオブジェクトだけを返してください。
{"min_price": 0, "max_price": 0, "typical_price": 0, "summary": "根拠の短い説明"}
価格は円の整数です。`

func copyPrompt(req model.CopyRequest) string {
	var b strings.Builder
	b.WriteString("ナイトワーク店舗のSNS担当として、次のテーマで投稿文を1つ作成してください。\n")
	fmt.Fprintf(&b, "テーマ: %s\n", req.Topic)
	if req.Tone != "" {
		fmt.Fprintf(&b, "トーン: %s\n", req.Tone)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "含めるキーワード: %s\n", strings.Join(req.Keywords, "、"))
	}
	if req.Platform != "" {
		fmt.Fprintf(&b, "投稿先: %s\n", req.Platform)
	}
	b.WriteString("本文だけを返し、ハッシュタグは末尾に3つまで付けてください。")
	return b.String()
}

// GeneratedImage is an AI image stored in object storage.
type GeneratedImage struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	MIMEType string `json:"mime_type"`
}

type AIService interface {
	// ExtractMenusFromPhoto returns drafts; nothing is saved.
	ExtractMenusFromPhoto(ctx context.Context, actor model.Actor, image []byte, mimeType string) ([]model.MenuDraft, error)
	ResearchMarketPrice(ctx context.Context, actor model.Actor, menuName, area string) (*model.PriceResearch, error)
	GenerateCopy(ctx context.Context, actor model.Actor, req model.CopyRequest) (string, error)
	GenerateImage(ctx context.Context, actor model.Actor, prompt string) (*GeneratedImage, error)
}

// AIBackends holds whichever models are configured. Any of them may be nil.
type AIBackends struct {
	Text   ai.TextGenerator
	Vision ai.VisionModel
	Images ai.ImageGenerator
}

type aiService struct {
	backends AIBackends
	storage  storage.ObjectStorage
}

func NewAIService(backends AIBackends, objects storage.ObjectStorage) AIService {
	return &aiService{backends: backends, storage: objects}
}

func aiError(feature string, err error) error {
	if errors.Is(err, ai.ErrNotConfigured) {
		return ErrAIUnavailable
	}
	logger.Error("AI request failed", err, map[string]interface{}{
		"feature": feature,
	})
	return err
}

func (s *aiService) ExtractMenusFromPhoto(ctx context.Context, actor model.Actor, image []byte, mimeType string) ([]model.MenuDraft, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if s.backends.Vision == nil {
		return nil, ErrAIUnavailable
	}
	if _, ok := imageTypes[mimeType]; !ok {
		return nil, ErrInvalidImageType
	}
	if len(image) == 0 {
		return nil, ErrInvalidInput
	}

	answer, err := s.backends.Vision.DescribeImage(ctx, menuExtractionPrompt, image, mimeType)
	if err != nil {
		return nil, aiError("menu_extraction", err)
	}

	var drafts []model.MenuDraft
	if err := json.Unmarshal([]byte(ai.ExtractJSON(answer)), &drafts); err != nil {
		logger.Warn("Menu extraction answer is not JSON", map[string]interface{}{
			"store_id": actor.StoreID,
			"error":    err.Error(),
		})
		return nil, ErrAIBadAnswer
	}

	out := drafts[:0]
	for _, d := range drafts {
		d.Name = strings.TrimSpace(d.Name)
		d.CategoryName = strings.TrimSpace(d.CategoryName)
		if d.Name == "" {
			continue
		}
		if d.Price < 0 {
			d.Price = 0
		}
		out = append(out, d)
	}

	logger.Info("Menu photo extracted", map[string]interface{}{
		"store_id": actor.StoreID,
		"drafts":   len(out),
	})
	return out, nil
}

func (s *aiService) ResearchMarketPrice(ctx context.Context, actor model.Actor, menuName, area string) (*model.PriceResearch, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if s.backends.Text == nil {
		return nil, ErrAIUnavailable
	}
	menuName = strings.TrimSpace(menuName)
	area = strings.TrimSpace(area)
	if menuName == "" {
		return nil, ErrInvalidInput
	}
	if area == "" {
		area = "東京"
	}

	answer, err := s.backends.Text.GenerateText(ctx, fmt.Sprintf(priceResearchPrompt, area, menuName))
	if err != nil {
		return nil, aiError("price_research", err)
	}

	var research model.PriceResearch
	if err := json.Unmarshal([]byte(ai.ExtractJSON(answer)), &research); err != nil {
		return nil, ErrAIBadAnswer
	}
	research.MenuName = menuName
	research.Area = area
	if research.MinPrice > research.MaxPrice {
		research.MinPrice, research.MaxPrice = research.MaxPrice, research.MinPrice
	}
	return &research, nil
}

func (s *aiService) GenerateCopy(ctx context.Context, actor model.Actor, req model.CopyRequest) (string, error) {
	if !actor.IsManager() {
		return "", ErrForbidden
	}
	if s.backends.Text == nil {
		return "", ErrAIUnavailable
	}
	if strings.TrimSpace(req.Topic) == "" {
		return "", ErrInvalidInput
	}
	if req.Platform != "" && !req.Platform.Valid() {
		return "", ErrInvalidPlatform
	}

	text, err := s.backends.Text.GenerateText(ctx, copyPrompt(req))
	if err != nil {
		return "", aiError("copy", err)
	}
	return strings.TrimSpace(text), nil
}

func (s *aiService) GenerateImage(ctx context.Context, actor model.Actor, prompt string) (*GeneratedImage, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if s.backends.Images == nil || s.storage == nil {
		return nil, ErrAIUnavailable
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrInvalidInput
	}

	data, mimeType, err := s.backends.Images.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, aiError("image", err)
	}
	ext, ok := imageTypes[mimeType]
	if !ok {
		mimeType, ext = "image/png", ".png"
	}

	key := storage.ObjectKey(actor.StoreID, "ai", "generated"+ext)
	url, err := s.storage.Upload(ctx, key, mimeType, data)
	if err != nil {
		logger.Error("Failed to store generated image", err, map[string]interface{}{
			"store_id": actor.StoreID,
			"key":      key,
		})
		return nil, err
	}

	logger.Info("AI image generated", map[string]interface{}{
		"store_id": actor.StoreID,
		"key":      key,
		"bytes":    len(data),
	})
	return &GeneratedImage{URL: url, Key: key, MIMEType: mimeType}, nil
}
