package model

// MenuDraft is a menu item proposed by AI extraction or a spreadsheet row.
// Drafts are not persisted until BulkCreate is called.
type MenuDraft struct {
	CategoryName string `json:"category_name"`
	Name         string `json:"name" binding:"required"`
	Price        int    `json:"price" binding:"gte=0"`
	Description  string `json:"description"`
}

type PriceResearch struct {
	MenuName     string `json:"menu_name"`
	Area         string `json:"area"`
	MinPrice     int    `json:"min_price"`
	MaxPrice     int    `json:"max_price"`
	TypicalPrice int    `json:"typical_price"`
	Summary      string `json:"summary"`
}

type CopyRequest struct {
	Topic    string      `json:"topic" binding:"required"`
	Tone     string      `json:"tone"`
	Keywords []string    `json:"keywords"`
	Platform SNSPlatform `json:"platform"`
}
