package tablebrowser

import (
	"math"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
)

// Relation points a foreign key column at the table holding its label.
type Relation struct {
	Table string
}

// BoolLabels renders a boolean column.
type BoolLabels struct {
	True  string
	False string
}

// TableConfig describes how one allow-listed table is shown and edited.
type TableConfig struct {
	Name  string
	Label string
	// ScopeColumn holds the tenant id; "store_id" unless set.
	ScopeColumn  string
	ColumnLabels map[string]string
	// Relations overrides the *_id naming convention.
	Relations map[string]Relation
	// Priority columns are shown first, in this order.
	Priority   []string
	BoolLabels map[string]BoolLabels
	Hidden     []string
	// Editable is false for tables whose writes go through a workflow.
	Editable bool
	// ReadOnly columns are owned by a service workflow, such as profile
	// roles guarded by the last-admin rule.
	ReadOnly []string
	Checks   map[string]Check
	RowCheck RowCheck
	// NoDelete keeps rows that other data or invariants hang off.
	NoDelete bool
	// LabelColumn is shown when another table references a row of this one.
	LabelColumn string
}

func (c TableConfig) scopeColumn() string {
	if c.ScopeColumn == "" {
		return "store_id"
	}
	return c.ScopeColumn
}

func (c TableConfig) isHidden(column string) bool {
	return contains(c.Hidden, column)
}

func (c TableConfig) isReadOnly(column string) bool {
	return readOnlyColumns[column] || column == c.scopeColumn() || contains(c.ReadOnly, column)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var commonLabels = map[string]string{
	"id":         "ID",
	"created_at": "作成日時",
	"updated_at": "更新日時",
	"note":       "メモ",
	"is_active":  "有効",
	"sort_order": "表示順",
	"store_id":   "店舗",
}

var activeLabels = BoolLabels{True: "有効", False: "無効"}

const maxInt32 = math.MaxInt32

// DefaultTables is the allow-list exposed in the admin browser.
// accounts is left out on purpose: it spans tenants and holds password hashes.
func DefaultTables() []TableConfig {
	return []TableConfig{
		{
			Name:        "stores",
			Label:       "店舗",
			ScopeColumn: "id",
			ColumnLabels: map[string]string{
				"name": "店舗名", "address": "住所", "phone_number": "電話番号",
				"open_time": "開店時刻", "close_time": "閉店時刻", "logo_url": "ロゴ",
			},
			Priority:    []string{"id", "name", "address", "phone_number", "open_time", "close_time"},
			BoolLabels:  map[string]BoolLabels{"is_active": activeLabels},
			Editable:    true,
			ReadOnly:    []string{"is_active"},
			Checks: map[string]Check{
				"name":       NotBlank(),
				"open_time":  Optional(Clock()),
				"close_time": Optional(Clock()),
			},
			NoDelete:    true,
			LabelColumn: "name",
		},
		{
			Name:  "profiles",
			Label: "プロフィール",
			ColumnLabels: map[string]string{
				"display_name": "表示名", "real_name": "本名", "role": "権限",
				"phone": "電話番号", "avatar_url": "アイコン",
			},
			Priority:    []string{"id", "display_name", "role", "real_name", "phone", "is_active"},
			BoolLabels:  map[string]BoolLabels{"is_active": {True: "在籍", False: "退店"}},
			Hidden:      []string{"store_id", "account_id"},
			Editable:    true,
			ReadOnly:    []string{"role", "is_active"},
			Checks:      map[string]Check{"display_name": NotBlank()},
			NoDelete:    true,
			LabelColumn: "display_name",
		},
		{
			Name:         "menu_categories",
			Label:        "メニューカテゴリ",
			ColumnLabels: map[string]string{"name": "カテゴリ名"},
			Priority:     []string{"id", "name", "sort_order"},
			Hidden:       []string{"store_id"},
			Editable:     true,
			Checks: map[string]Check{
				"name":       NotBlank(),
				"sort_order": IntRange(0, maxInt32),
			},
			LabelColumn: "name",
		},
		{
			Name:  "menus",
			Label: "メニュー",
			ColumnLabels: map[string]string{
				"name": "商品名", "price": "価格", "category_id": "カテゴリ",
				"description": "説明", "image_url": "画像", "is_hidden": "表示",
			},
			Relations:   map[string]Relation{"category_id": {Table: "menu_categories"}},
			Priority:    []string{"id", "name", "category_id", "price", "is_hidden"},
			BoolLabels:  map[string]BoolLabels{"is_hidden": {True: "非表示", False: "表示"}},
			Hidden:      []string{"store_id"},
			Editable:    true,
			Checks: map[string]Check{
				"name":  NotBlank(),
				"price": IntRange(0, maxInt32),
			},
			LabelColumn: "name",
		},
		{
			Name:  "bottle_keeps",
			Label: "ボトルキープ",
			ColumnLabels: map[string]string{
				"bottle_name": "ボトル名", "menu_id": "メニュー", "opened_on": "開封日",
				"expires_on": "期限", "remaining_percent": "残量(%)", "status": "状態",
			},
			Priority:    []string{"id", "bottle_name", "status", "remaining_percent", "opened_on", "expires_on"},
			Hidden:      []string{"store_id"},
			Editable:    true,
			Checks: map[string]Check{
				"bottle_name":       NotBlank(),
				"remaining_percent": IntRange(0, 100),
				"status": OneOf(string(model.BottleActive), string(model.BottleFinished),
					string(model.BottleExpired)),
				"opened_on":  Date(),
				"expires_on": Optional(Date()),
			},
			RowCheck:    NotBefore("expires_on", "opened_on"),
			LabelColumn: "bottle_name",
		},
		{
			Name:  "shift_requests",
			Label: "シフト募集",
			ColumnLabels: map[string]string{
				"title": "タイトル", "deadline": "締切", "created_by_id": "作成者",
			},
			Relations:   map[string]Relation{"created_by_id": {Table: "profiles"}},
			Priority:    []string{"id", "title", "deadline"},
			Hidden:      []string{"store_id"},
			Editable:    true,
			Checks:      map[string]Check{"title": NotBlank()},
			LabelColumn: "title",
		},
		{
			Name:  "shift_submissions",
			Label: "シフト提出",
			ColumnLabels: map[string]string{
				"shift_request_id": "シフト募集", "profile_id": "キャスト", "date": "日付",
				"is_available": "出勤可否", "start_time": "開始", "end_time": "終了",
				"status": "状態", "reject_reason": "却下理由", "decided_by_id": "承認者",
				"decided_at": "承認日時",
			},
			Relations:   map[string]Relation{"decided_by_id": {Table: "profiles"}},
			Priority:    []string{"id", "date", "profile_id", "status", "is_available", "start_time", "end_time"},
			BoolLabels:  map[string]BoolLabels{"is_available": {True: "出勤可", False: "出勤不可"}},
			Hidden:      []string{"store_id"},
			Editable:    false,
			LabelColumn: "date",
		},
		{
			Name:  "attendances",
			Label: "勤怠",
			ColumnLabels: map[string]string{
				"profile_id": "キャスト", "business_date": "営業日", "clock_in_at": "出勤",
				"clock_out_at": "退勤", "shift_submission_id": "シフト",
			},
			Priority: []string{"id", "business_date", "profile_id", "clock_in_at", "clock_out_at"},
			Hidden:   []string{"store_id"},
			Editable: true,
			// the shift link moves submission status, so only clock-in sets it
			ReadOnly: []string{"shift_submission_id"},
			Checks:   map[string]Check{"business_date": Date()},
			RowCheck: NotBefore("clock_out_at", "clock_in_at"),
		},
		{
			Name:  "comments",
			Label: "コメント",
			ColumnLabels: map[string]string{
				"author_id": "投稿者", "body": "本文", "profile_id": "対象プロフィール",
				"bottle_keep_id": "対象ボトル", "shift_request_id": "対象シフト募集",
			},
			Relations: map[string]Relation{"author_id": {Table: "profiles"}},
			Priority:  []string{"id", "author_id", "body"},
			Hidden:    []string{"store_id"},
			Editable:  true,
			Checks:    map[string]Check{"body": NotBlank()},
			RowCheck:  ExactlyOne("profile_id", "bottle_keep_id", "shift_request_id"),
		},
		{
			Name:  "sns_accounts",
			Label: "SNSアカウント",
			ColumnLabels: map[string]string{
				"platform": "プラットフォーム", "account_name": "アカウント名",
				"is_connected": "連携", "connected_at": "連携日時",
			},
			Priority:    []string{"id", "platform", "account_name", "is_connected"},
			BoolLabels:  map[string]BoolLabels{"is_connected": {True: "連携済み", False: "未連携"}},
			Hidden:      []string{"store_id"},
			Editable:    false,
			LabelColumn: "account_name",
		},
		{
			Name:  "sns_scheduled_posts",
			Label: "予約投稿",
			ColumnLabels: map[string]string{
				"sns_account_id": "アカウント", "content": "本文", "image_url": "画像",
				"hashtags": "ハッシュタグ", "scheduled_at": "予約日時", "status": "状態",
				"posted_at": "投稿日時", "error_message": "エラー", "recurring_schedule_id": "定期投稿",
			},
			Relations: map[string]Relation{"recurring_schedule_id": {Table: "sns_recurring_schedules"}},
			Priority:  []string{"id", "scheduled_at", "status", "sns_account_id", "content"},
			Hidden:    []string{"store_id"},
			Editable:  true,
			// publishing state belongs to the scheduler
			ReadOnly: []string{"status", "posted_at", "error_message", "recurring_schedule_id"},
			Checks:   map[string]Check{"content": NotBlank()},
		},
		{
			Name:  "sns_recurring_schedules",
			Label: "定期投稿",
			ColumnLabels: map[string]string{
				"sns_account_id": "アカウント", "name": "名前", "cron_spec": "スケジュール",
				"content_template": "テンプレート", "use_ai": "AI生成", "last_run_at": "最終実行",
			},
			Priority:    []string{"id", "name", "cron_spec", "is_active", "use_ai"},
			BoolLabels:  map[string]BoolLabels{"is_active": activeLabels, "use_ai": {True: "使う", False: "使わない"}},
			Hidden:      []string{"store_id"},
			Editable:    false,
			LabelColumn: "name",
		},
	}
}
