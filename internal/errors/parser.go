package errors

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorInfo is a code plus a user-facing message.
type ErrorInfo struct {
	Code    string
	Message string
}

// PostgreSQL SQLSTATE codes we translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// ParseError converts a repository error into an ErrorInfo without leaking SQL.
// context names the resource ("profile", "menu", ...) and is used for messages.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "サーバーエラーが発生しました"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return duplicateKeyError(pgErr.ConstraintName + " " + pgErr.Detail)
		case pgForeignKeyViolation:
			return foreignKeyError(pgErr.Detail, context)
		case pgNotNullViolation:
			return ErrorInfo{Code: ValidationRequired, Message: "必須項目が入力されていません"}
		case pgCheckViolation:
			return ErrorInfo{Code: ValidationInvalidInput, Message: "入力値が正しくありません"}
		}
	}

	// Text fallback for drivers without structured errors (sqlite).
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint"):
		return duplicateKeyError(lower)
	case strings.Contains(lower, "foreign key constraint"):
		return foreignKeyError(lower, context)
	case strings.Contains(lower, "not null constraint") || strings.Contains(lower, "violates not-null"):
		return ErrorInfo{Code: ValidationRequired, Message: "必須項目が入力されていません"}
	case strings.Contains(lower, "check constraint"):
		return ErrorInfo{Code: ValidationInvalidInput, Message: "入力値が正しくありません"}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") || strings.Contains(lower, "timeout"):
		return ErrorInfo{Code: InternalExternalAPI, Message: "外部サービスへの接続に失敗しました。しばらくしてから再度お試しください"}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func duplicateKeyError(detail string) ErrorInfo {
	detail = strings.ToLower(detail)
	switch {
	case strings.Contains(detail, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "このメールアドレスは既に使用されています"}
	case strings.Contains(detail, "idx_profiles_store_account") || strings.Contains(detail, "profiles.account_id"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "このアカウントは既にこの店舗に登録されています"}
	case strings.Contains(detail, "idx_bottle_holder") || strings.Contains(detail, "bottle_keep_holders"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "このお客様は既にボトルの名義人です"}
	case strings.Contains(detail, "idx_attendances_open") || strings.Contains(detail, "attendances.store_id"):
		return ErrorInfo{Code: AttendanceAlreadyClockIn, Message: "既に出勤しています"}
	case strings.Contains(detail, "idx_submission_request_profile_date") || strings.Contains(detail, "shift_submissions"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "同じ日付のシフトが既に提出されています"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "既に存在するデータです"}
}

func foreignKeyError(detail string, context string) ErrorInfo {
	detail = strings.ToLower(detail)
	if strings.Contains(detail, "still referenced") {
		return ErrorInfo{Code: ResourceConflict, Message: "関連するデータがあるため削除できません"}
	}
	switch {
	case strings.Contains(detail, "profile_id"):
		return ErrorInfo{Code: ProfileNotFound, Message: "存在しないプロフィールです"}
	case strings.Contains(detail, "store_id"):
		return ErrorInfo{Code: StoreNotFound, Message: "存在しない店舗です"}
	}
	return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
}

func notFoundMessage(context string) string {
	c := strings.ToLower(context)
	switch {
	case strings.Contains(c, "store"):
		return "店舗が見つかりません"
	case strings.Contains(c, "profile"):
		return "プロフィールが見つかりません"
	case strings.Contains(c, "menu"):
		return "メニューが見つかりません"
	case strings.Contains(c, "bottle"):
		return "ボトルキープが見つかりません"
	case strings.Contains(c, "shift"):
		return "シフトが見つかりません"
	case strings.Contains(c, "comment"):
		return "コメントが見つかりません"
	case strings.Contains(c, "sns"):
		return "SNSデータが見つかりません"
	}
	return "データが見つかりません"
}

func defaultMessage(context string) string {
	c := strings.ToLower(context)
	switch {
	case strings.Contains(c, "create"):
		return "登録中にエラーが発生しました。しばらくしてから再度お試しください"
	case strings.Contains(c, "update"):
		return "更新中にエラーが発生しました。しばらくしてから再度お試しください"
	case strings.Contains(c, "delete"):
		return "削除中にエラーが発生しました。しばらくしてから再度お試しください"
	}
	return "サーバーエラーが発生しました。しばらくしてから再度お試しください"
}

// ParseAndRespond writes the parsed error as JSON.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
