package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	apperrors "github.com/yorunoba/nightdesk-backend/internal/errors"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
	"github.com/yorunoba/nightdesk-backend/internal/tablebrowser"
	"github.com/yorunoba/nightdesk-backend/pkg/util"
)

type errorMapping struct {
	status  int
	code    string
	message string
}

// knownErrors maps service sentinels to responses. Anything else is a 500.
var knownErrors = []struct {
	err error
	errorMapping
}{
	{service.ErrForbidden, errorMapping{http.StatusForbidden, apperrors.AuthzForbidden, "アクセス権限がありません"}},
	{service.ErrInvalidInput, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidInput, "入力内容が正しくありません"}},
	{util.ErrWeakPassword, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidInput, "パスワードは8文字以上で入力してください"}},

	{service.ErrEmailAlreadyExists, errorMapping{http.StatusConflict, apperrors.AuthEmailAlreadyExists, "このメールアドレスは既に使用されています"}},
	{service.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "メールアドレスまたはパスワードが正しくありません"}},
	{service.ErrInvalidToken, errorMapping{http.StatusUnauthorized, apperrors.AuthTokenInvalid, "トークンが無効です"}},
	{service.ErrNoProfile, errorMapping{http.StatusForbidden, apperrors.AuthNoProfile, "この店舗へのアクセス権がありません"}},
	{service.ErrProfileInactive, errorMapping{http.StatusForbidden, apperrors.ProfileInactive, "このプロフィールは無効化されています"}},

	{service.ErrStoreNotFound, errorMapping{http.StatusNotFound, apperrors.StoreNotFound, "店舗が見つかりません"}},
	{service.ErrInvalidClockTime, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidFormat, "時刻はHH:MM形式で入力してください"}},
	{service.ErrProfileNotFound, errorMapping{http.StatusNotFound, apperrors.ProfileNotFound, "プロフィールが見つかりません"}},
	{service.ErrInvalidRole, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidInput, "役割が正しくありません"}},
	{service.ErrLastAdmin, errorMapping{http.StatusConflict, apperrors.ProfileLastAdmin, "管理者が一人もいなくなるため変更できません"}},

	{service.ErrMenuNotFound, errorMapping{http.StatusNotFound, apperrors.MenuNotFound, "メニューが見つかりません"}},
	{service.ErrCategoryNotFound, errorMapping{http.StatusNotFound, apperrors.MenuCategoryNotFound, "カテゴリが見つかりません"}},
	{service.ErrCategoryNotEmpty, errorMapping{http.StatusConflict, apperrors.MenuCategoryNotEmpty, "メニューが残っているカテゴリは削除できません"}},
	{service.ErrInvalidPrice, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidRange, "価格は0円以上で入力してください"}},
	{service.ErrInvalidImportFile, errorMapping{http.StatusBadRequest, apperrors.MenuImportInvalidFile, "Excelファイルを読み込めませんでした"}},
	{service.ErrNothingToImport, errorMapping{http.StatusBadRequest, apperrors.ValidationRequired, "登録するメニューがありません"}},

	{service.ErrBottleNotFound, errorMapping{http.StatusNotFound, apperrors.BottleNotFound, "ボトルキープが見つかりません"}},
	{service.ErrHolderRequired, errorMapping{http.StatusBadRequest, apperrors.BottleHolderRequired, "名義人を一人以上指定してください"}},
	{service.ErrHolderNotFound, errorMapping{http.StatusNotFound, apperrors.ProfileNotFound, "名義人が見つかりません"}},
	{service.ErrInvalidRemaining, errorMapping{http.StatusBadRequest, apperrors.BottleInvalidRemaining, "残量は0から100の間で入力してください"}},
	{service.ErrInvalidDate, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidFormat, "日付はYYYY-MM-DD形式で入力してください"}},
	{service.ErrInvalidBottleStatus, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidInput, "状態が正しくありません"}},
	{service.ErrUnsupportedFormat, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidFormat, "出力形式はcsvまたはxlsxです"}},

	{service.ErrCommentNotFound, errorMapping{http.StatusNotFound, apperrors.CommentNotFound, "コメントが見つかりません"}},
	{service.ErrCommentTarget, errorMapping{http.StatusBadRequest, apperrors.CommentInvalidTarget, "コメント対象を一つだけ指定してください"}},
	{service.ErrTargetNotFound, errorMapping{http.StatusNotFound, apperrors.ResourceNotFound, "コメント対象が見つかりません"}},

	{service.ErrShiftRequestNotFound, errorMapping{http.StatusNotFound, apperrors.ShiftRequestNotFound, "シフト募集が見つかりません"}},
	{service.ErrShiftRequestClosed, errorMapping{http.StatusConflict, apperrors.ShiftRequestClosed, "シフト提出の締め切りを過ぎています"}},
	{service.ErrDateNotRequested, errorMapping{http.StatusBadRequest, apperrors.ShiftDateNotRequested, "募集されていない日付です"}},
	{service.ErrSubmissionNotFound, errorMapping{http.StatusNotFound, apperrors.ShiftSubmissionNotFound, "シフト提出が見つかりません"}},
	{service.ErrSubmissionLocked, errorMapping{http.StatusConflict, apperrors.ShiftSubmissionLocked, "確定済みの日付は変更できません"}},
	{service.ErrInvalidTransition, errorMapping{http.StatusConflict, apperrors.ShiftInvalidTransition, "このシフトは既に処理されています"}},
	{service.ErrInvalidShiftTime, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidFormat, "勤務時間が正しくありません"}},
	{service.ErrNotShiftWorker, errorMapping{http.StatusForbidden, apperrors.ProfileRoleForbidden, "この役割ではシフトを提出できません"}},

	{service.ErrAttendanceNotFound, errorMapping{http.StatusNotFound, apperrors.AttendanceNotFound, "勤怠記録が見つかりません"}},
	{service.ErrAlreadyClockedIn, errorMapping{http.StatusConflict, apperrors.AttendanceAlreadyClockIn, "既に出勤しています"}},
	{service.ErrNotClockedIn, errorMapping{http.StatusConflict, apperrors.AttendanceNotClockedIn, "出勤記録がありません"}},
	{service.ErrInvalidWorkTime, errorMapping{http.StatusBadRequest, apperrors.ValidationInvalidRange, "退勤は出勤より後の時刻にしてください"}},

	{service.ErrSNSAccountNotFound, errorMapping{http.StatusNotFound, apperrors.SNSAccountNotFound, "SNSアカウントが見つかりません"}},
	{service.ErrSNSPostNotFound, errorMapping{http.StatusNotFound, apperrors.SNSPostNotFound, "予約投稿が見つかりません"}},
	{service.ErrSNSPostNotEditable, errorMapping{http.StatusConflict, apperrors.SNSPostNotEditable, "この投稿は変更できません"}},
	{service.ErrSNSScheduleNotFound, errorMapping{http.StatusNotFound, apperrors.SNSScheduleNotFound, "定期投稿が見つかりません"}},
	{service.ErrInvalidPlatform, errorMapping{http.StatusBadRequest, apperrors.SNSInvalidPlatform, "対応していないSNSです"}},
	{service.ErrInvalidCronSpec, errorMapping{http.StatusBadRequest, apperrors.SNSInvalidCronSpec, "スケジュールの書式が正しくありません"}},
	{service.ErrScheduledInPast, errorMapping{http.StatusBadRequest, apperrors.SNSScheduledInPast, "投稿日時は未来の時刻にしてください"}},

	{service.ErrAIUnavailable, errorMapping{http.StatusServiceUnavailable, apperrors.AINotConfigured, "AI機能は設定されていません"}},
	{service.ErrAIBadAnswer, errorMapping{http.StatusBadGateway, apperrors.AIRequestFailed, "AIの応答を読み取れませんでした"}},
	{service.ErrInvalidImageType, errorMapping{http.StatusBadRequest, apperrors.UploadInvalidFileType, "JPEG・PNG・GIF・WEBPの画像のみ利用できます"}},
	{service.ErrStorageUnavailable, errorMapping{http.StatusServiceUnavailable, apperrors.UploadFailed, "ファイル保存先が設定されていません"}},

	{tablebrowser.ErrTableNotFound, errorMapping{http.StatusNotFound, apperrors.TableNotFound, "テーブルが見つかりません"}},
	{tablebrowser.ErrReadOnly, errorMapping{http.StatusForbidden, apperrors.TableReadOnly, "このテーブルは編集できません"}},
	{tablebrowser.ErrInvalidColumn, errorMapping{http.StatusBadRequest, apperrors.TableInvalidColumn, "編集できない列が含まれています"}},
	{tablebrowser.ErrInvalidValue, errorMapping{http.StatusBadRequest, apperrors.TableInvalidValue, "値の形式が正しくありません"}},
	{tablebrowser.ErrRowNotFound, errorMapping{http.StatusNotFound, apperrors.TableRowNotFound, "行が見つかりません"}},
}

// respondError writes the mapped response for err, or parses it as a database error.
func respondError(c *gin.Context, err error, context string) {
	log := middleware.GetLoggerFromContext(c)
	for _, known := range knownErrors {
		if errors.Is(err, known.err) {
			log.Warn("Request rejected", map[string]interface{}{
				"context": context,
				"error":   err.Error(),
			})
			apperrors.RespondWithError(c, known.status, known.code, known.message)
			return
		}
	}

	info := apperrors.ParseError(err, context)
	status := statusForCode(info.Code)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", err, map[string]interface{}{
			"context": context,
		})
	} else {
		log.Warn("Request rejected by database", map[string]interface{}{
			"context": context,
			"code":    info.Code,
		})
	}
	apperrors.ParseAndRespond(c, status, err, context)
}

// statusForCode picks the HTTP status for a parsed database error.
func statusForCode(code string) int {
	switch code {
	case apperrors.ResourceAlreadyExists, apperrors.ResourceConflict, apperrors.AuthEmailAlreadyExists:
		return http.StatusConflict
	case apperrors.ResourceNotFound, apperrors.ProfileNotFound, apperrors.StoreNotFound:
		return http.StatusNotFound
	case apperrors.ValidationRequired, apperrors.ValidationInvalidInput:
		return http.StatusBadRequest
	case apperrors.InternalExternalAPI:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// requireActor returns the authenticated caller or answers 401.
func requireActor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Warn("Missing actor in context", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		apperrors.Unauthorized(c, "")
		return model.Actor{}, false
	}
	return actor, true
}

// parseIDParam reads a positive numeric path parameter or answers 400.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "IDが正しくありません")
		return 0, false
	}
	return uint(id), true
}

// optionalUintQuery reads ?name=, returning nil when absent.
func optionalUintQuery(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "IDが正しくありません")
		return nil, false
	}
	id := uint(v)
	return &id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"error": err.Error(),
			"path":  c.Request.URL.Path,
		})
		apperrors.InvalidRequest(c, err)
		return false
	}
	return true
}
