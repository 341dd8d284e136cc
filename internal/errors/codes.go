package errors

// Error codes returned in the "error" field. Clients map them to UI text.
// Format: CATEGORY_DETAIL

const (
	// AUTH_
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthNoProfile          = "AUTH_NO_PROFILE"

	// AUTHZ_
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// VALIDATION_
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// RESOURCE_
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// STORE_ / PROFILE_
	StoreNotFound        = "STORE_NOT_FOUND"
	ProfileNotFound      = "PROFILE_NOT_FOUND"
	ProfileInactive      = "PROFILE_INACTIVE"
	ProfileLastAdmin     = "PROFILE_LAST_ADMIN"
	ProfileRoleForbidden = "PROFILE_ROLE_FORBIDDEN"

	// MENU_
	MenuNotFound              = "MENU_NOT_FOUND"
	MenuCategoryNotFound      = "MENU_CATEGORY_NOT_FOUND"
	MenuCategoryNotEmpty      = "MENU_CATEGORY_NOT_EMPTY"
	MenuImportInvalidFile     = "MENU_IMPORT_INVALID_FILE"
	BottleNotFound            = "BOTTLE_NOT_FOUND"
	BottleHolderRequired      = "BOTTLE_HOLDER_REQUIRED"
	BottleInvalidRemaining    = "BOTTLE_INVALID_REMAINING"
	CommentNotFound           = "COMMENT_NOT_FOUND"
	CommentInvalidTarget      = "COMMENT_INVALID_TARGET"
	ShiftRequestNotFound      = "SHIFT_REQUEST_NOT_FOUND"
	ShiftRequestClosed        = "SHIFT_REQUEST_CLOSED"
	ShiftDateNotRequested     = "SHIFT_DATE_NOT_REQUESTED"
	ShiftSubmissionNotFound   = "SHIFT_SUBMISSION_NOT_FOUND"
	ShiftSubmissionLocked     = "SHIFT_SUBMISSION_LOCKED"
	ShiftInvalidTransition    = "SHIFT_INVALID_TRANSITION"
	AttendanceNotFound        = "ATTENDANCE_NOT_FOUND"
	AttendanceAlreadyClockIn  = "ATTENDANCE_ALREADY_CLOCKED_IN"
	AttendanceNotClockedIn    = "ATTENDANCE_NOT_CLOCKED_IN"
	TableNotFound             = "TABLE_NOT_FOUND"
	TableReadOnly             = "TABLE_READ_ONLY"
	TableInvalidColumn        = "TABLE_INVALID_COLUMN"
	TableInvalidValue         = "TABLE_INVALID_VALUE"
	TableRowNotFound          = "TABLE_ROW_NOT_FOUND"
	SNSAccountNotFound        = "SNS_ACCOUNT_NOT_FOUND"
	SNSPostNotFound           = "SNS_POST_NOT_FOUND"
	SNSPostNotEditable        = "SNS_POST_NOT_EDITABLE"
	SNSScheduleNotFound       = "SNS_SCHEDULE_NOT_FOUND"
	SNSInvalidCronSpec        = "SNS_INVALID_CRON_SPEC"
	SNSInvalidPlatform        = "SNS_INVALID_PLATFORM"
	SNSScheduledInPast        = "SNS_SCHEDULED_IN_PAST"

	// AI_ / UPLOAD_
	AINotConfigured       = "AI_NOT_CONFIGURED"
	AIRequestFailed       = "AI_REQUEST_FAILED"
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// INTERNAL_
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
