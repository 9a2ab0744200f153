package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeEmailNotVerified       = "email_not_verified"
	ErrCodeAdminRequired          = "admin_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeAlreadyExists = "already_exists"

	// Auth flow errors
	ErrCodeRegistrationFailed = "registration_failed"
	ErrCodeLoginFailed        = "login_failed"
	ErrCodeRefreshFailed      = "refresh_failed"
	ErrCodeVerificationFailed = "verification_failed"

	// Quiz errors
	ErrCodeQuizNotFound       = "quiz_not_found"
	ErrCodeQuizNotPublished   = "quiz_not_published"
	ErrCodeQuizCreationFailed = "quiz_creation_failed"
	ErrCodeQuizUpdateFailed   = "quiz_update_failed"
	ErrCodeQuizDeleteFailed   = "quiz_delete_failed"

	// Attempt errors
	ErrCodeInvalidQuizID  = "invalid_quiz_id"
	ErrCodeSubmitFailed   = "submit_failed"
	ErrCodeInvalidAnswers = "invalid_answers"

	// Admin errors
	ErrCodeUserListFailed = "user_list_failed"
	ErrCodePromoteFailed  = "promote_failed"
	ErrCodeDemoteFailed   = "demote_failed"
	ErrCodeDeleteFailed   = "delete_failed"
	ErrCodeInviteFailed   = "invite_failed"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// OAuth errors
	ErrCodeOAuthNotConfigured  = "oauth_not_configured"
	ErrCodeOAuthStartFailed    = "oauth_start_failed"
	ErrCodeOAuthCallbackFailed = "oauth_callback_failed"
	ErrCodeOAuthMissingCode    = "missing_code"
	ErrCodeOAuthInvalidState   = "invalid_state"

	// Leaderboard / analytics errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
	ErrCodeAnalyticsFetchFailed   = "analytics_fetch_failed"
)
