package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamNotAvailable  ErrCode = "EXAM_NOT_AVAILABLE"
	ErrExamNotActive     ErrCode = "EXAM_NOT_ACTIVE"
	ErrExamNotDraft      ErrCode = "EXAM_NOT_DRAFT"
	ErrExamInvalid       ErrCode = "EXAM_INVALID"
	ErrNotExamAuthor     ErrCode = "NOT_EXAM_AUTHOR"
	ErrPointBudget       ErrCode = "POINT_BUDGET_EXCEEDED"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"
	ErrAttemptNotStarted ErrCode = "ATTEMPT_NOT_STARTED"
	ErrTimeExpired       ErrCode = "TIME_EXPIRED"
	ErrResultsWithheld   ErrCode = "RESULTS_WITHHELD"
	ErrReportUnavailable ErrCode = "REPORT_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "E-posta/okul numarası veya şifre hatalı."
	case ErrSessionActive:
		return "Başka bir cihazda zaten oturum açtınız."
	case ErrSessionInvalidated:
		return "Oturumunuz sona erdi. Lütfen tekrar giriş yapın."
	case ErrTokenRequired:
		return "Kimlik doğrulama belirteci gerekli."
	case ErrTokenInvalid:
		return "Kimlik doğrulama belirteci geçersiz."
	case ErrTokenExpired:
		return "Kimlik doğrulama belirtecinin süresi doldu."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Bu kaynağa erişim izniniz yok."
	case ErrStudentAccessOnly:
		return "Bu kaynak yalnızca öğrenciler içindir."
	case ErrTeacherAccessOnly:
		return "Bu kaynak yalnızca öğretmenler içindir."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Doğrulama başarısız. Lütfen girdilerinizi kontrol edin."
	case ErrInvalidID:
		return "Geçersiz kimlik biçimi."
	case ErrInvalidPayload:
		return "Geçersiz istek gövdesi."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Kaynak bulunamadı."
	case ErrConflict:
		return "Kaynak zaten mevcut."
	case ErrActionForbidden:
		return "Bu işleme izin verilmiyor."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "Bu sınav şu anda kullanılamıyor."
	case ErrExamNotActive:
		return "Bu sınav aktif değil."
	case ErrExamNotDraft:
		return "Bu sınav taslak durumunda değil."
	case ErrExamInvalid:
		return "Sınav tanımı geçersiz. Lütfen hataları düzeltin."
	case ErrNotExamAuthor:
		return "Bu sınavın sahibi siz değilsiniz."
	case ErrPointBudget:
		return "Soruların toplam puanı sınavın azami puanını aşıyor."
	case ErrAlreadySubmitted:
		return "Bu sınavı zaten teslim ettiniz."
	case ErrAttemptNotStarted:
		return "Bu sınava henüz başlamadınız."
	case ErrTimeExpired:
		return "Sınav süresi doldu."
	case ErrResultsWithheld:
		return "Sonuçlar sınav bitiminde açıklanacaktır."
	case ErrReportUnavailable:
		return "Rapor için yeterli veri yok."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Çok fazla istek gönderildi. Lütfen daha sonra tekrar deneyin."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Dahili sunucu hatası oluştu."
	default:
		return "Beklenmeyen bir hata oluştu."
	}
}
