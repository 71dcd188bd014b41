package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer of the pipeline.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeInvalidInput       ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeTimeout            ErrorCode = "COMMON_004"
	ErrCodeValidation         ErrorCode = "COMMON_005"
	ErrCodeSerialization      ErrorCode = "COMMON_006"
	ErrCodeCacheError         ErrorCode = "COMMON_007"
	ErrCodeExternalService    ErrorCode = "COMMON_008"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_009"
	ErrCodeUnknown            ErrorCode = "COMMON_255"
	CodeOK                    ErrorCode = "OK"
)

// Input discovery error codes.  These are batch-fatal: when raised before any
// per-file processing starts the run exits non-zero with no results.
const (
	ErrCodeInputNotFound  ErrorCode = "INPUT_001"
	ErrCodeInputNotPDF    ErrorCode = "INPUT_002"
	ErrCodeNoInputFiles   ErrorCode = "INPUT_003"
	ErrCodeOutputDirError ErrorCode = "INPUT_004"
)

// PDF access error codes.
const (
	ErrCodePDFOpenFailed    ErrorCode = "PDF_001"
	ErrCodePDFExtractFailed ErrorCode = "PDF_002"
)

// Reaction recognition error codes.
const (
	ErrCodeRecognitionFailed      ErrorCode = "RECOG_001"
	ErrCodeRecognitionUnavailable ErrorCode = "RECOG_002"
	ErrCodeRecognitionBadResponse ErrorCode = "RECOG_003"
)

// Structure rendering error codes.
const (
	// ErrCodeRenderUnparsable marks a structure identifier the depiction
	// service rejected.  It is a data-quality condition, not a transport fault.
	ErrCodeRenderUnparsable  ErrorCode = "RENDER_001"
	ErrCodeRenderFailed      ErrorCode = "RENDER_002"
	ErrCodeRenderUnavailable ErrorCode = "RENDER_003"
)

// Document assembly error codes.
const (
	ErrCodeDocWriteFailed     ErrorCode = "DOC_001"
	ErrCodeDocUnavailable     ErrorCode = "DOC_002"
	ErrCodeDocTemplateInvalid ErrorCode = "DOC_003"
)
