package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidQuery     = 1003
	ErrCodeInvalidID        = 1004
	ErrCodeInvalidAlbumName = 1005
	ErrCodeInvalidCaption   = 1006
	ErrCodeMissingRequired  = 1009
	ErrCodeInvalidEmail     = 1010
	ErrCodeInvalidPassword  = 1011
	ErrCodeInvalidMultipart = 1012

	// Upload rejections (15xx)
	ErrCodeUploadTransport   = 1501
	ErrCodeUnsupportedType   = 1502
	ErrCodeUploadTooLarge    = 1503
	ErrCodeUploadUnspecified = 1500

	// Domain state (2xxx)
	ErrCodeImageNotFound = 2001
	ErrCodeAlbumNotFound = 2002
	ErrCodeUserNotFound  = 2003
	ErrCodeAlbumExists   = 2101
	ErrCodeConflict      = 2102
	ErrCodeEmailTaken    = 2103

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeBulkIncomplete = 4003
	ErrCodeNotImplemented = 4005
)

// errorClass is the code pair reported for a status when the error carries
// none of its own.
type errorClass struct {
	code    string
	errCode int
}

var statusClasses = map[int]errorClass{
	400: {"invalid_argument", ErrCodeInvalidArgument},
	401: {"unauthorized", ErrCodeUnauthorized},
	403: {"forbidden", ErrCodeForbidden},
	404: {"not_found", ErrCodeImageNotFound},
	409: {"conflict", ErrCodeConflict},
	412: {"upload_rejected", ErrCodeUploadUnspecified},
	415: {"unsupported_type", ErrCodeUnsupportedType},
	429: {"resource_exhausted", ErrCodeResourceExhausted},
	500: {"internal", ErrCodeInternal},
	501: {"not_implemented", ErrCodeNotImplemented},
}
