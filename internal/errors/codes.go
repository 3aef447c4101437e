// Package errors provides structured error handling for echosearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (SQLite, index files)
//   - 3XX: External model errors (subprocess)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates database and index file errors.
	CategoryStorage Category = "STORAGE"
	// CategoryModel indicates external NLP model errors.
	CategoryModel Category = "MODEL"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStoreOpen    = "ERR_201_STORE_OPEN"
	ErrCodeStoreQuery   = "ERR_202_STORE_QUERY"
	ErrCodeIndexFailure = "ERR_203_INDEX_FAILURE"

	// Model errors (300-399)
	ErrCodeModelTimeout = "ERR_301_MODEL_TIMEOUT"
	ErrCodeModelExit    = "ERR_302_MODEL_EXIT"
	ErrCodeModelMissing = "ERR_303_MODEL_MISSING"
	ErrCodeModelOutput  = "ERR_304_MODEL_OUTPUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryModel
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// recoverableCodes lists failures that degrade to a safe default instead of
// propagating: transient model failures and malformed model output.
var recoverableCodes = map[string]bool{
	ErrCodeModelTimeout: true,
	ErrCodeModelExit:    true,
	ErrCodeModelMissing: true,
	ErrCodeModelOutput:  true,
	ErrCodeInvalidInput: true,
}

func isRecoverableCode(code string) bool {
	return recoverableCodes[code]
}
