package configstore

import "fmt"

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory", etc.)
	Operation string // Operation that failed ("ensure_key", "append_value", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// EncodingError represents a failure to serialize or deserialize a
// configuration value.
type EncodingError struct {
	Key   string // Configuration key involved
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("value encoding error [key=%s]: %v", e.Key, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *EncodingError) Unwrap() error {
	return e.Cause
}

// NewEncodingError creates a new EncodingError.
func NewEncodingError(key string, cause error) *EncodingError {
	return &EncodingError{Key: key, Cause: cause}
}

// ExportError represents an error during snapshot or history export.
type ExportError struct {
	Format      string // Export format ("json", "sqlite")
	RecordCount int    // Number of records being exported
	Cause       error  // Underlying error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{
		Format:      format,
		RecordCount: recordCount,
		Cause:       cause,
	}
}

// RetentionError represents an error during history retention enforcement.
type RetentionError struct {
	RetentionDays int   // Configured retention period
	Cause         error // Underlying error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Cause: cause}
}

// SeedError represents an error while loading or applying a seed file.
type SeedError struct {
	Path  string // Seed file path
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *SeedError) Error() string {
	return fmt.Sprintf("seed error [path=%s]: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *SeedError) Unwrap() error {
	return e.Cause
}

// NewSeedError creates a new SeedError.
func NewSeedError(path string, cause error) *SeedError {
	return &SeedError{Path: path, Cause: cause}
}
