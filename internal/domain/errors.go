package domain

import "errors"

// Assignment errors - raised while desired values are being configured
var (
	// ErrValidation indicates a malformed desired value (unresolvable
	// identity, bad mode syntax, unsupported create kind or URI scheme)
	ErrValidation = errors.New("validation failed")

	// ErrPrivilege indicates an ownership or group change was attempted
	// without the required privilege
	ErrPrivilege = errors.New("insufficient privilege")
)

// Convergence errors - raised while state is retrieved or synced
var (
	// ErrNotFound indicates a required path is absent for an operation
	// that needs it
	ErrNotFound = errors.New("path not found")

	// ErrIntegrity indicates a rollback was requested on a file that was
	// modified since creation
	ErrIntegrity = errors.New("integrity violation")

	// ErrTransport indicates a describe/list/retrieve failure against a
	// source transport
	ErrTransport = errors.New("transport failure")

	// ErrIO wraps a filesystem failure during create/chmod/chown/write/
	// rename/unlink
	ErrIO = errors.New("filesystem operation failed")

	// ErrInternal indicates an internal-consistency violation, a logic
	// defect rather than bad user input
	ErrInternal = errors.New("internal consistency violation")
)

// Config errors - configuration file problems
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)
