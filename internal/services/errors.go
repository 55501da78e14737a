package services

// ErrorCode identifies the business outcome of a failed operation.
// Handlers map each code to an HTTP status and the UI picks its copy
// from the code, so operations must never collapse these into a
// generic failure.
type ErrorCode string

const (
	CodeInvalidInput       ErrorCode = "invalid_input"
	CodeNotFound           ErrorCode = "not_found"
	CodeAlreadyUsed        ErrorCode = "already_used"
	CodeExpired            ErrorCode = "expired"
	CodeConflict           ErrorCode = "conflict"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeInternal           ErrorCode = "internal"
)

// ServiceError is a structured business error.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func errInvalidInput(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidInput, Message: message}
}

func errNotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message}
}

func errConflict(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: message}
}

func errPrecondition(message string) *ServiceError {
	return &ServiceError{Code: CodePreconditionFailed, Message: message}
}

func errInternal(err error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: "internal error", Err: err}
}
