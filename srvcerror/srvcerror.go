package srvcerror

import (
	"fmt"
	"net/http"
)

type Error struct {
	errorCode  string
	msgToUser  string // public
	dbgInfoErr error  // private, for debugging

	httpStatus int // optional, for HTTP responses
}

func (e *Error) Error() string {
	return e.msgToUser
}

func (e *Error) ErrorCode() string {
	return e.errorCode
}

func (e *Error) DebugInfo() error {
	return e.dbgInfoErr
}

// Unwrap exposes the debug error to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.dbgInfoErr
}

func (e *Error) SetDebug(err error) *Error {
	e.dbgInfoErr = err
	return e
}

func (e *Error) HttpStatusCode() int {
	if e.httpStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.httpStatus
}

func (e *Error) SetHttpStatusCode(code int) *Error {
	e.httpStatus = code
	return e
}

func New(errorCode string, msgToUser string) *Error {
	return &Error{
		errorCode: errorCode,
		msgToUser: msgToUser,
	}
}

const (
	ErrCodeInternalServerError  = "internal_server_error"
	ErrCodeSubmNotFound         = "submission_not_found"
	ErrCodeTaskNotFound         = "task_not_found"
	ErrCodeReportNotFound       = "score_report_not_found"
	ErrCodeInvalidRequest       = "invalid_request"
	ErrCodeForbidden            = "forbidden"
	ErrCodeScoringMisconfigured = "scoring_misconfigured"
)

func ErrInternalSE() *Error {
	return New(
		ErrCodeInternalServerError,
		"iekšēja servera kļūda",
	).SetHttpStatusCode(http.StatusInternalServerError)
}

func ErrSubmNotFound(submUuid fmt.Stringer) *Error {
	return New(
		ErrCodeSubmNotFound,
		fmt.Sprintf("iesūtījums %s netika atrasts", submUuid),
	).SetHttpStatusCode(http.StatusNotFound)
}

func ErrTaskNotFound(taskId string) *Error {
	return New(
		ErrCodeTaskNotFound,
		fmt.Sprintf("uzdevums %q netika atrasts", taskId),
	).SetHttpStatusCode(http.StatusNotFound)
}

func ErrReportNotFound() *Error {
	return New(
		ErrCodeReportNotFound,
		"iesūtījuma vērtējums vēl nav aprēķināts",
	).SetHttpStatusCode(http.StatusNotFound)
}

func ErrInvalidRequest(reason string) *Error {
	return New(
		ErrCodeInvalidRequest,
		fmt.Sprintf("nederīgs pieprasījums: %s", reason),
	).SetHttpStatusCode(http.StatusBadRequest)
}

func ErrForbidden() *Error {
	return New(
		ErrCodeForbidden,
		"nepietiekamas tiesības",
	).SetHttpStatusCode(http.StatusForbidden)
}

// ErrScoringMisconfigured is returned when a task's scoring
// configuration does not match the evaluation of a submission. Users
// only see a generic message, the cause is kept for operators.
func ErrScoringMisconfigured(cause error) *Error {
	return New(
		ErrCodeScoringMisconfigured,
		"uzdevuma vērtēšanas konfigurācija ir kļūdaina",
	).SetHttpStatusCode(http.StatusInternalServerError).SetDebug(cause)
}
