package errors

import "fmt"

var (
	ErrUnauthenticated = fmt.Errorf("missing or invalid credential")
	ErrAccessDenied    = fmt.Errorf("not a member of the room")
	ErrInvalidContent  = fmt.Errorf("message content is empty or invalid")
	ErrNotFound        = fmt.Errorf("referenced entity does not exist")
	ErrAlreadyExists   = fmt.Errorf("entity already exists")
	ErrInvalidPassword = fmt.Errorf("password does not meet complexity requirements")
	ErrBadCredentials  = fmt.Errorf("unknown user or wrong password")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrSinkOverflow    = fmt.Errorf("session outbound queue full")
)
