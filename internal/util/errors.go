package util

import "errors"

var (
	ErrUserNotFound      = errors.New("用户不存在")
	ErrEmailRegistered   = errors.New("该邮箱已被注册")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrStudentNotFound   = errors.New("student not found")
	ErrTestNotFound      = errors.New("test not found")
	ErrTestNotPublished  = errors.New("test not published or not accessible")
	ErrTestPublished     = errors.New("test already published, questions are immutable")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrAttemptSubmitted  = errors.New("attempt already submitted")
	ErrSubmitInFlight    = errors.New("submission already in flight")
	ErrSubmitNotLastPage = errors.New("submit requires the finish action or the last question")
	ErrSessionNotFound   = errors.New("no active exam session")
	ErrTimeExpired       = errors.New("time has expired for this attempt")
)
