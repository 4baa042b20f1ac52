// Package errors: GameHub 백엔드 전체에서 사용되는 인프라 에러 타입들을 정의한다.
// 도메인별 거절 에러(스탯 제한 위반 등)는 각 서비스 패키지에 둔다.
package errors

import "fmt"

// CacheError: 캐시 작업 중 발생한 에러
type CacheError struct {
	Operation string // get, set, delete 등
	Key       string // 캐시 키
	Err       error  // 원인 에러
}

func (e CacheError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cache error operation=%s key=%s", e.Operation, e.Key)
	}
	return fmt.Sprintf("cache error operation=%s key=%s: %v", e.Operation, e.Key, e.Err)
}

func (e CacheError) Unwrap() error { return e.Err }

// NewCacheError: 캐시 에러를 생성한다.
func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		Operation: operation,
		Key:       key,
		Err:       cause,
	}
}

// DatabaseError: 데이터베이스(PostgreSQL 등) 작업을 수행하는 도중 발생한 에러.
// 변이 파이프라인의 원자적 쓰기 경로에서 발생하면 503으로 매핑된다.
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("db error operation=%s", e.Operation)
	}
	return fmt.Sprintf("db error operation=%s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError: 데이터베이스 에러를 생성한다.
func NewDatabaseError(operation string, cause error) *DatabaseError {
	return &DatabaseError{Operation: operation, Err: cause}
}

// ValidationError: 입력 검증 실패 에러
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error field=%s: %s", e.Field, e.Message)
}

// NewValidationError: 검증 에러를 생성한다.
func NewValidationError(message, field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NotFoundError: 요청한 리소스(스탯 정의, 리더보드 엔트리 등)가 존재하지 않을 때의 에러
type NotFoundError struct {
	Resource string
	Key      string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found key=%s", e.Resource, e.Key)
}

// NewNotFoundError: NotFound 에러를 생성한다.
func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

// ServiceError: 내부 서비스 로직 에러
type ServiceError struct {
	Service   string // 서비스 이름
	Operation string // 작업 이름
	Err       error  // 원인 에러
}

func (e ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("service error service=%s operation=%s", e.Service, e.Operation)
	}
	return fmt.Sprintf("service error service=%s operation=%s: %v", e.Service, e.Operation, e.Err)
}

func (e ServiceError) Unwrap() error { return e.Err }

// NewServiceError: 서비스 에러를 생성한다.
func NewServiceError(service, operation string, cause error) *ServiceError {
	return &ServiceError{Service: service, Operation: operation, Err: cause}
}
