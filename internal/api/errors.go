package api

import "fmt"

// AuthError означает отсутствующий, недействительный или истекший токен.
// Восстанавливается только повторной аутентификацией.
type AuthError struct {
	Cause string
}

func (e *AuthError) Error() string {
	return e.Cause
}

// ValidationError означает некорректный локальный ввод.
// Такая ошибка никогда не уходит в сеть.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ForbiddenError означает, что операция не разрешена текущему пользователю
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string {
	return e.Msg
}

// InvalidTransitionError означает попытку перевести обмен из конечного
// или несовместимого статуса
type InvalidTransitionError struct {
	Msg string
}

func (e *InvalidTransitionError) Error() string {
	return e.Msg
}

// NetworkError означает транспортную ошибку до получения ответа сервера
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("ошибка сети: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError означает ответ сервера с кодом вне 2xx.
// Message содержит текст из поля error ответа, если оно было.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("сервер вернул статус %d", e.StatusCode)
}
