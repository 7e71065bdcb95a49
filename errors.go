package sheetfill

import (
	"errors"
	"fmt"
)

// Сентинелы для errors.Is. Типизированные ошибки ниже сопоставляются с ними через Is.
var (
	ErrUnknownBinding    = errors.New("неизвестное имя в шаблоне")
	ErrMissingField      = errors.New("поле отсутствует у элемента коллекции")
	ErrMissingDimension  = errors.New("в листе нет dimension")
	ErrMalformedTemplate = errors.New("некорректная структура листа")
	ErrNotSupported      = errors.New("конструкция шаблона не поддерживается")
)

// UnknownBindingError: корневое имя плейсхолдера не найдено в данных.
type UnknownBindingError struct {
	Name string
}

func (e *UnknownBindingError) Error() string {
	return fmt.Sprintf("неизвестное имя %q: нет значения в данных шаблона", e.Name)
}

func (e *UnknownBindingError) Is(target error) bool { return target == ErrUnknownBinding }

// MissingFieldError: у объекта (элемента коллекции) нет поля, на которое ссылается путь.
type MissingFieldError struct {
	Collection string
	Field      string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s не содержит поля %s", e.Collection, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// MissingDimensionError: в XML листа отсутствует <dimension>.
type MissingDimensionError struct {
	Sheet string
}

func (e *MissingDimensionError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("лист %s: отсутствует элемент dimension", e.Sheet)
	}
	return "отсутствует элемент dimension"
}

func (e *MissingDimensionError) Is(target error) bool { return target == ErrMissingDimension }

// MalformedTemplateError: не удалось разобрать лист или найти блок sheetData.
type MalformedTemplateError struct {
	Reason string
	Cause  error
}

func (e *MalformedTemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("некорректный лист: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("некорректный лист: %s", e.Reason)
}

func (e *MalformedTemplateError) Unwrap() error { return e.Cause }

func (e *MalformedTemplateError) Is(target error) bool { return target == ErrMalformedTemplate }

// NotSupportedError: путь из трёх и более сегментов, две коллекции в одной строке и т.п.
type NotSupportedError struct {
	Expr   string
	Reason string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("{{%s}}: %s", e.Expr, e.Reason)
}

func (e *NotSupportedError) Is(target error) bool { return target == ErrNotSupported }
