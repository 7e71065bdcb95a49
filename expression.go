package sheetfill

import (
	"regexp"
	"strings"
)

// Синтаксис плейсхолдеров:
// - {{name}}: значение верхнего уровня
// - {{name.field}}: поле объекта или поле элемента коллекции (строка размножается)
// - {{$rowindex}}: абсолютный номер выводимой строки
// Экранирования фигурных скобок нет.

const directiveRowIndex = "$rowindex"

// rxPlaceholder: текст строго между {{ и }}, не жадно.
var rxPlaceholder = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Placeholder: одно выражение {{...}} из текста ячейки.
type Placeholder struct {
	// Raw: текст между скобками как есть; по нему же идёт замена.
	Raw  string
	Path []string
}

// ScanPlaceholders возвращает различные плейсхолдеры текста в порядке первого появления.
func ScanPlaceholders(text string) []Placeholder {
	if !strings.Contains(text, "{{") {
		return nil
	}
	ms := rxPlaceholder.FindAllStringSubmatch(text, -1)
	if len(ms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ms))
	out := make([]Placeholder, 0, len(ms))
	for _, m := range ms {
		raw := m[1]
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, Placeholder{Raw: raw, Path: splitPath(raw)})
	}
	return out
}

func splitPath(raw string) []string {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Root: первый сегмент пути.
func (p Placeholder) Root() string { return p.Path[0] }

// Field: второй сегмент пути или "".
func (p Placeholder) Field() string {
	if len(p.Path) > 1 {
		return p.Path[1]
	}
	return ""
}

// IsDirective: зарезервированные имена начинаются с $ и не ищутся в данных.
func (p Placeholder) IsDirective() bool { return strings.HasPrefix(p.Root(), "$") }

// validate отсекает то, что движок не поддерживает.
func (p Placeholder) validate() error {
	if p.IsDirective() {
		if len(p.Path) != 1 || p.Root() != directiveRowIndex {
			return &NotSupportedError{Expr: p.Raw, Reason: "неизвестная директива"}
		}
		return nil
	}
	if p.Root() == "" || (len(p.Path) == 2 && p.Path[1] == "") {
		return &NotSupportedError{Expr: p.Raw, Reason: "пустой сегмент пути"}
	}
	if len(p.Path) > 2 {
		return &NotSupportedError{Expr: p.Raw, Reason: "поддерживаются только пути name и name.field"}
	}
	return nil
}

// isWholeCell: текст ячейки состоит ровно из одного плейсхолдера.
func isWholeCell(text string, p Placeholder) bool {
	return text == "{{"+p.Raw+"}}"
}

// substitute заменяет все вхождения за один проход; подставленные значения
// повторно не сканируются. Неизвестные ключи остаются как есть.
func substitute(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}
	return rxPlaceholder.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := values[m[2:len(m)-2]]; ok {
			return v
		}
		return m
	})
}
