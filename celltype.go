package sheetfill

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CellType: значение атрибута t ячейки.
type CellType string

const (
	CellNumber    CellType = "n"
	CellBool      CellType = "b"
	CellString    CellType = "str"
	CellShared    CellType = "s"
	CellInlineStr CellType = "inlineStr"
)

// DateLayout: формат вывода дат, без локали и без перевода часовых поясов.
const DateLayout = "2006-01-02 15:04:05"

// rxDecimal: десятичное число без экспоненты.
var rxDecimal = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)\s*$`)

// inferCellType выбирает текст и тип ячейки по значению. Порядок проверок:
// составная строка → str; десятичное число → n; bool → b (1/0); дата → str; иначе str.
// declared содержит объявленный тип поля элемента коллекции (может быть nil); по нему
// пустое nullable-число остаётся числовой ячейкой.
func inferCellType(v interface{}, declared reflect.Type, composite bool) (string, CellType) {
	v = deref(v)
	if composite {
		return toString(v), CellString
	}
	if v == nil {
		if isNumericType(declared) {
			return "", CellNumber
		}
		return "", CellString
	}
	text := toString(v)
	if _, isBool := v.(bool); !isBool && rxDecimal.MatchString(text) {
		return strings.TrimSpace(text), CellNumber
	}
	switch vv := v.(type) {
	case bool:
		if vv {
			return "1", CellBool
		}
		return "0", CellBool
	case time.Time:
		return vv.Format(DateLayout), CellString
	}
	return text, CellString
}

// toString: текстовое представление значения для ячейки.
func toString(v interface{}) string {
	switch vv := deref(v).(type) {
	case nil:
		return ""
	case string:
		return vv
	case []byte:
		return string(vv)
	case bool:
		if vv {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(vv), 'f', -1, 32)
	case time.Time:
		return vv.Format(DateLayout)
	case fmt.Stringer:
		return vv.String()
	}
	rv := reflect.ValueOf(v)
	rv, _ = indirect(rv)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	}
	return fmt.Sprintf("%v", v)
}

// deref снимает указатели; nil-указатель превращается в nil.
func deref(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	rv, ok := indirect(rv)
	if !ok {
		return nil
	}
	return rv.Interface()
}

// isNumericType учитывает nullable-поля (*int, *float64 и т.п.).
func isNumericType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
