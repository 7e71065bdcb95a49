package sheetfill

import (
	"fmt"
	"reflect"
	"sort"
)

// Field: именованное значение объекта.
type Field struct {
	Name  string
	Value interface{}
}

// Fielder умеет перечислить свои поля. Реализуйте его, если структура
// должна отдавать в шаблон не те поля, что видны через reflection.
type Fielder interface {
	Fields() []Field
}

// Binding: неизменяемое отображение имя → значение, по которому
// разрешаются плейсхолдеры шаблона.
type Binding struct {
	values map[string]interface{}
	names  []string
}

// NewBinding строит контекст из map[string]T, Fielder или структуры
// (все экспортируемые поля, имена без переименования). nil даёт пустой контекст.
func NewBinding(v interface{}) (*Binding, error) {
	b := &Binding{values: map[string]interface{}{}}
	switch vv := v.(type) {
	case nil:
		return b, nil
	case *Binding:
		return vv, nil
	case map[string]interface{}:
		for k, val := range vv {
			b.set(k, val)
		}
		return b, nil
	case Fielder:
		for _, f := range vv.Fields() {
			b.set(f.Name, f.Value)
		}
		return b, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return b, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("данные шаблона: ключи map должны быть строками, получено %s", rv.Type())
		}
		iter := rv.MapRange()
		for iter.Next() {
			b.set(iter.Key().String(), iter.Value().Interface())
		}
	case reflect.Struct:
		for _, f := range structFields(rv) {
			b.set(f.Name, f.Value)
		}
	default:
		return nil, fmt.Errorf("данные шаблона: неподдерживаемый тип %T", v)
	}
	return b, nil
}

func (b *Binding) set(name string, v interface{}) {
	if _, ok := b.values[name]; !ok {
		b.names = append(b.names, name)
	}
	b.values[name] = v
}

// Resolve возвращает значение по имени верхнего уровня.
func (b *Binding) Resolve(name string) (interface{}, error) {
	v, ok := b.values[name]
	if !ok {
		return nil, &UnknownBindingError{Name: name}
	}
	return v, nil
}

// Names: имена в отсортированном порядке.
func (b *Binding) Names() []string {
	out := append([]string(nil), b.names...)
	sort.Strings(out)
	return out
}

// structFields отдаёт экспортируемые поля структуры, включая продвинутые из встроенных.
func structFields(rv reflect.Value) []Field {
	var out []Field
	for _, sf := range reflect.VisibleFields(rv.Type()) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		fv, err := rv.FieldByIndexErr(sf.Index)
		if err != nil {
			// nil во встроенном указателе
			continue
		}
		out = append(out, Field{Name: sf.Name, Value: fv.Interface()})
	}
	return out
}

// -----------------------------
// Объекты строк: поля элементов коллекции
// -----------------------------

// objectShape: набор полей объекта и их объявленные типы.
// Для коллекции снимается с первого не-nil элемента и считается общим для всех.
type objectShape struct {
	fields map[string]reflect.Type
}

func (s *objectShape) has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

func (s *objectShape) declared(name string) reflect.Type {
	if s == nil {
		return nil
	}
	return s.fields[name]
}

// shapeOf описывает поля объекта. ok=false, если значение не похоже на объект.
func shapeOf(v interface{}) (*objectShape, bool) {
	if f, ok := v.(Fielder); ok {
		s := &objectShape{fields: map[string]reflect.Type{}}
		for _, fld := range f.Fields() {
			s.fields[fld.Name] = reflect.TypeOf(fld.Value)
		}
		return s, true
	}
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Struct:
		s := &objectShape{fields: map[string]reflect.Type{}}
		for _, sf := range reflect.VisibleFields(rv.Type()) {
			if sf.IsExported() && !sf.Anonymous {
				s.fields[sf.Name] = sf.Type
			}
		}
		return s, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		s := &objectShape{fields: map[string]reflect.Type{}}
		elemType := rv.Type().Elem()
		iter := rv.MapRange()
		for iter.Next() {
			t := elemType
			if t.Kind() == reflect.Interface {
				t = dynamicType(iter.Value())
			}
			s.fields[iter.Key().String()] = t
		}
		return s, true
	}
	return nil, false
}

// fieldValue достаёт поле объекта; отсутствующее поле у map даёт nil.
func fieldValue(v interface{}, name string) (interface{}, bool) {
	if v == nil {
		return nil, true
	}
	if f, ok := v.(Fielder); ok {
		for _, fld := range f.Fields() {
			if fld.Name == name {
				return fld.Value, true
			}
		}
		return nil, false
	}
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return nil, true
	}
	switch rv.Kind() {
	case reflect.Struct:
		sf, found := rv.Type().FieldByName(name)
		if !found || !sf.IsExported() {
			return nil, false
		}
		fv, err := rv.FieldByIndexErr(sf.Index)
		if err != nil {
			return nil, true
		}
		return fv.Interface(), true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, true
		}
		return mv.Interface(), true
	}
	return nil, false
}

// isCollection: срез или массив, кроме []byte.
func isCollection(v interface{}) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	}
	return false
}

// collectionItems раскладывает коллекцию в []interface{}, сохраняя порядок.
func collectionItems(v interface{}) []interface{} {
	if arr, ok := v.([]interface{}); ok {
		return arr
	}
	rv := reflect.ValueOf(v)
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// elementType: объявленный тип элемента коллекции; для []interface{} берётся
// тип первого не-nil элемента.
func elementType(v interface{}, first interface{}) reflect.Type {
	t := reflect.TypeOf(v).Elem()
	if t.Kind() != reflect.Interface {
		return t
	}
	return reflect.TypeOf(first)
}

func firstNonNil(items []interface{}) (interface{}, bool) {
	for _, it := range items {
		if it == nil {
			continue
		}
		rv := reflect.ValueOf(it)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			continue
		}
		return it, true
	}
	return nil, false
}

func indirect(rv reflect.Value) (reflect.Value, bool) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}

func dynamicType(rv reflect.Value) reflect.Type {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Type()
	}
	return rv.Type()
}
