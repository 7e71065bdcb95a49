package sheetfill

import (
	"reflect"
	"strconv"
	"strings"
)

// rowExpander размножает строки, привязанные к коллекциям, и ведёт смещение
// номеров строк: каждая размноженная строка сдвигает все последующие.
type rowExpander struct {
	binding *Binding
	offset  int
}

// rowPlan: строка шаблона с уже разрешёнными ссылками.
type rowPlan struct {
	row *sheetRow

	// bound: строка привязана к коллекции collection (первая встреченная).
	bound      bool
	collection string
	items      []interface{}
	elemType   reflect.Type
	shape      *objectShape

	cells []cellPlan
}

type scalarRef struct {
	value    interface{}
	declared reflect.Type
}

type cellPlan struct {
	cell         *sheetCell
	text         string
	placeholders []Placeholder
	scalars      map[string]scalarRef
	// composite: несколько различных плейсхолдеров, тип всегда str.
	composite bool
	// embedded: один плейсхолдер, но не на всю ячейку (повтор или окружающий текст).
	// Тип выбирается по итоговому тексту: десятичное число → n, иначе str.
	embedded bool
}

// plan разбирает ссылки строки. Ошибки (неизвестное имя, нет поля) всплывают
// здесь, до записи первой строки.
func (e *rowExpander) plan(row *sheetRow) (*rowPlan, error) {
	p := &rowPlan{row: row, cells: make([]cellPlan, 0, len(row.cells))}
	for _, c := range row.cells {
		cp := cellPlan{cell: c}
		if c.value != nil {
			cp.text = *c.value
			cp.placeholders = ScanPlaceholders(cp.text)
		}
		switch n := len(cp.placeholders); {
		case n > 1:
			cp.composite = true
		case n == 1 && !isWholeCell(cp.text, cp.placeholders[0]):
			cp.embedded = true
		}
		for _, ph := range cp.placeholders {
			if err := ph.validate(); err != nil {
				return nil, err
			}
			if ph.IsDirective() {
				continue
			}
			v, err := e.binding.Resolve(ph.Root())
			if err != nil {
				return nil, err
			}
			if isCollection(v) {
				if err := p.bind(ph, v); err != nil {
					return nil, err
				}
				continue
			}
			ref, err := scalarOf(ph, v)
			if err != nil {
				return nil, err
			}
			if cp.scalars == nil {
				cp.scalars = map[string]scalarRef{}
			}
			cp.scalars[ph.Raw] = ref
		}
		p.cells = append(p.cells, cp)
	}
	return p, nil
}

// bind привязывает строку к коллекции. Учитывается только первая коллекция строки;
// ссылка на другую коллекцию в той же строке не поддерживается.
func (p *rowPlan) bind(ph Placeholder, v interface{}) error {
	root := ph.Root()
	if p.bound && p.collection != root {
		return &NotSupportedError{Expr: ph.Raw, Reason: "строка уже привязана к коллекции " + p.collection}
	}
	if !p.bound {
		p.bound = true
		p.collection = root
		p.items = collectionItems(v)
		first, ok := firstNonNil(p.items)
		p.elemType = elementType(v, first)
		if ok {
			p.shape, _ = shapeOf(first)
		}
	}
	field := ph.Field()
	if field == "" {
		return nil
	}
	if p.shape == nil {
		if _, ok := firstNonNil(p.items); !ok {
			// все элементы nil или коллекция пуста: проверять не по чему
			return nil
		}
		return &MissingFieldError{Collection: root, Field: field}
	}
	if !p.shape.has(field) {
		return &MissingFieldError{Collection: root, Field: field}
	}
	return nil
}

func (p *rowPlan) declaredType(field string) reflect.Type {
	if field == "" {
		return p.elemType
	}
	return p.shape.declared(field)
}

// scalarOf разрешает {{name}} или {{name.field}} для значения не-коллекции.
func scalarOf(ph Placeholder, v interface{}) (scalarRef, error) {
	field := ph.Field()
	if field == "" {
		return scalarRef{value: v}, nil
	}
	if deref(v) == nil {
		return scalarRef{}, nil
	}
	shape, ok := shapeOf(v)
	if !ok || !shape.has(field) {
		return scalarRef{}, &MissingFieldError{Collection: ph.Root(), Field: field}
	}
	fv, _ := fieldValue(v, field)
	return scalarRef{value: fv, declared: shape.declared(field)}, nil
}

// render выводит одну строку или по строке на элемент коллекции (пустая
// коллекция не даёт ни одной) и сдвигает смещение для последующих строк.
func (e *rowExpander) render(p *rowPlan, emit func(string) error) error {
	base := p.row.index + e.offset
	if !p.bound {
		return emit(p.renderRow(base, nil))
	}
	for i, item := range p.items {
		if err := emit(p.renderRow(base+i, item)); err != nil {
			return err
		}
	}
	e.offset += p.rowDelta()
	return nil
}

func (p *rowPlan) renderRow(index int, item interface{}) string {
	var sb strings.Builder
	attrs := withAttr(p.row.attrs, "r", strconv.Itoa(index))
	if len(p.cells) == 0 && p.row.tail == "" {
		writeStartTag(&sb, p.row.name, attrs, true)
		return sb.String()
	}
	writeStartTag(&sb, p.row.name, attrs, false)
	for i := range p.cells {
		p.renderCell(&sb, &p.cells[i], index, item)
	}
	sb.WriteString(p.row.tail)
	writeEndTag(&sb, p.row.name)
	return sb.String()
}

func (p *rowPlan) renderCell(sb *strings.Builder, cp *cellPlan, index int, item interface{}) {
	c := cp.cell
	attrs := c.attrs
	if c.col != "" {
		attrs = withAttr(attrs, "r", c.col+strconv.Itoa(index))
	}
	text, typ := cp.text, c.typ
	if len(cp.placeholders) > 0 {
		text, typ = p.cellValue(cp, index, item)
	}
	if typ != "" {
		attrs = withAttr(attrs, "t", typ)
	}
	if len(c.parts) == 0 {
		writeStartTag(sb, c.name, attrs, true)
		return
	}
	writeStartTag(sb, c.name, attrs, false)
	for _, part := range c.parts {
		if part.kind == partValue {
			writeStartTag(sb, c.vName, c.vAttrs, false)
			escapeTo(sb, text)
			writeEndTag(sb, c.vName)
			continue
		}
		sb.WriteString(part.raw)
	}
	writeEndTag(sb, c.name)
}

// cellValue подставляет значения в текст ячейки и выбирает её тип.
func (p *rowPlan) cellValue(cp *cellPlan, index int, item interface{}) (string, string) {
	values := make(map[string]string, len(cp.placeholders))
	typ := CellString
	for _, ph := range cp.placeholders {
		var (
			v        interface{}
			declared reflect.Type
		)
		if ph.IsDirective() {
			v = index
		} else if ref, ok := cp.scalars[ph.Raw]; ok {
			v, declared = ref.value, ref.declared
		} else {
			declared = p.declaredType(ph.Field())
			switch {
			case ph.Field() == "":
				v = item
			case deref(item) != nil:
				v, _ = fieldValue(item, ph.Field())
			}
		}
		values[ph.Raw], typ = inferCellType(v, declared, cp.composite || cp.embedded)
	}
	text := substitute(cp.text, values)
	switch {
	case cp.composite:
		typ = CellString
	case cp.embedded:
		text, typ = inferCellType(text, nil, false)
	}
	return text, string(typ)
}
