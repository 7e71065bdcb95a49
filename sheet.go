package sheetfill

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Разбор XML листа. Дерево строк строится целиком (это дёшево), а вывод
// идёт по одной строке. Токены читаются через RawToken: префиксы
// пространств имён остаются как в исходнике, поэтому строки и ячейки
// можно записать обратно без таблицы пространств имён.

// span: байтовый диапазон элемента в исходном XML.
type span struct {
	start, end int
}

type sheetDocument struct {
	data []byte

	dimension      *span
	dimensionName  string
	dimensionAttrs []xml.Attr

	sheetData      *span
	sheetDataName  string
	sheetDataAttrs []xml.Attr

	rows []*sheetRow
}

// dimensionRef: значение ref у <dimension>.
func (d *sheetDocument) dimensionRef() string {
	return getAttr(d.dimensionAttrs, "ref")
}

type sheetRow struct {
	name  string
	attrs []xml.Attr
	index int
	cells []*sheetCell
	// tail: прочие дочерние элементы строки как есть
	tail string
}

type sheetCell struct {
	name  string
	attrs []xml.Attr
	// col: буквы столбца из r; пусто, если r не задан.
	col string
	typ string
	// value: текст <v>; nil, если элемента нет.
	value  *string
	vName  string
	vAttrs []xml.Attr
	// inline: текст <is> для t="inlineStr".
	inline *string
	// parts: дочерние элементы в исходном порядке.
	parts []cellPart
}

type cellPartKind int

const (
	partRaw cellPartKind = iota
	partValue
	partInline
)

// cellPart: дочерний элемент ячейки: <v>, <is> или прочее (f, extLst) как есть.
type cellPart struct {
	kind cellPartKind
	raw  string
}

// inlineToValue переносит текст inline-строки в <v>, тип становится str.
func (c *sheetCell) inlineToValue() {
	if c.inline == nil || c.value != nil {
		return
	}
	text := *c.inline
	c.value = &text
	c.vName = "v"
	if i := strings.IndexByte(c.name, ':'); i >= 0 {
		c.vName = c.name[:i+1] + "v"
	}
	c.typ = string(CellString)
	for i := range c.parts {
		if c.parts[i].kind == partInline {
			c.parts[i] = cellPart{kind: partValue}
		}
	}
}

func parseSheet(data []byte) (*sheetDocument, error) {
	doc := &sheetDocument{data: data}
	d := xml.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		off := int(d.InputOffset())
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &MalformedTemplateError{Reason: "ошибка разбора XML", Cause: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth != 2 {
				continue
			}
			switch t.Name.Local {
			case "dimension":
				end, err := skipElement(d)
				if err != nil {
					return nil, err
				}
				doc.dimension = &span{start: off, end: end}
				doc.dimensionName = qname(t.Name)
				doc.dimensionAttrs = t.Copy().Attr
				depth--
			case "sheetData":
				if doc.sheetData != nil {
					return nil, &MalformedTemplateError{Reason: "несколько sheetData"}
				}
				rows, end, err := parseSheetData(d, data)
				if err != nil {
					return nil, err
				}
				doc.sheetData = &span{start: off, end: end}
				doc.sheetDataName = qname(t.Name)
				doc.sheetDataAttrs = t.Copy().Attr
				doc.rows = rows
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
	if doc.sheetData == nil {
		return nil, &MalformedTemplateError{Reason: "не найден блок sheetData"}
	}
	return doc, nil
}

func parseSheetData(d *xml.Decoder, data []byte) ([]*sheetRow, int, error) {
	var rows []*sheetRow
	prev := 0
	for {
		tok, err := d.RawToken()
		if err != nil {
			return nil, 0, &MalformedTemplateError{Reason: "обрыв блока sheetData", Cause: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "row" {
				if _, err := skipElement(d); err != nil {
					return nil, 0, err
				}
				continue
			}
			row, err := parseRow(d, t.Copy(), data, prev)
			if err != nil {
				return nil, 0, err
			}
			prev = row.index
			rows = append(rows, row)
		case xml.EndElement:
			return rows, int(d.InputOffset()), nil
		}
	}
}

func parseRow(d *xml.Decoder, start xml.StartElement, data []byte, prev int) (*sheetRow, error) {
	row := &sheetRow{name: qname(start.Name), attrs: start.Attr, index: prev + 1}
	if r := getAttr(start.Attr, "r"); r != "" {
		n, err := strconv.Atoi(strings.TrimSpace(r))
		if err != nil || n < 1 {
			return nil, &MalformedTemplateError{Reason: "некорректный номер строки r=" + strconv.Quote(r)}
		}
		row.index = n
	}
	var tail strings.Builder
	for {
		off := int(d.InputOffset())
		tok, err := d.RawToken()
		if err != nil {
			return nil, &MalformedTemplateError{Reason: "обрыв строки " + strconv.Itoa(row.index), Cause: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "c" {
				c, err := parseCell(d, t.Copy(), data)
				if err != nil {
					return nil, err
				}
				row.cells = append(row.cells, c)
				continue
			}
			end, err := skipElement(d)
			if err != nil {
				return nil, err
			}
			tail.Write(data[off:end])
		case xml.EndElement:
			row.tail = tail.String()
			return row, nil
		}
	}
}

func parseCell(d *xml.Decoder, start xml.StartElement, data []byte) (*sheetCell, error) {
	c := &sheetCell{name: qname(start.Name), attrs: start.Attr, typ: getAttr(start.Attr, "t")}
	if ref := getAttr(start.Attr, "r"); ref != "" {
		col, _, err := excelize.SplitCellName(ref)
		if err != nil {
			return nil, &MalformedTemplateError{Reason: "некорректная ссылка ячейки " + strconv.Quote(ref), Cause: err}
		}
		c.col = col
	}
	for {
		off := int(d.InputOffset())
		tok, err := d.RawToken()
		if err != nil {
			return nil, &MalformedTemplateError{Reason: "обрыв ячейки", Cause: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "v" && c.value == nil:
				text, err := readText(d)
				if err != nil {
					return nil, err
				}
				c.value = &text
				c.vName = qname(t.Name)
				c.vAttrs = t.Copy().Attr
				c.parts = append(c.parts, cellPart{kind: partValue})
			case t.Name.Local == "is" && c.inline == nil:
				text, err := readInlineString(d)
				if err != nil {
					return nil, err
				}
				c.inline = &text
				c.parts = append(c.parts, cellPart{kind: partInline, raw: string(data[off:int(d.InputOffset())])})
			default:
				end, err := skipElement(d)
				if err != nil {
					return nil, err
				}
				c.parts = append(c.parts, cellPart{kind: partRaw, raw: string(data[off:end])})
			}
		case xml.EndElement:
			return c, nil
		}
	}
}

// readInlineString собирает текст <t> внутри <is> (включая rich-text <r>),
// фонетика <rPh> пропускается.
func readInlineString(d *xml.Decoder) (string, error) {
	var sb strings.Builder
	stack := []string{"is"}
	for {
		tok, err := d.RawToken()
		if err != nil {
			return "", &MalformedTemplateError{Reason: "обрыв inline-строки", Cause: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return sb.String(), nil
			}
		case xml.CharData:
			if stack[len(stack)-1] != "t" {
				continue
			}
			parent := stack[len(stack)-2]
			if parent == "is" || (parent == "r" && len(stack) == 3) {
				sb.Write(t)
			}
		}
	}
}

// readText собирает текст до закрывающего тега текущего элемента.
func readText(d *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for {
		tok, err := d.RawToken()
		if err != nil {
			return "", &MalformedTemplateError{Reason: "обрыв текста ячейки", Cause: err}
		}
		switch t := tok.(type) {
		case xml.CharData:
			if depth == 1 {
				sb.Write(t)
			}
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return sb.String(), nil
			}
		}
	}
}

// skipElement дочитывает текущий элемент и возвращает смещение за его концом.
func skipElement(d *xml.Decoder) (int, error) {
	depth := 1
	for {
		tok, err := d.RawToken()
		if err != nil {
			return 0, &MalformedTemplateError{Reason: "незакрытый элемент", Cause: err}
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return int(d.InputOffset()), nil
			}
		}
	}
}

// -----------------------------
// Запись XML
// -----------------------------

func qname(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

func getAttr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// withAttr возвращает копию атрибутов с заменённым (или добавленным в конец) значением.
func withAttr(attrs []xml.Attr, name, value string) []xml.Attr {
	out := make([]xml.Attr, len(attrs), len(attrs)+1)
	copy(out, attrs)
	for i, a := range out {
		if a.Name.Space == "" && a.Name.Local == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func writeStartTag(sb *strings.Builder, name string, attrs []xml.Attr, selfClose bool) {
	sb.WriteByte('<')
	sb.WriteString(name)
	for _, a := range attrs {
		sb.WriteByte(' ')
		sb.WriteString(qname(a.Name))
		sb.WriteString(`="`)
		escapeTo(sb, a.Value)
		sb.WriteByte('"')
	}
	if selfClose {
		sb.WriteString("/>")
		return
	}
	sb.WriteByte('>')
}

func writeEndTag(sb *strings.Builder, name string) {
	sb.WriteString("</")
	sb.WriteString(name)
	sb.WriteByte('>')
}

func escapeTo(sb *strings.Builder, s string) {
	// strings.Builder не возвращает ошибок записи
	_ = xml.EscapeText(sb, []byte(s))
}
