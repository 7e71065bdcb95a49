package sheetfill

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// xlsxSST: таблица общих строк xl/sharedStrings.xml.
type xlsxSST struct {
	XMLName xml.Name `xml:"sst"`
	SI      []xlsxSI `xml:"si"`
}

// xlsxSI содержит либо простой <t>, либо набор rich-text <r>.
// Фонетические подсказки <rPh> игнорируются.
type xlsxSI struct {
	T *xlsxT  `xml:"t"`
	R []xlsxR `xml:"r"`
}

type xlsxR struct {
	T xlsxT `xml:"t"`
}

type xlsxT struct {
	Val string `xml:",chardata"`
}

func (si xlsxSI) text() string {
	if si.T != nil && len(si.R) == 0 {
		return si.T.Val
	}
	var sb strings.Builder
	if si.T != nil {
		sb.WriteString(si.T.Val)
	}
	for _, r := range si.R {
		sb.WriteString(r.T.Val)
	}
	return sb.String()
}

// ReadSharedStrings читает таблицу общих строк в порядке индексов.
func ReadSharedStrings(r io.Reader) ([]string, error) {
	var sst xlsxSST
	if err := xml.NewDecoder(r).Decode(&sst); err != nil {
		return nil, fmt.Errorf("чтение sharedStrings: %w", err)
	}
	out := make([]string, len(sst.SI))
	for i, si := range sst.SI {
		out[i] = si.text()
	}
	return out, nil
}

// resolveSharedStrings заменяет ссылки t="s" на литеральные строки t="str".
// Выполняется до подстановки, поэтому плейсхолдеры остаются обычным текстом.
// Индекс вне таблицы не ошибка: ячейка остаётся как есть.
// Inline-строки с плейсхолдерами тоже переводятся в <v> с t="str".
func resolveSharedStrings(rows []*sheetRow, shared []string) {
	for _, row := range rows {
		for _, c := range row.cells {
			if c.typ == string(CellInlineStr) && c.inline != nil && strings.Contains(*c.inline, "{{") {
				c.inlineToValue()
				continue
			}
			if c.typ != string(CellShared) || c.value == nil {
				continue
			}
			idx, err := strconv.Atoi(strings.TrimSpace(*c.value))
			if err != nil || idx < 0 || idx >= len(shared) {
				continue
			}
			text := shared[idx]
			c.value = &text
			c.typ = string(CellString)
		}
	}
}
