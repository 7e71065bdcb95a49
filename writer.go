package sheetfill

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// noiseNamespaces повторяют объявления корневого элемента; в выводимых строках
// они вычищаются безусловно.
var noiseNamespaces = []string{
	`xmlns:x14ac="http://schemas.microsoft.com/office/spreadsheetml/2009/9/ac"`,
	`xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"`,
}

func cleanXML(s string) string {
	for _, ns := range noiseNamespaces {
		if !strings.Contains(s, ns) {
			continue
		}
		s = strings.ReplaceAll(s, " "+ns, "")
		s = strings.ReplaceAll(s, ns, "")
	}
	return s
}

// RenderSheet переписывает XML одного листа: заголовок до sheetData (с новым
// dimension), строки по одной по мере рендера, затем хвост документа.
// Исходный лист разбирается целиком, в памяти одновременно держится только
// одна выведенная строка. При ошибке содержимое w не определено.
func RenderSheet(w io.Writer, sheet io.Reader, b *Binding, sharedStrings []string) error {
	data, err := io.ReadAll(sheet)
	if err != nil {
		return fmt.Errorf("чтение листа: %w", err)
	}
	doc, err := parseSheet(data)
	if err != nil {
		return err
	}
	if doc.dimension == nil {
		return &MissingDimensionError{}
	}
	if doc.dimension.start > doc.sheetData.start {
		return &MalformedTemplateError{Reason: "dimension расположен после sheetData"}
	}
	if b == nil {
		b = &Binding{values: map[string]interface{}{}}
	}

	resolveSharedStrings(doc.rows, sharedStrings)

	exp := &rowExpander{binding: b}
	plans := make([]*rowPlan, 0, len(doc.rows))
	for _, row := range doc.rows {
		p, err := exp.plan(row)
		if err != nil {
			return fmt.Errorf("строка %d: %w", row.index, err)
		}
		plans = append(plans, p)
	}
	ref, err := recalcDimension(doc.dimensionRef(), totalRowDelta(plans))
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, doc, ref); err != nil {
		return err
	}
	emit := func(row string) error {
		_, err := bw.WriteString(cleanXML(row))
		return err
	}
	for _, p := range plans {
		if err := exp.render(p, emit); err != nil {
			return err
		}
	}
	var sb strings.Builder
	writeEndTag(&sb, doc.sheetDataName)
	sb.Write(doc.data[doc.sheetData.end:])
	if _, err := bw.WriteString(sb.String()); err != nil {
		return err
	}
	return bw.Flush()
}

// writeHeader пишет всё до строк: пролог, корень, dimension с новым ref и открывающий sheetData.
func writeHeader(w io.StringWriter, doc *sheetDocument, ref string) error {
	var sb strings.Builder
	sb.Write(doc.data[:doc.dimension.start])
	writeStartTag(&sb, doc.dimensionName, withAttr(doc.dimensionAttrs, "ref", ref), true)
	sb.Write(doc.data[doc.dimension.end:doc.sheetData.start])
	writeStartTag(&sb, doc.sheetDataName, doc.sheetDataAttrs, false)
	_, err := w.WriteString(sb.String())
	return err
}
