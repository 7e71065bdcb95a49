package sheetfill

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// recalcDimension сдвигает номер строки правой нижней ячейки диапазона на delta.
// Столбец и левая верхняя ячейка не меняются, например A1:B6 +2 → A1:B8.
func recalcDimension(ref string, delta int) (string, error) {
	parts := strings.Split(ref, ":")
	if len(parts) > 2 || parts[0] == "" {
		return "", &MalformedTemplateError{Reason: "некорректный dimension ref=" + ref}
	}
	topLeft := parts[0]
	bottomRight := parts[len(parts)-1]
	col, row, err := excelize.SplitCellName(bottomRight)
	if err != nil {
		return "", &MalformedTemplateError{Reason: "некорректный dimension ref=" + ref, Cause: err}
	}
	if delta == 0 {
		return ref, nil
	}
	minRow := 1
	if _, top, err := excelize.SplitCellName(topLeft); err == nil {
		minRow = top
	}
	row += delta
	if row < minRow {
		row = minRow
	}
	cell, err := excelize.JoinCellName(col, row)
	if err != nil {
		return "", &MalformedTemplateError{Reason: "некорректный dimension ref=" + ref, Cause: err}
	}
	return topLeft + ":" + cell, nil
}

// rowDelta возвращает, сколько строк добавляет (или убирает) размножение строки: len-1,
// пустая коллекция даёт -1.
func (p *rowPlan) rowDelta() int {
	if !p.bound {
		return 0
	}
	return len(p.items) - 1
}

// totalRowDelta считает сдвиг по всем строкам до записи: dimension
// выводится раньше блока sheetData.
func totalRowDelta(plans []*rowPlan) int {
	total := 0
	for _, p := range plans {
		total += p.rowDelta()
	}
	return total
}
