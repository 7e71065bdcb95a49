package sheetfill

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strconv"
)

// PlaceholderUse: плейсхолдер, найденный в ячейке шаблона.
type PlaceholderUse struct {
	Sheet string
	// Cell: адрес ячейки в шаблоне; пусто, если у ячейки нет r.
	Cell        string
	Placeholder Placeholder
	// Err: ошибка проверки синтаксиса (NotSupportedError) или nil.
	Err error
}

// Inspect перечисляет плейсхолдеры всех листов шаблона без подстановки данных:
// по листам в порядке архива, внутри листа по строкам и ячейкам.
func Inspect(src io.ReaderAt, size int64) ([]PlaceholderUse, error) {
	zr, err := zip.NewReader(src, size)
	if err != nil {
		return nil, fmt.Errorf("открытие шаблона: %w", err)
	}
	shared, err := readSharedStringsPart(zr)
	if err != nil {
		return nil, err
	}
	var out []PlaceholderUse
	for _, f := range zr.File {
		if !isWorksheetPart(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("открытие %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("чтение %s: %w", f.Name, err)
		}
		doc, err := parseSheet(data)
		if err != nil {
			return nil, fmt.Errorf("лист %s: %w", f.Name, err)
		}
		resolveSharedStrings(doc.rows, shared)
		for _, row := range doc.rows {
			for _, c := range row.cells {
				if c.value == nil {
					continue
				}
				cell := ""
				if c.col != "" {
					cell = c.col + strconv.Itoa(row.index)
				}
				for _, ph := range ScanPlaceholders(*c.value) {
					out = append(out, PlaceholderUse{Sheet: f.Name, Cell: cell, Placeholder: ph, Err: ph.validate()})
				}
			}
		}
	}
	return out, nil
}

// InspectFile: Inspect для файла на диске.
func InspectFile(path string) ([]PlaceholderUse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Inspect(f, st.Size())
}
