package sheetfill

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	sharedStringsPart  = "xl/sharedStrings.xml"
	worksheetPartsPath = "xl/worksheets/sheet"
)

// Render пишет в dst книгу, построенную по шаблону src: листы переписываются
// с подстановкой value, остальные части архива копируются как есть и в том же порядке.
// value: map[string]T, структура, Fielder или *Binding.
func Render(dst io.Writer, src io.ReaderAt, size int64, value interface{}) error {
	b, err := NewBinding(value)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(src, size)
	if err != nil {
		return fmt.Errorf("открытие шаблона: %w", err)
	}
	shared, err := readSharedStringsPart(zr)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(dst)
	for _, f := range zr.File {
		if !isWorksheetPart(f.Name) {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("копирование %s: %w", f.Name, err)
			}
			continue
		}
		if err := renderSheetPart(zw, f, b, shared); err != nil {
			var md *MissingDimensionError
			if errors.As(err, &md) {
				md.Sheet = f.Name
				return err
			}
			return fmt.Errorf("лист %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}

// RenderFile: Render для файлов на диске. Шаблон не может совпадать с результатом.
func RenderFile(templatePath, destPath string, value interface{}) error {
	if filepath.Clean(templatePath) == filepath.Clean(destPath) {
		return fmt.Errorf("шаблон и результат совпадают: %s", destPath)
	}
	in, err := os.Open(templatePath)
	if err != nil {
		return err
	}
	defer in.Close()
	st, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if err := Render(out, in, st.Size(), value); err != nil {
		out.Close()
		os.Remove(destPath)
		return err
	}
	return out.Close()
}

func isWorksheetPart(name string) bool {
	n := strings.ToLower(strings.TrimPrefix(name, "/"))
	return strings.HasPrefix(n, worksheetPartsPath) && strings.HasSuffix(n, ".xml")
}

func readSharedStringsPart(zr *zip.Reader) ([]string, error) {
	for _, f := range zr.File {
		if !strings.EqualFold(strings.TrimPrefix(f.Name, "/"), sharedStringsPart) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("открытие %s: %w", f.Name, err)
		}
		defer rc.Close()
		return ReadSharedStrings(rc)
	}
	return nil, nil
}

// renderSheetPart заменяет часть листа новой записью с тем же именем.
func renderSheetPart(zw *zip.Writer, f *zip.File, b *Binding, shared []string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     f.Name,
		Method:   zip.Deflate,
		Modified: f.Modified,
	})
	if err != nil {
		return err
	}
	return RenderSheet(w, rc, b, shared)
}
