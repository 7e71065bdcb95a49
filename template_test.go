package sheetfill_test

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"github.com/nikitaxru/sheetfill"
)

// TemplateSuite: сьют тестов заполнения книг по шаблону
type TemplateSuite struct {
	suite.Suite
	dir string
}

func (s *TemplateSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

// Runner
func TestTemplateSuite(t *testing.T) {
	suite.Run(t, new(TemplateSuite))
}

// saveTemplate сохраняет книгу-шаблон (cells: адрес → текст), dimension задаётся явно.
func (s *TemplateSuite) saveTemplate(name, dimension string, cells map[string]string) string {
	path := filepath.Join(s.dir, name)
	f := excelize.NewFile()
	for addr, v := range cells {
		s.Require().NoError(f.SetCellValue("Sheet1", addr, v), addr)
	}
	s.Require().NoError(f.SetSheetDimension("Sheet1", dimension), "dimension")
	s.Require().NoError(f.SaveAs(path), "save template")
	return path
}

func (s *TemplateSuite) open(path string) *excelize.File {
	f, err := excelize.OpenFile(path)
	s.Require().NoError(err, "open result")
	s.T().Cleanup(func() { _ = f.Close() })
	return f
}

func (s *TemplateSuite) assertCells(f *excelize.File, sheet string, want map[string]string) {
	for addr, exp := range want {
		v, err := f.GetCellValue(sheet, addr)
		s.Require().NoError(err, addr)
		s.Assert().Equal(exp, v, addr)
	}
}

type rawCell struct {
	R string  `xml:"r,attr"`
	T string  `xml:"t,attr"`
	V *string `xml:"v"`
}

// rawCells читает типы ячеек прямо из XML листа: excelize отдаёт уже
// преобразованные значения.
func (s *TemplateSuite) rawCells(path, part string) map[string]rawCell {
	zr, err := zip.OpenReader(path)
	s.Require().NoError(err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != part {
			continue
		}
		rc, err := f.Open()
		s.Require().NoError(err)
		data, err := io.ReadAll(rc)
		rc.Close()
		s.Require().NoError(err)
		var ws struct {
			Rows []struct {
				Cells []rawCell `xml:"c"`
			} `xml:"sheetData>row"`
		}
		s.Require().NoError(xml.Unmarshal(data, &ws))
		out := map[string]rawCell{}
		for _, row := range ws.Rows {
			for _, c := range row.Cells {
				out[c.R] = c
			}
		}
		return out
	}
	s.Require().FailNow("нет части " + part)
	return nil
}

// TestScalarValues: {{name}} из map
func (s *TemplateSuite) TestScalarValues() {
	tpl := s.saveTemplate("scalar.xlsx", "A1:B2", map[string]string{
		"A1": "Отчёт",
		"A2": "Имя",
		"B2": "{{name}}",
	})
	out := filepath.Join(s.dir, "scalar_out.xlsx")

	s.Require().NoError(sheetfill.SaveAsByTemplate(tpl, out, map[string]interface{}{"name": "Alice"}))

	res := s.open(out)
	s.assertCells(res, "Sheet1", map[string]string{"A1": "Отчёт", "A2": "Имя", "B2": "Alice"})
	dim, err := res.GetSheetDimension("Sheet1")
	s.Require().NoError(err)
	s.Assert().Equal("A1:B2", dim)
}

// TestCollectionFromJSON: строка с {{items.field}} размножается, нижние строки сдвигаются
func (s *TemplateSuite) TestCollectionFromJSON() {
	tpl := s.saveTemplate("table.xlsx", "A1:C4", map[string]string{
		"A1": "Дефекты",
		"A3": "{{defects.code}}",
		"B3": "{{defects.name}}",
		"C3": "{{defects.count}}",
		"A4": "Конец",
	})
	out := filepath.Join(s.dir, "table_out.xlsx")
	json := "```json\n" + `{
        "defects": [
            {"code": "D001", "name": "Царапина", "count": 2},
            {"code": "D002", "name": "Скол", "count": 5},
            {"code": "D003", "name": "Трещина", "count": 1}
        ]
    }` + "\n```"

	s.Require().NoError(sheetfill.WriteResultsWithTemplate(tpl, out, []string{json}))

	res := s.open(out)
	s.assertCells(res, "Sheet1", map[string]string{
		"A1": "Дефекты",
		"A3": "D001", "B3": "Царапина", "C3": "2",
		"A4": "D002", "B4": "Скол", "C4": "5",
		"A5": "D003", "B5": "Трещина", "C5": "1",
		"A6": "Конец",
	})
	dim, err := res.GetSheetDimension("Sheet1")
	s.Require().NoError(err)
	s.Assert().Equal("A1:C6", dim)

	raw := s.rawCells(out, "xl/worksheets/sheet1.xml")
	s.Assert().Equal("n", raw["C4"].T)
	s.Assert().Equal("str", raw["B4"].T)
}

// TestEmptyCollection: пустая коллекция убирает строку шаблона
func (s *TemplateSuite) TestEmptyCollection() {
	tpl := s.saveTemplate("empty.xlsx", "A1:B3", map[string]string{
		"A1": "Заголовок",
		"A2": "{{rows.a}}",
		"B2": "{{rows.b}}",
		"A3": "Итого",
	})
	out := filepath.Join(s.dir, "empty_out.xlsx")

	s.Require().NoError(sheetfill.SaveAsByTemplate(tpl, out, map[string]interface{}{
		"rows": []map[string]interface{}{},
	}))

	res := s.open(out)
	s.assertCells(res, "Sheet1", map[string]string{"A1": "Заголовок", "A2": "Итого", "A3": ""})
	dim, err := res.GetSheetDimension("Sheet1")
	s.Require().NoError(err)
	s.Assert().Equal("A1:B2", dim)
}

type order struct {
	Number int
	Paid   bool
	Date   time.Time
	Note   *string
}

type report struct {
	Title  string
	Orders []order
}

// TestStructBinding: структура как контекст, типы ячеек по значениям
func (s *TemplateSuite) TestStructBinding() {
	tpl := s.saveTemplate("struct.xlsx", "A1:D2", map[string]string{
		"A1": "{{Title}}",
		"A2": "{{Orders.Number}}",
		"B2": "{{Orders.Paid}}",
		"C2": "{{Orders.Date}}",
		"D2": "{{Orders.Note}}",
	})
	out := filepath.Join(s.dir, "struct_out.xlsx")
	note := "срочно"
	data := report{
		Title: "Заказы",
		Orders: []order{
			{Number: 10, Paid: true, Date: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Note: &note},
			{Number: 11},
		},
	}

	s.Require().NoError(sheetfill.SaveAsByTemplate(tpl, out, data))

	raw := s.rawCells(out, "xl/worksheets/sheet1.xml")
	s.Assert().Equal("str", raw["A1"].T)
	s.Assert().Equal("n", raw["A2"].T)
	s.Assert().Equal("10", *raw["A2"].V)
	s.Assert().Equal("b", raw["B2"].T)
	s.Assert().Equal("1", *raw["B2"].V)
	s.Assert().Equal("str", raw["C2"].T)
	s.Assert().Equal("2024-01-02 03:04:05", *raw["C2"].V)
	s.Assert().Equal("срочно", *raw["D2"].V)
	s.Assert().Equal("0", *raw["B3"].V)
	s.Assert().Equal("str", raw["D3"].T)
	s.Assert().Equal("", *raw["D3"].V)

	res := s.open(out)
	s.assertCells(res, "Sheet1", map[string]string{"A1": "Заказы", "A3": "11"})
}

// TestRowIndex: {{$rowindex}} даёт номер строки результата
func (s *TemplateSuite) TestRowIndex() {
	tpl := s.saveTemplate("index.xlsx", "A1:B2", map[string]string{
		"A1": "№",
		"A2": "{{$rowindex}}",
		"B2": "{{tasks.name}}",
	})
	out := filepath.Join(s.dir, "index_out.xlsx")

	s.Require().NoError(sheetfill.SaveAsByTemplate(tpl, out, map[string]interface{}{
		"tasks": []map[string]string{{"name": "a"}, {"name": "b"}},
	}))

	res := s.open(out)
	s.assertCells(res, "Sheet1", map[string]string{"A2": "2", "B2": "a", "A3": "3", "B3": "b"})
}

// TestMultipleSheets: каждый лист заполняется из одного контекста
func (s *TemplateSuite) TestMultipleSheets() {
	path := filepath.Join(s.dir, "multi.xlsx")
	f := excelize.NewFile()
	_, err := f.NewSheet("Итоги")
	s.Require().NoError(err)
	s.Require().NoError(f.SetCellValue("Sheet1", "A1", "{{items}}"))
	s.Require().NoError(f.SetSheetDimension("Sheet1", "A1"))
	s.Require().NoError(f.SetCellValue("Итоги", "A1", "Всего: {{total}}"))
	s.Require().NoError(f.SetSheetDimension("Итоги", "A1"))
	s.Require().NoError(f.SaveAs(path))
	out := filepath.Join(s.dir, "multi_out.xlsx")

	s.Require().NoError(sheetfill.SaveAsByTemplate(path, out, map[string]interface{}{
		"items": []int{1, 2, 3},
		"total": 6,
	}))

	res := s.open(out)
	s.Assert().Equal([]string{"Sheet1", "Итоги"}, res.GetSheetList())
	s.assertCells(res, "Sheet1", map[string]string{"A1": "1", "A2": "2", "A3": "3"})
	s.assertCells(res, "Итоги", map[string]string{"A1": "Всего: 6"})
	dim, err := res.GetSheetDimension("Sheet1")
	s.Require().NoError(err)
	s.Assert().Equal("A1:A3", dim)
}

// TestRenderToBuffer: Render работает с потоками, без файлов
func (s *TemplateSuite) TestRenderToBuffer() {
	f := excelize.NewFile()
	s.Require().NoError(f.SetCellValue("Sheet1", "A1", "{{greeting}}"))
	s.Require().NoError(f.SetSheetDimension("Sheet1", "A1"))
	buf, err := f.WriteToBuffer()
	s.Require().NoError(err)
	src := bytes.NewReader(buf.Bytes())

	var dst bytes.Buffer
	s.Require().NoError(sheetfill.Render(&dst, src, src.Size(), map[string]string{"greeting": "Привет"}))

	res, err := excelize.OpenReader(&dst)
	s.Require().NoError(err)
	defer res.Close()
	s.assertCells(res, "Sheet1", map[string]string{"A1": "Привет"})
}

// TestErrors: ошибки движка различимы через errors.Is
func (s *TemplateSuite) TestErrors() {
	tpl := s.saveTemplate("errors.xlsx", "A1", map[string]string{"A1": "{{missing}}"})

	s.Run("unknown binding", func() {
		err := sheetfill.SaveAsByTemplate(tpl, filepath.Join(s.dir, "e1.xlsx"), map[string]interface{}{"name": "x"})
		s.Require().Error(err)
		s.Assert().True(errors.Is(err, sheetfill.ErrUnknownBinding), err.Error())
		var ub *sheetfill.UnknownBindingError
		s.Require().True(errors.As(err, &ub))
		s.Assert().Equal("missing", ub.Name)
	})

	s.Run("same path", func() {
		err := sheetfill.RenderFile(tpl, tpl, nil)
		s.Assert().Error(err)
	})

	s.Run("bad json", func() {
		err := sheetfill.WriteResultsWithTemplate(tpl, filepath.Join(s.dir, "e2.xlsx"), []string{"не json"})
		s.Assert().Error(err)
	})

	s.Run("not a zip", func() {
		src := bytes.NewReader([]byte("plain text"))
		err := sheetfill.Render(io.Discard, src, src.Size(), nil)
		s.Assert().Error(err)
	})
}
