package sheetfill

import (
	"log"
	"regexp"
	"strings"
	"time"
)

// sanitizeJSONBlock извлекает JSON, обёрнутый в тройные кавычки ``` ... ```.
// Если таких кавычек нет, либо структура неверная, возвращает исходную строку.
var fenceRx = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")

func sanitizeJSONBlock(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	m := fenceRx.FindStringSubmatch(s)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// WriteResultsWithTemplate заполняет шаблон данными из JSON-документов outputs.
func WriteResultsWithTemplate(templatePath, destPath string, outputs []string) error {
	log.Printf("📊 Начинаем запись результатов в Excel...")
	log.Printf("📁 Шаблон: %s", templatePath)
	log.Printf("📄 Выходной файл: %s", destPath)
	log.Printf("📝 Количество JSON-документов: %d", len(outputs))

	startTime := time.Now()

	b, err := BindingFromJSON(outputs...)
	if err != nil {
		log.Printf("❌ Ошибка разбора данных: %v", err)
		return err
	}
	log.Printf("✅ Данные разобраны: %d имён", len(b.Names()))

	log.Printf("🔄 Рендеринг листов...")
	if err := RenderFile(templatePath, destPath, b); err != nil {
		log.Printf("❌ Ошибка рендеринга: %v", err)
		return err
	}

	log.Printf("✅ Excel файл создан за %v", time.Since(startTime))
	log.Printf("📄 Результат сохранен в: %s", destPath)
	return nil
}

// SaveAsByTemplate заполняет шаблон произвольным значением (map, структура, Fielder).
func SaveAsByTemplate(templatePath, destPath string, value interface{}) error {
	log.Printf("📁 Шаблон: %s → %s", templatePath, destPath)
	startTime := time.Now()
	if err := RenderFile(templatePath, destPath, value); err != nil {
		log.Printf("❌ Ошибка рендеринга: %v", err)
		return err
	}
	log.Printf("✅ Excel файл создан за %v", time.Since(startTime))
	return nil
}
