package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	expro "github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"

	"github.com/nikitaxru/sheetfill"
)

// loadValues собирает контекст шаблона: файлы по порядку (имя из более
// раннего файла не перекрывается), затем присваивания name=выражение.
func loadValues(paths, sets []string) (map[string]interface{}, error) {
	values := map[string]interface{}{}
	for _, path := range paths {
		doc, err := readDataFile(path)
		if err != nil {
			return nil, err
		}
		for k, v := range doc {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	for _, s := range sets {
		if err := applySet(values, s); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func readDataFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение данных: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s: ожидается YAML-объект: %w", path, err)
		}
		return doc, nil
	}
	b, err := sheetfill.BindingFromJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc := make(map[string]interface{}, len(b.Names()))
	for _, name := range b.Names() {
		doc[name], _ = b.Resolve(name)
	}
	return doc, nil
}

// applySet вычисляет выражение expr-lang в контексте уже загруженных данных
// и записывает результат под именем name.
func applySet(values map[string]interface{}, assignment string) error {
	name, src, ok := strings.Cut(assignment, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.TrimSpace(src) == "" {
		return fmt.Errorf("--set %q: ожидается name=выражение", assignment)
	}
	program, err := expro.Compile(src, expro.Env(values))
	if err != nil {
		return fmt.Errorf("--set %s: %w", name, err)
	}
	out, err := expro.Run(program, values)
	if err != nil {
		return fmt.Errorf("--set %s: %w", name, err)
	}
	values[name] = out
	return nil
}
