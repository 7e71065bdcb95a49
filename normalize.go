package sheetfill

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
)

// BindingFromJSON собирает контекст из JSON-объектов. Документы могут быть
// обёрнуты в ``` ... ```; пустые и не-объекты пропускаются с предупреждением.
// Если имя встречается в нескольких документах, берётся первое.
// Ошибка возвращается, только когда ни один непустой документ не разобран.
func BindingFromJSON(outputs ...string) (*Binding, error) {
	b := &Binding{values: map[string]interface{}{}}
	parsed, skipped := 0, 0
	for i, s := range outputs {
		root, ok := decodeJSONRoot(s)
		if !ok {
			if strings.TrimSpace(s) != "" {
				log.Printf("⚠️ Документ %d пропущен: ожидается JSON-объект", i+1)
				skipped++
			}
			continue
		}
		parsed++
		for k, v := range root {
			if _, exists := b.values[k]; exists {
				continue
			}
			b.set(k, v)
		}
	}
	if parsed == 0 && skipped > 0 {
		return nil, errors.New("данные: ни один документ не является JSON-объектом")
	}
	return b, nil
}

func decodeJSONRoot(s string) (map[string]interface{}, bool) {
	s = strings.TrimSpace(sanitizeJSONBlock(s))
	if s == "" {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	root, ok := v.(map[string]interface{})
	return root, ok
}
