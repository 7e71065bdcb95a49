package main

import (
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikitaxru/sheetfill"
)

// Version задаётся при сборке.
var Version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "sheetfill",
		Short:   "Заполнение XLSX-шаблонов данными",
		Version: Version,
		Long: `sheetfill подставляет данные в XLSX-шаблон с плейсхолдерами {{name}},
{{name.field}} и {{$rowindex}}. Строка, ссылающаяся на коллекцию,
размножается по одной строке на элемент.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRenderCmd(), newInspectCmd())
	return root
}

func newRenderCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Заполнить шаблон и сохранить результат",
		Example: `  sheetfill render -t report.xlsx -o out.xlsx -d data.json
  sheetfill render -t report.xlsx -o out.xlsx -d data.yaml --set "total=len(items)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runRender(cfg, cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "файл конфигурации (по умолчанию sheetfill.yaml)")
	f.StringP("template", "t", "", "XLSX-шаблон")
	f.StringP("output", "o", "", "файл результата")
	f.StringArrayP("data", "d", nil, "файл данных .json, .yaml или .yml (можно несколько)")
	f.StringArray("set", nil, "значение name=выражение, перекрывает данные из файлов")
	f.BoolP("verbose", "v", false, "подробный вывод")
	return cmd
}

// runRender собирает данные и заполняет шаблон. Без verbose журнал библиотеки
// не выводится.
func runRender(cfg *Config, stderr io.Writer) error {
	prevOut, prevFlags := log.Writer(), log.Flags()
	defer func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}()
	if cfg.Verbose {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	start := time.Now()
	values, err := loadValues(cfg.Data, cfg.Set)
	if err != nil {
		return err
	}
	log.Printf("📥 Данные загружены: %d файлов, %d присваиваний, %d имён", len(cfg.Data), len(cfg.Set), len(values))

	if err := sheetfill.SaveAsByTemplate(cfg.Template, cfg.Output, values); err != nil {
		return err
	}
	log.Printf("✅ Готово за %v", time.Since(start))
	return nil
}
