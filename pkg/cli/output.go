package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/doubletabai/tabsql/pkg/database"
	"github.com/doubletabai/tabsql/pkg/training"
)

func newSpinner(progressText string) *pterm.SpinnerPrinter {
	spinner, _ := pterm.DefaultSpinner.
		WithRemoveWhenDone(true).
		WithSequence("▁▁", "▂▂", "▃▃", "▄▄", "▅▅", "▆▆", "▇▇", "██", "▇▇", "▆▆", "▅▅", "▄▄", "▃▃", "▂▂", "▁▁").
		Start(progressText)
	return spinner
}

func printSQL(sql string) {
	pterm.DefaultSection.Println("SQL")
	pterm.DefaultBasicText.Println(pterm.LightCyan(sql))
}

func printResult(res *database.Result) error {
	if res == nil {
		return nil
	}
	if len(res.Columns) == 0 {
		pterm.Success.Println("Statement executed")
		return nil
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(resultTable(res)).Render(); err != nil {
		return err
	}
	if res.Truncated {
		pterm.Warning.Printfln("Showing the first %d rows only", len(res.Rows))
	}
	return nil
}

// resultTable renders query results as strings with the column names as the header row.
func resultTable(res *database.Result) pterm.TableData {
	data := make(pterm.TableData, 0, len(res.Rows)+1)
	data = append(data, res.Columns)
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		data = append(data, cells)
	}
	return data
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return t.Format(time.RFC3339)
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}

func trainingTable(items []training.Item) pterm.TableData {
	data := pterm.TableData{{"ID", "KIND", "SOURCE", "QUESTION", "CONTENT"}}
	for _, it := range items {
		data = append(data, []string{it.ID, string(it.Kind), it.Source, it.Question, truncate(it.Content, 60)})
	}
	return data
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
