package internal

// NoDataPlaceholder is the single row rendered for an empty table.
const NoDataPlaceholder = "No data"

// Table is the render-ready contract handed to a rendering surface.
// An empty data set is represented by Placeholder set and one row holding
// the placeholder text, never by zero rows.
type Table struct {
	Headers     []string   `json:"headers" yaml:"headers"`
	Rows        [][]string `json:"rows" yaml:"rows"`
	Placeholder bool       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// NewTable returns a table for rows, substituting the placeholder row when rows is empty.
func NewTable(headers []string, rows [][]string, placeholder string) Table {
	if len(rows) == 0 {
		if placeholder == "" {
			placeholder = NoDataPlaceholder
		}
		return Table{
			Headers:     headers,
			Rows:        [][]string{{placeholder}},
			Placeholder: true,
		}
	}
	return Table{Headers: headers, Rows: rows}
}

// WithoutColumn returns a copy of t with the column at idx removed. Placeholder
// tables are returned unchanged.
func (t Table) WithoutColumn(idx int) Table {
	if idx < 0 || idx >= len(t.Headers) {
		return t
	}
	out := Table{Placeholder: t.Placeholder}
	out.Headers = append(append([]string{}, t.Headers[:idx]...), t.Headers[idx+1:]...)
	if t.Placeholder {
		out.Rows = t.Rows
		return out
	}
	for _, row := range t.Rows {
		if idx >= len(row) {
			out.Rows = append(out.Rows, row)
			continue
		}
		out.Rows = append(out.Rows, append(append([]string{}, row[:idx]...), row[idx+1:]...))
	}
	return out
}
