package codec

// gridBuilder accumulates a table's row grid during import. Each step takes
// a builder and returns the updated one; callers must use the returned value.
type gridBuilder struct {
	width int
	cells [][]string
}

func newGridBuilder(width int) gridBuilder {
	return gridBuilder{width: width}
}

// newRow returns a blank row of the grid's width.
func (g gridBuilder) newRow() []string {
	return make([]string, g.width)
}

func (g gridBuilder) withRow(row []string) gridBuilder {
	g.cells = append(g.cells, row)
	return g
}

// grow appends blank rows until the grid holds at least n rows.
func (g gridBuilder) grow(n int) gridBuilder {
	for len(g.cells) < n {
		g.cells = append(g.cells, g.newRow())
	}
	return g
}

func (g gridBuilder) len() int {
	return len(g.cells)
}

func (g gridBuilder) get(row, col int) string {
	if row < 0 || row >= len(g.cells) || col < 0 || col >= g.width {
		return ""
	}
	return g.cells[row][col]
}

func (g gridBuilder) set(row, col int, value string) gridBuilder {
	if row < 0 || row >= len(g.cells) || col < 0 || col >= g.width {
		return g
	}
	g.cells[row][col] = value
	return g
}

func (g gridBuilder) rows() [][]string {
	return g.cells
}
