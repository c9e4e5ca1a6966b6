// Package spatial provides a uniform-grid broad phase for box-shaped entities.
//
// Entities are stored by integer index (not pointer) in every cell their box
// overlaps, so a query only touches the handful of cells around the query box.
package spatial

import (
	"math"
	"sort"
)

// Grid buckets axis-aligned boxes into fixed-size square cells.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col]).
type Grid struct {
	cellSize    float64
	invCellSize float64 // 1/cellSize for faster division
	cols, rows  int
	cells       [][]uint32
	seen        map[uint32]struct{}
	scratch     []uint32 // reusable buffer for query results
}

// NewGrid creates a grid for the given world bounds.
// cellSize should be close to the typical entity size.
func NewGrid(worldWidth, worldHeight, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = math.Max(worldWidth, worldHeight)
	}
	cols := int(math.Ceil(worldWidth / cellSize))
	rows := int(math.Ceil(worldHeight / cellSize))

	// Ensure at least 1x1 grid
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	for i := range cells {
		cells[i] = make([]uint32, 0, 4)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		seen:        make(map[uint32]struct{}, 16),
		scratch:     make([]uint32, 0, 16),
	}
}

// Clear resets all cells without deallocating underlying memory.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// cellRange returns the inclusive, clamped cell span covered by a box.
func (g *Grid) cellRange(minX, minY, maxX, maxY float64) (minCol, minRow, maxCol, maxRow int) {
	minCol = g.clampCol(int(math.Floor(minX * g.invCellSize)))
	maxCol = g.clampCol(int(math.Floor(maxX * g.invCellSize)))
	minRow = g.clampRow(int(math.Floor(minY * g.invCellSize)))
	maxRow = g.clampRow(int(math.Floor(maxY * g.invCellSize)))
	return
}

func (g *Grid) clampCol(col int) int {
	if col < 0 {
		return 0
	}
	if col >= g.cols {
		return g.cols - 1
	}
	return col
}

func (g *Grid) clampRow(row int) int {
	if row < 0 {
		return 0
	}
	if row >= g.rows {
		return g.rows - 1
	}
	return row
}

// Insert adds an entity to every cell its box overlaps.
func (g *Grid) Insert(id uint32, minX, minY, maxX, maxY float64) {
	c0, r0, c1, r1 := g.cellRange(minX, minY, maxX, maxY)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			idx := row*g.cols + col
			g.cells[idx] = append(g.cells[idx], id)
		}
	}
}

// Remove deletes an entity previously inserted with the same box.
// Removing an unknown id is a no-op.
func (g *Grid) Remove(id uint32, minX, minY, maxX, maxY float64) {
	c0, r0, c1, r1 := g.cellRange(minX, minY, maxX, maxY)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			idx := row*g.cols + col
			cell := g.cells[idx]
			for i, v := range cell {
				if v == id {
					g.cells[idx] = append(cell[:i], cell[i+1:]...)
					break
				}
			}
		}
	}
}

// QueryBox returns the ids of entities in cells overlapped by the box,
// deduplicated and sorted ascending so callers see insertion-index order.
//
// IMPORTANT: The returned slice is reused on subsequent calls.
// Candidates may not actually overlap the box; the caller runs the narrow phase.
func (g *Grid) QueryBox(minX, minY, maxX, maxY float64) []uint32 {
	g.scratch = g.scratch[:0]
	clear(g.seen)

	c0, r0, c1, r1 := g.cellRange(minX, minY, maxX, maxY)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, id := range g.cells[row*g.cols+col] {
				if _, dup := g.seen[id]; dup {
					continue
				}
				g.seen[id] = struct{}{}
				g.scratch = append(g.scratch, id)
			}
		}
	}

	sort.Slice(g.scratch, func(i, j int) bool { return g.scratch[i] < g.scratch[j] })
	return g.scratch
}

// Stats returns grid statistics for debugging/profiling.
func (g *Grid) Stats() GridStats {
	var entries, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		count := len(cell)
		entries += count
		if count > maxInCell {
			maxInCell = count
		}
		if count > 0 {
			nonEmpty++
		}
	}

	return GridStats{
		TotalCells:    len(g.cells),
		NonEmptyCells: nonEmpty,
		TotalEntries:  entries,
		MaxInCell:     maxInCell,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells    int
	NonEmptyCells int
	TotalEntries  int // An entity spanning several cells counts once per cell
	MaxInCell     int
}

// Dimensions returns the grid dimensions.
func (g *Grid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
