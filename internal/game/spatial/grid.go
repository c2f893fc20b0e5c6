// Package spatial provides cache-efficient spatial data structures for
// broad-phase collision detection and neighbor queries.
//
// All structures use preallocated slices to minimize GC pressure and
// maximize cache locality.
package spatial

import "math"

// Kind tags an entity identifier so a single grid can hold both players and
// food without inheritance or interface dispatch in the hot loop.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindFood
)

func (k Kind) String() string {
	if k == KindFood {
		return "food"
	}
	return "player"
}

// Ref is a (kind, identifier) pair — the grid's only handle on an entity.
// The grid never holds an entity pointer, only this back-reference.
type Ref struct {
	Kind Kind
	ID   string
}

// Grid is a uniform grid over fixed-size cells supporting O(1) insert and,
// via a cached cell-key per entity, O(1)-expected remove and move. Cells are
// stored row-major; bucket sizes stay small as long as entity density stays
// bounded, which keeps per-cell scans effectively constant time.
type Grid struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]Ref
	cellOf      map[Ref]int // cached cell index, kept in sync by every Insert/Remove/Move
	scratch     []Ref
}

// NewGrid creates a grid over [0,width]x[0,height] using the given cell
// size. maxEntities sizes the initial per-cell capacity hint only.
func NewGrid(width, height, cellSize float64, maxEntities int) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]Ref, cols*rows)
	avgPerCell := maxEntities / len(cells)
	if avgPerCell < 4 {
		avgPerCell = 4
	}
	for i := range cells {
		cells[i] = make([]Ref, 0, avgPerCell)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		cellOf:      make(map[Ref]int, maxEntities),
		scratch:     make([]Ref, 0, 64),
	}
}

func (g *Grid) cellIndex(x, y float64) int {
	col := int(x * g.invCellSize)
	row := int(y * g.invCellSize)
	if col < 0 {
		col = 0
	}
	if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= g.rows {
		row = g.rows - 1
	}
	return row*g.cols + col
}

// Insert places an entity at (x, y). O(1).
func (g *Grid) Insert(id string, kind Kind, x, y float64) {
	ref := Ref{Kind: kind, ID: id}
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], ref)
	g.cellOf[ref] = idx
}

// Remove deletes an entity. O(1) expected: the cell is found via the cached
// cell key rather than recomputed from (x, y), so Remove is correct even if
// the entity moved since Insert without an intervening Move call.
func (g *Grid) Remove(id string, kind Kind, x, y float64) {
	ref := Ref{Kind: kind, ID: id}
	idx, ok := g.cellOf[ref]
	if !ok {
		idx = g.cellIndex(x, y)
	}
	bucket := g.cells[idx]
	for i, r := range bucket {
		if r == ref {
			bucket[i] = bucket[len(bucket)-1]
			g.cells[idx] = bucket[:len(bucket)-1]
			break
		}
	}
	delete(g.cellOf, ref)
}

// Move relocates an entity from oldX,oldY to newX,newY. No-op if both
// positions hash to the same cell.
func (g *Grid) Move(id string, kind Kind, oldX, oldY, newX, newY float64) {
	ref := Ref{Kind: kind, ID: id}
	oldIdx, ok := g.cellOf[ref]
	if !ok {
		oldIdx = g.cellIndex(oldX, oldY)
	}
	newIdx := g.cellIndex(newX, newY)
	if oldIdx == newIdx {
		return
	}

	bucket := g.cells[oldIdx]
	for i, r := range bucket {
		if r == ref {
			bucket[i] = bucket[len(bucket)-1]
			g.cells[oldIdx] = bucket[:len(bucket)-1]
			break
		}
	}
	g.cells[newIdx] = append(g.cells[newIdx], ref)
	g.cellOf[ref] = newIdx
}

// Query returns every entity whose cell overlaps the axis-aligned bounding
// box of the circle centered at (cx, cy) with the given radius. Candidates
// are a superset of the true radius match (callers must refine with an
// exact distance check) and each entity appears at most once, since every
// entity lives in exactly one cell.
//
// The returned slice is reused across calls; copy it if it must outlive the
// next Query.
func (g *Grid) Query(cx, cy, radius float64) []Ref {
	g.scratch = g.scratch[:0]

	minCol := int((cx - radius) * g.invCellSize)
	maxCol := int((cx + radius) * g.invCellSize)
	minRow := int((cy - radius) * g.invCellSize)
	maxRow := int((cy + radius) * g.invCellSize)

	if minCol < 0 {
		minCol = 0
	}
	if maxCol >= g.cols {
		maxCol = g.cols - 1
	}
	if minRow < 0 {
		minRow = 0
	}
	if maxRow >= g.rows {
		maxRow = g.rows - 1
	}

	for row := minRow; row <= maxRow; row++ {
		base := row * g.cols
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[base+col]...)
		}
	}

	return g.scratch
}

// Len returns the number of tracked entities, for bijection assertions in
// tests.
func (g *Grid) Len() int {
	return len(g.cellOf)
}

// Stats returns grid occupancy statistics for debugging/metrics.
func (g *Grid) Stats() GridStats {
	var total, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		n := len(cell)
		total += n
		if n > maxInCell {
			maxInCell = n
		}
		if n > 0 {
			nonEmpty++
		}
	}
	avg := 0.0
	if nonEmpty > 0 {
		avg = float64(total) / float64(nonEmpty)
	}
	return GridStats{
		TotalCells:     len(g.cells),
		NonEmptyCells:  nonEmpty,
		TotalEntities:  total,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avg,
	}
}

// GridStats summarizes grid occupancy.
type GridStats struct {
	TotalCells     int
	NonEmptyCells  int
	TotalEntities  int
	MaxInCell      int
	AvgPerNonEmpty float64
}

// Dimensions returns the grid's cell layout.
func (g *Grid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
