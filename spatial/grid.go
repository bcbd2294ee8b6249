// Package spatial provides neighbor queries and obstacle ray casts.
package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
)

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	E      ecs.Entity
	Pos    mgl64.Vec3
	Delta  mgl64.Vec3 // Pos minus query center
	DistSq float64
}

// Grid buckets entities into XZ cells for radius queries.
// Entities keep their full 3D position; distance checks use all three axes.
type Grid struct {
	cellSize   float64
	minX, minZ float64
	cols, rows int
	cells      [][]ecs.Entity

	cellOf map[ecs.Entity]int
	posOf  map[ecs.Entity]mgl64.Vec3
}

// NewGrid creates a grid covering the horizontal extent of [min, max].
func NewGrid(min, max mgl64.Vec3, cellSize float64) *Grid {
	cols := int((max[0]-min[0])/cellSize) + 1
	rows := int((max[2]-min[2])/cellSize) + 1

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}

	return &Grid{
		cellSize: cellSize,
		minX:     min[0],
		minZ:     min[2],
		cols:     cols,
		rows:     rows,
		cells:    cells,
		cellOf:   make(map[ecs.Entity]int),
		posOf:    make(map[ecs.Entity]mgl64.Vec3),
	}
}

// Len returns the number of tracked entities.
func (g *Grid) Len() int {
	return len(g.posOf)
}

// Move inserts e or updates its position, rebucketing when it changes cell.
func (g *Grid) Move(e ecs.Entity, pos mgl64.Vec3) {
	idx := g.cellIndex(pos)
	g.posOf[e] = pos
	if old, ok := g.cellOf[e]; ok {
		if old == idx {
			return
		}
		g.cells[old] = removeOrdered(g.cells[old], e)
	}
	g.cellOf[e] = idx
	g.cells[idx] = append(g.cells[idx], e)
}

// Remove drops e immediately. It reports whether e was tracked.
func (g *Grid) Remove(e ecs.Entity) bool {
	idx, ok := g.cellOf[e]
	if !ok {
		return false
	}
	g.cells[idx] = removeOrdered(g.cells[idx], e)
	delete(g.cellOf, e)
	delete(g.posOf, e)
	return true
}

// QueryRadiusInto appends every entity within radius to dst. Results are
// not ranked; cells are visited in row-major order so the order is
// deterministic for a given layout.
func (g *Grid) QueryRadiusInto(dst []Neighbor, center mgl64.Vec3, radius float64, exclude ecs.Entity) []Neighbor {
	if radius < 0 {
		return dst
	}
	cellRadius := int(radius/g.cellSize) + 1
	centerCol, centerRow := g.colRow(center)
	radiusSq := radius * radius

	for dr := -cellRadius; dr <= cellRadius; dr++ {
		row := centerRow + dr
		if row < 0 || row >= g.rows {
			continue
		}
		for dc := -cellRadius; dc <= cellRadius; dc++ {
			col := centerCol + dc
			if col < 0 || col >= g.cols {
				continue
			}
			for _, e := range g.cells[row*g.cols+col] {
				if e == exclude {
					continue
				}
				pos := g.posOf[e]
				delta := pos.Sub(center)
				distSq := delta.Dot(delta)
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: e, Pos: pos, Delta: delta, DistSq: distSq})
				}
			}
		}
	}
	return dst
}

func (g *Grid) colRow(pos mgl64.Vec3) (int, int) {
	col := int((pos[0] - g.minX) / g.cellSize)
	row := int((pos[2] - g.minZ) / g.cellSize)

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

func (g *Grid) cellIndex(pos mgl64.Vec3) int {
	col, row := g.colRow(pos)
	return row*g.cols + col
}

func removeOrdered(s []ecs.Entity, e ecs.Entity) []ecs.Entity {
	for i, x := range s {
		if x == e {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
