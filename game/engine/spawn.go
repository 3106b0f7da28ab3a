package engine

// RandomSource is the randomness the engine consumes. *math/rand.Rand
// satisfies it, so a seeded source gives reproducible games.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// SpawnTile places one new tile into a uniformly chosen empty cell. The value
// is 4 with probability fourProbability and 2 otherwise. A full grid is left
// untouched and reported with ok=false.
func SpawnTile(grid *Grid, rng RandomSource, fourProbability float64) (Tile, bool) {
	empty := grid.EmptyCells()
	if len(empty) == 0 {
		return Tile{}, false
	}
	cell := empty[rng.Intn(len(empty))]
	value := 2
	if rng.Float64() >= 1-fourProbability {
		value = 4
	}
	return grid.place(value, cell.Row, cell.Col), true
}

// InitializeGrid creates an empty grid and spawns the starting tiles
func InitializeGrid(size, startTiles int, rng RandomSource, fourProbability float64) (*Grid, error) {
	grid, err := NewGrid(size)
	if err != nil {
		return nil, err
	}
	for i := 0; i < startTiles; i++ {
		if _, ok := SpawnTile(grid, rng, fourProbability); !ok {
			break
		}
	}
	return grid, nil
}
