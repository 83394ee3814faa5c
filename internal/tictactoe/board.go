package tictactoe

// Mark is a single cell value, stored as its wire byte.
type Mark byte

const (
	Empty  Mark = '0'
	Cross  Mark = '1'
	Nought Mark = '2'
)

const Size = 3

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is a 3x3 grid in row-major order (index = 3*y + x).
type Board [9]Mark

func NewBoard() Board {
	var board Board
	for i := range board {
		board[i] = Empty
	}
	return board
}

// InRange reports whether (x, y) addresses a cell on the board.
func InRange(x, y int) bool {
	return x >= 0 && x < Size && y >= 0 && y < Size
}

func (that *Board) Cell(x, y int) Mark {
	return that[Size*y+x]
}

func (that *Board) Place(x, y int, mark Mark) {
	that[Size*y+x] = mark
}

// IsWinner reports whether the given mark holds a complete line.
func (that *Board) IsWinner(mark Mark) bool {
	for _, combo := range WinCombos {
		if that[combo[0]] == mark && that[combo[1]] == mark && that[combo[2]] == mark {
			return true
		}
	}
	return false
}

// IsFull reports whether no empty cell remains.
func (that *Board) IsFull() bool {
	for _, cell := range that {
		if cell == Empty {
			return false
		}
	}
	return true
}

// Encode returns the 9-character wire form of the board.
func (that *Board) Encode() string {
	buf := make([]byte, len(that))
	for i, cell := range that {
		buf[i] = byte(cell)
	}
	return string(buf)
}
