package entity

import "sync"

const (
	PlayerX = "X"
	PlayerO = "O"

	EmptyCell = ""

	BoardSize = 9
)

// GameState is the full game snapshot exchanged with clients. Updates replace
// the room's state wholesale; the server performs no rules validation.
type GameState struct {
	Squares []string `json:"squares"`
	History []int    `json:"history"`
	XIsNext bool     `json:"xIsNext"`
}

// Room holds the mutable state of one game session. Every method takes the
// room's own lock, so operations on different rooms never contend.
type Room struct {
	mu sync.Mutex

	squares []string
	history []int
	xIsNext bool

	symbols map[string]string
	players int
}

func NewRoom() *Room {
	return &Room{
		squares: emptyBoard(),
		history: []int{},
		xIsNext: true,
		symbols: make(map[string]string),
	}
}

func emptyBoard() []string {
	return make([]string, BoardSize)
}

// Squares returns a copy of the board cells.
func (that *Room) Squares() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	squares := make([]string, len(that.squares))
	copy(squares, that.squares)

	return squares
}

// History returns a copy of the move order.
func (that *Room) History() []int {
	that.mu.Lock()
	defer that.mu.Unlock()

	history := make([]int, len(that.history))
	copy(history, that.history)

	return history
}

func (that *Room) XIsNext() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.xIsNext
}

func (that *Room) SetSquares(squares []string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.squares = squares
}

func (that *Room) SetHistory(history []int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.history = history
}

func (that *Room) SetXIsNext(xIsNext bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.xIsNext = xIsNext
}

// Snapshot returns squares, history and the turn flag copied in a single
// critical section, so callers never observe a torn update.
func (that *Room) Snapshot() GameState {
	that.mu.Lock()
	defer that.mu.Unlock()

	squares := make([]string, len(that.squares))
	copy(squares, that.squares)

	history := make([]int, len(that.history))
	copy(history, that.history)

	return GameState{
		Squares: squares,
		History: history,
		XIsNext: that.xIsNext,
	}
}

// ApplyState replaces the whole game state with a trusted client snapshot.
func (that *Room) ApplyState(state GameState) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.squares = state.Squares
	that.history = state.History
	that.xIsNext = state.XIsNext
}

// AssignSymbol hands out a mark to username. A player who already holds a
// mark gets it back unchanged. Otherwise the missing mark is assigned: X if
// no one holds X, else O, else X as a fallback that the registry's two-player
// cap keeps unreachable.
func (that *Room) AssignSymbol(username string) string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.assignSymbolLocked(username)
}

func (that *Room) assignSymbolLocked(username string) string {
	if symbol, ok := that.symbols[username]; ok {
		return symbol
	}

	symbol := PlayerX
	switch {
	case !that.symbolTakenLocked(PlayerX):
		symbol = PlayerX
	case !that.symbolTakenLocked(PlayerO):
		symbol = PlayerO
	}

	that.symbols[username] = symbol
	that.players++

	return symbol
}

func (that *Room) symbolTakenLocked(symbol string) bool {
	for _, taken := range that.symbols {
		if taken == symbol {
			return true
		}
	}

	return false
}

// TryJoin atomically checks capacity and assigns a mark. It refuses when the
// room already has two other players, which closes the matchmaking race
// between scanning for an open room and joining it.
func (that *Room) TryJoin(username string) (string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if symbol, ok := that.symbols[username]; ok {
		return symbol, true
	}

	if that.players >= 2 {
		return "", false
	}

	return that.assignSymbolLocked(username), true
}

// RemovePlayer drops username's mark and resets the board, history and turn
// flag, so a room is never left mid-game with stale state. It reports whether
// the player held a mark.
func (that *Room) RemovePlayer(username string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.symbols[username]; !ok {
		return false
	}

	delete(that.symbols, username)
	that.players--

	that.squares = emptyBoard()
	that.history = []int{}
	that.xIsNext = true

	return true
}

func (that *Room) PlayerCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.players
}

// PlayerSymbol returns the mark held by username, if any.
func (that *Room) PlayerSymbol(username string) (string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	symbol, ok := that.symbols[username]

	return symbol, ok
}
