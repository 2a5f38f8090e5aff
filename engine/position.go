package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dylhunn/dragontoothmg"
	"github.com/notnil/chess"

	"github.com/jacokyle01/live-analysis/models"
)

// Position is a validated board state. It is immutable.
type Position struct {
	fen     string
	pos     *chess.Position
	outcome *models.GameOutcome
}

// ParsePosition decodes a FEN string and checks that it describes a board
// that can arise in a game. Failures wrap ErrInvalidInput.
func ParsePosition(fen string) (*Position, error) {
	fen = strings.Join(strings.Fields(fen), " ")
	if fen == "" {
		return nil, fmt.Errorf("%w: empty position", ErrInvalidInput)
	}

	pos, err := decodeFEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := checkSane(pos); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := checkFlags(fen, pos.Board().SquareMap()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p := &Position{fen: fen, pos: pos}
	switch pos.Status() {
	case chess.Checkmate:
		// the side to move has been mated
		p.outcome = outcomeOf(models.WhiteWins)
		if p.WhiteToMove() {
			p.outcome = outcomeOf(models.BlackWins)
		}
	case chess.Stalemate:
		p.outcome = outcomeOf(models.Draw)
	}
	return p, nil
}

func (p *Position) FEN() string       { return p.fen }
func (p *Position) WhiteToMove() bool { return p.pos.Turn() == chess.White }

// Outcome reports how the game ended, or nil if it has not.
func (p *Position) Outcome() *models.GameOutcome {
	return p.outcome
}

func outcomeOf(o models.GameOutcome) *models.GameOutcome {
	return &o
}

// decodeFEN turns library panics on malformed boards into errors.
func decodeFEN(fen string) (pos *chess.Position, err error) {
	defer func() {
		if r := recover(); r != nil {
			pos, err = nil, fmt.Errorf("undecodable position: %v", r)
		}
	}()

	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return chess.NewGame(opt).Position(), nil
}

func checkSane(pos *chess.Position) error {
	var (
		kings  = map[chess.Color][]chess.Square{}
		pieces = map[chess.Color]int{}
		pawns  = map[chess.Color]int{}
	)

	for sq, pc := range pos.Board().SquareMap() {
		if pc == chess.NoPiece {
			continue
		}
		pieces[pc.Color()]++
		switch pc.Type() {
		case chess.King:
			kings[pc.Color()] = append(kings[pc.Color()], sq)
		case chess.Pawn:
			pawns[pc.Color()]++
			if sq.Rank() == chess.Rank1 || sq.Rank() == chess.Rank8 {
				return fmt.Errorf("pawn on %s", sq)
			}
		}
	}

	for _, c := range []chess.Color{chess.White, chess.Black} {
		if len(kings[c]) != 1 {
			return fmt.Errorf("%s has %d kings", c.Name(), len(kings[c]))
		}
		if pieces[c] > 16 {
			return fmt.Errorf("%s has %d pieces", c.Name(), pieces[c])
		}
		if pawns[c] > 8 {
			return fmt.Errorf("%s has %d pawns", c.Name(), pawns[c])
		}
	}

	wk, bk := kings[chess.White][0], kings[chess.Black][0]
	if abs(int(wk.File())-int(bk.File())) <= 1 && abs(int(wk.Rank())-int(bk.Rank())) <= 1 {
		return errors.New("kings are adjacent")
	}

	inCheck, err := waitingSideInCheck(pos.String())
	if err != nil {
		return err
	}
	if inCheck {
		return errors.New("side not to move is in check")
	}
	return nil
}

// castleHomes maps each castling right to the king and rook it needs in
// place.
var castleHomes = map[rune]struct {
	king, rook     chess.Square
	kingPc, rookPc chess.Piece
}{
	'K': {chess.E1, chess.H1, chess.WhiteKing, chess.WhiteRook},
	'Q': {chess.E1, chess.A1, chess.WhiteKing, chess.WhiteRook},
	'k': {chess.E8, chess.H8, chess.BlackKing, chess.BlackRook},
	'q': {chess.E8, chess.A8, chess.BlackKing, chess.BlackRook},
}

// checkFlags checks the castling rights and en passant square of fen
// against the board.
func checkFlags(fen string, board map[chess.Square]chess.Piece) error {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return fmt.Errorf("short position %q", fen)
	}

	if fields[2] != "-" {
		for _, right := range fields[2] {
			home, ok := castleHomes[right]
			if !ok {
				return fmt.Errorf("bad castling right %q", right)
			}
			if board[home.king] != home.kingPc || board[home.rook] != home.rookPc {
				return fmt.Errorf("castling right %q without king and rook at home", right)
			}
		}
	}

	ep := fields[3]
	if ep == "-" {
		return nil
	}
	if len(ep) != 2 || ep[0] < 'a' || ep[0] > 'h' {
		return fmt.Errorf("bad en passant square %q", ep)
	}

	// the pushed pawn stands one rank past ep, its start square one rank before
	file := int(ep[0] - 'a')
	rank, front, behind, pawn := 5, 4, 6, chess.BlackPawn
	if fields[1] == "b" {
		rank, front, behind, pawn = 2, 3, 1, chess.WhitePawn
	}
	if int(ep[1]-'1') != rank {
		return fmt.Errorf("en passant square %s on the wrong rank", ep)
	}
	if board[square(file, front)] != pawn {
		return fmt.Errorf("en passant square %s without a pushed pawn", ep)
	}
	if board[square(file, rank)] != chess.NoPiece || board[square(file, behind)] != chess.NoPiece {
		return fmt.Errorf("en passant square %s is not behind a double push", ep)
	}
	return nil
}

func square(file, rank int) chess.Square {
	return chess.Square(rank*8 + file)
}

// waitingSideInCheck hands the move to the other side and asks whether
// that side's king is attacked.
func waitingSideInCheck(fen string) (inCheck bool, err error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return false, fmt.Errorf("short position %q", fen)
	}
	if fields[1] == "w" {
		fields[1] = "b"
	} else {
		fields[1] = "w"
	}
	fields[3] = "-"

	defer func() {
		if r := recover(); r != nil {
			inCheck, err = false, fmt.Errorf("unreadable board: %v", r)
		}
	}()

	board := dragontoothmg.ParseFen(strings.Join(fields, " "))
	return board.OurKingInCheck(), nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
