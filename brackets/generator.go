package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrvlstats/tournament-core/models"
)

var (
	ErrNotEnoughTeams      = errors.New("not enough teams to generate a bracket (minimum 2)")
	ErrTooManyTeams        = errors.New("too many teams for this stage type")
	ErrPairingInfeasible   = errors.New("no rematch-free pairing exists for the remaining teams")
	ErrCyclicAdvancement   = errors.New("advancement edges form a cycle")
	ErrDanglingAdvancement = errors.New("advancement edge points to an unknown match")
)

// Field size caps per format.
const (
	maxEliminationTeams = 256
	maxRoundRobinTeams  = 32
	maxSwissTeams       = 128
)

// GenerateParams carries the immutable stage configuration and the seeded
// team list. Teams must be ordered by seed, best first.
type GenerateParams struct {
	Stage *models.BracketStage
	Teams []*models.Team
}

// Generator builds the full match DAG for elimination formats. Swiss stages
// are generated incrementally round by round (see PairSwissRound) and only
// produce their first round here.
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*models.BracketMatch, error)

	Name() string
}

// NewGenerator resolves the generator for a stage type.
func NewGenerator(t models.StageType) (Generator, error) {
	switch t {
	case models.StageSingleElimination:
		return &SingleEliminationGenerator{}, nil
	case models.StageDoubleElimination:
		return &DoubleEliminationGenerator{}, nil
	case models.StageRoundRobin, models.StageGroupStage:
		return &RoundRobinGenerator{}, nil
	case models.StageSwiss:
		return &SwissGenerator{}, nil
	default:
		return nil, fmt.Errorf("unsupported stage type %q", t)
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// seedPairs produces classic tournament seeding for a full bracket:
// 1 vs N, 2 vs N-1, ... so the top seeds can only meet in late rounds.
func seedPairs(bracketSize int) [][2]int {
	pairs := make([][2]int, 0, bracketSize/2)
	for i := 1; i <= bracketSize/2; i++ {
		pairs = append(pairs, [2]int{i, bracketSize + 1 - i})
	}
	return pairs
}
