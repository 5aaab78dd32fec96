package brackets

import (
	"fmt"

	"github.com/mrvlstats/tournament-core/models"
)

// ValidateAdvancement checks the generated DAG at construction time:
// every edge must resolve to a known match, a winner edge inside a section
// must point to a strictly later round, and the graph as a whole must be
// acyclic. Generators call this before returning, so a bracket with broken
// advancement is never persisted.
func ValidateAdvancement(matches []*models.BracketMatch) error {
	byUID := make(map[string]*models.BracketMatch, len(matches))
	for _, bm := range matches {
		byUID[bm.UID] = bm
	}

	edges := func(bm *models.BracketMatch) []string {
		var out []string
		if bm.WinnerToUID != nil {
			out = append(out, *bm.WinnerToUID)
		}
		if bm.LoserToUID != nil {
			out = append(out, *bm.LoserToUID)
		}
		return out
	}

	for _, bm := range matches {
		if bm.WinnerToUID != nil {
			target, ok := byUID[*bm.WinnerToUID]
			if !ok {
				return fmt.Errorf("%w: %s -> %s", ErrDanglingAdvancement, bm.UID, *bm.WinnerToUID)
			}
			if target.Section == bm.Section && target.Round <= bm.Round {
				return fmt.Errorf("winner edge %s -> %s does not advance to a later round", bm.UID, target.UID)
			}
		}
		if bm.LoserToUID != nil {
			if _, ok := byUID[*bm.LoserToUID]; !ok {
				return fmt.Errorf("%w: %s -> %s", ErrDanglingAdvancement, bm.UID, *bm.LoserToUID)
			}
		}
	}

	// Cycle check via iterative DFS with three-color marking.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(matches))
	var visit func(uid string) error
	visit = func(uid string) error {
		color[uid] = gray
		for _, next := range edges(byUID[uid]) {
			switch color[next] {
			case gray:
				return fmt.Errorf("%w: at %s -> %s", ErrCyclicAdvancement, uid, next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[uid] = black
		return nil
	}
	for _, bm := range matches {
		if color[bm.UID] == white {
			if err := visit(bm.UID); err != nil {
				return err
			}
		}
	}
	return nil
}
