package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/repositories"
)

func TestRankStandings(t *testing.T) {
	standings := []*models.SwissStanding{
		{TeamID: 1, Seed: 1, Wins: 2, Losses: 1, Buchholz: 1.5, MapWins: 5, MapLosses: 3},
		{TeamID: 2, Seed: 2, Wins: 3, Losses: 0, Buchholz: 1.2, MapWins: 6, MapLosses: 1},
		{TeamID: 3, Seed: 3, Wins: 2, Losses: 1, Buchholz: 1.5, MapWins: 6, MapLosses: 3},
		{TeamID: 4, Seed: 4, Wins: 2, Losses: 1, Buchholz: 1.8, MapWins: 4, MapLosses: 3},
		{TeamID: 5, Seed: 5, Wins: 0, Losses: 3, Buchholz: 2.1, MapWins: 1, MapLosses: 6},
	}

	rankStandings(standings)

	order := make([]int, len(standings))
	for i, st := range standings {
		order[i] = st.TeamID
	}

	// Wins first, then Buchholz, then map diff, then original seed.
	assert.Equal(t, []int{2, 4, 3, 1, 5}, order)

	for i, st := range standings {
		require.NotNil(t, st.Rank)
		assert.Equal(t, i+1, *st.Rank)
	}
}

func TestRankStandingsSeedBreaksFullTies(t *testing.T) {
	standings := []*models.SwissStanding{
		{TeamID: 20, Seed: 2, Wins: 1, Buchholz: 1.0, MapWins: 2, MapLosses: 1},
		{TeamID: 10, Seed: 1, Wins: 1, Buchholz: 1.0, MapWins: 2, MapLosses: 1},
	}

	rankStandings(standings)

	assert.Equal(t, 10, standings[0].TeamID)
	assert.Equal(t, 20, standings[1].TeamID)
}

// In-memory repositories for driving the swiss round lifecycle without a
// database.

type memBracketRepo struct {
	nextID int
	nodes  []*models.BracketMatch
}

func (r *memBracketRepo) CreateStage(_ context.Context, _ repositories.SQLExecutor, stage *models.BracketStage) error {
	return nil
}

func (r *memBracketRepo) GetStage(_ context.Context, _ repositories.SQLExecutor, _ int) (*models.BracketStage, error) {
	return nil, repositories.ErrStageNotFound
}

func (r *memBracketRepo) BatchCreateMatches(_ context.Context, _ repositories.SQLExecutor, stageID int, matches []*models.BracketMatch) error {
	for _, bm := range matches {
		r.nextID++
		bm.ID = r.nextID
		bm.StageID = stageID
		r.nodes = append(r.nodes, bm)
	}
	return nil
}

func (r *memBracketRepo) GetByUID(_ context.Context, _ repositories.SQLExecutor, stageID int, uid string) (*models.BracketMatch, error) {
	for _, n := range r.nodes {
		if n.StageID == stageID && n.UID == uid {
			return n, nil
		}
	}
	return nil, repositories.ErrBracketMatchNotFound
}

func (r *memBracketRepo) GetByMatchID(_ context.Context, _ repositories.SQLExecutor, matchID int) (*models.BracketMatch, error) {
	for _, n := range r.nodes {
		if n.MatchID != nil && *n.MatchID == matchID {
			return n, nil
		}
	}
	return nil, repositories.ErrBracketMatchNotFound
}

func (r *memBracketRepo) ListByStage(_ context.Context, _ repositories.SQLExecutor, stageID int) ([]*models.BracketMatch, error) {
	out := make([]*models.BracketMatch, 0, len(r.nodes))
	for _, n := range r.nodes {
		if n.StageID == stageID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memBracketRepo) UpdateSlots(_ context.Context, _ repositories.SQLExecutor, bm *models.BracketMatch) error {
	for _, n := range r.nodes {
		if n.ID == bm.ID {
			n.Team1ID, n.Team2ID, n.State = bm.Team1ID, bm.Team2ID, bm.State
			return nil
		}
	}
	return repositories.ErrBracketMatchNotFound
}

func (r *memBracketRepo) LinkMatch(_ context.Context, _ repositories.SQLExecutor, bracketMatchID, matchID int) error {
	for _, n := range r.nodes {
		if n.ID == bracketMatchID {
			id := matchID
			n.MatchID = &id
			return nil
		}
	}
	return repositories.ErrBracketMatchNotFound
}

type memMatchRepo struct {
	nextID  int
	matches []*models.Match
}

func (r *memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.nextID++
	match.ID = r.nextID
	r.matches = append(r.matches, match)
	return nil
}

func (r *memMatchRepo) get(id int) (*models.Match, error) {
	for _, m := range r.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.get(id)
}

func (r *memMatchRepo) GetByIDForUpdate(_ context.Context, _ *sql.Tx, id int) (*models.Match, error) {
	return r.get(id)
}

func (r *memMatchRepo) SetStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus) error {
	m, err := r.get(id)
	if err != nil {
		return err
	}
	m.Status = status
	return nil
}

func (r *memMatchRepo) CompleteResult(_ context.Context, _ repositories.SQLExecutor, id int, score models.MapScore, winnerID int, completedAt time.Time) error {
	m, err := r.get(id)
	if err != nil {
		return err
	}
	m.Status = models.MatchStatusCompleted
	m.Team1Score, m.Team2Score = score.Team1, score.Team2
	m.WinnerID = &winnerID
	m.CompletedAt = &completedAt
	return nil
}

func (r *memMatchRepo) ListByStage(_ context.Context, _ repositories.SQLExecutor, stageID int, _ *int, status *models.MatchStatus) ([]*models.Match, error) {
	out := make([]*models.Match, 0, len(r.matches))
	for _, m := range r.matches {
		if m.StageID == nil || *m.StageID != stageID {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memMatchRepo) ListCompletedOrdered(_ context.Context, _ repositories.SQLExecutor) ([]*models.Match, error) {
	out := make([]*models.Match, 0, len(r.matches))
	for _, m := range r.matches {
		if m.Status == models.MatchStatusCompleted {
			out = append(out, m)
		}
	}
	return out, nil
}

type memSwissRepo struct {
	nextID    int
	standings []*models.SwissStanding
}

func (r *memSwissRepo) BatchCreate(_ context.Context, _ repositories.SQLExecutor, standings []*models.SwissStanding) error {
	for _, s := range standings {
		r.nextID++
		s.ID = r.nextID
		r.standings = append(r.standings, s)
	}
	return nil
}

func (r *memSwissRepo) ListByStage(_ context.Context, _ repositories.SQLExecutor, stageID int) ([]*models.SwissStanding, error) {
	out := make([]*models.SwissStanding, 0, len(r.standings))
	for _, s := range r.standings {
		if s.StageID == stageID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSwissRepo) GetByStageAndTeam(_ context.Context, _ repositories.SQLExecutor, stageID, teamID int) (*models.SwissStanding, error) {
	for _, s := range r.standings {
		if s.StageID == stageID && s.TeamID == teamID {
			return s, nil
		}
	}
	return nil, repositories.ErrSwissStandingNotFound
}

func (r *memSwissRepo) Update(_ context.Context, _ repositories.SQLExecutor, standing *models.SwissStanding) error {
	for i, s := range r.standings {
		if s.ID == standing.ID {
			r.standings[i] = standing
			return nil
		}
	}
	return repositories.ErrSwissStandingNotFound
}

func TestSwissRoundCompletionPairsNextRound(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bracketRepo := &memBracketRepo{}
	matchRepo := &memMatchRepo{}
	swissRepo := &memSwissRepo{}
	svc := NewSwissService(bracketRepo, matchRepo, swissRepo, logger)

	stageID := 1
	stage := &models.BracketStage{
		ID:      stageID,
		EventID: 10,
		Type:    models.StageSwiss,
		Config:  models.StageConfig{Format: models.BestOf3, TotalRounds: 3},
	}

	standings := make([]*models.SwissStanding, 0, 4)
	for seed := 1; seed <= 4; seed++ {
		standings = append(standings, &models.SwissStanding{StageID: stageID, TeamID: seed, Seed: seed})
	}
	require.NoError(t, swissRepo.BatchCreate(ctx, nil, standings))

	// Round 1 opener: 1v3, 2v4.
	matchIDs := make([]int, 0, 2)
	for i, pair := range [][2]int{{1, 3}, {2, 4}} {
		t1, t2 := pair[0], pair[1]
		m := &models.Match{
			EventID: &stage.EventID,
			StageID: &stageID,
			Team1ID: t1,
			Team2ID: t2,
			Format:  models.BestOf3,
			Status:  models.MatchStatusLive,
		}
		require.NoError(t, matchRepo.Create(ctx, nil, m))
		node := &models.BracketMatch{
			UID:         fmt.Sprintf("SW_R1M%d", i+1),
			Section:     models.SectionUpper,
			Round:       1,
			MatchNumber: i + 1,
			Team1ID:     &t1,
			Team2ID:     &t2,
			State:       models.SlotReady,
		}
		require.NoError(t, bracketRepo.BatchCreateMatches(ctx, nil, stageID, []*models.BracketMatch{node}))
		require.NoError(t, bracketRepo.LinkMatch(ctx, nil, node.ID, m.ID))
		matchIDs = append(matchIDs, m.ID)
	}

	complete := func(matchID, winnerID, loserID int, score models.MapScore) {
		t.Helper()
		now := time.Now().UTC()
		require.NoError(t, matchRepo.CompleteResult(ctx, nil, matchID, score, winnerID, now))
		require.NoError(t, svc.OnMatchCompleted(ctx, nil, stage, models.MatchSummary{
			MatchID:     matchID,
			WinnerID:    winnerID,
			LoserID:     loserID,
			Score:       score,
			StageID:     &stageID,
			CompletedAt: now,
		}))
	}

	complete(matchIDs[0], 1, 3, models.MapScore{Team1: 2, Team2: 0})

	// The completed series' node is closed, but half the round remains: no
	// new round may be paired yet.
	node, err := bracketRepo.GetByMatchID(ctx, nil, matchIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.SlotDone, node.State)
	nodes, err := bracketRepo.ListByStage(ctx, nil, stageID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	complete(matchIDs[1], 2, 4, models.MapScore{Team1: 2, Team2: 1})

	// Closing the round pairs round 2: winners meet, losers meet, and every
	// new node carries a linked series.
	nodes, err = bracketRepo.ListByStage(ctx, nil, stageID)
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	pairedTeams := map[string]bool{}
	for _, n := range nodes {
		if n.Round != 2 {
			continue
		}
		require.NotNil(t, n.Team1ID)
		require.NotNil(t, n.Team2ID)
		require.NotNil(t, n.MatchID, "round 2 node %s has no series", n.UID)
		assert.Equal(t, models.SlotReady, n.State)
		pairedTeams[fmt.Sprintf("%dv%d", *n.Team1ID, *n.Team2ID)] = true
	}
	assert.Equal(t, map[string]bool{"1v2": true, "3v4": true}, pairedTeams)

	// Standings reflect the recompute.
	st, err := swissRepo.GetByStageAndTeam(ctx, nil, stageID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Wins)
	assert.Equal(t, []int{3}, st.OpponentIDs)
}
