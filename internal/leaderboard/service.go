package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"streak-bot/internal/leetcode"
	"streak-bot/internal/logger"
	"streak-bot/internal/streak"
)

// What we need from the registry and the activity source.
type Lister interface {
	List(ctx context.Context, chatID int64) ([]string, error)
}

type StatsFetcher interface {
	FetchStats(ctx context.Context, username string, year int) (*leetcode.UserCalendar, error)
}

// Recorder receives build outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	LeaderboardBuilt(status string, d time.Duration)
}

type Options struct {
	Location    *time.Location // day boundaries; defaults to UTC
	Concurrency int            // parallel fetches per build; defaults to 4
	Recorder    Recorder
	Now         func() time.Time
}

type Service struct {
	registry    Lister
	source      StatsFetcher
	loc         *time.Location
	concurrency int
	rec         Recorder
	now         func() time.Time
}

func NewService(registry Lister, source StatsFetcher, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		registry:    registry,
		source:      source,
		loc:         opts.Location,
		concurrency: opts.Concurrency,
		rec:         opts.Recorder,
		now:         opts.Now,
	}
}

// Build ranks every registered user of the chat by current streak.
//
// Each user is fetched independently; a user whose data cannot be fetched or
// parsed is logged and left out. Only a registry failure fails the build.
// Ties keep registry order.
func (s *Service) Build(ctx context.Context, chatID int64) (*Board, error) {
	start := time.Now()
	board, err := s.build(ctx, chatID)
	if err == nil && s.rec != nil {
		s.rec.LeaderboardBuilt(string(board.Status), time.Since(start))
	}
	return board, err
}

func (s *Service) build(ctx context.Context, chatID int64) (*Board, error) {
	usernames, err := s.registry.List(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("build leaderboard: %w", err)
	}

	board := &Board{
		ChatID:      chatID,
		Entries:     []Entry{},
		GeneratedAt: s.now().In(s.loc),
	}
	if len(usernames) == 0 {
		board.Status = StatusNoUsers
		return board, nil
	}

	results := make([]*Entry, len(usernames))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, name := range usernames {
		g.Go(func() error {
			entry, err := s.Lookup(ctx, name)
			if err != nil {
				logger.Warning("[leaderboard] chat %d: skipping %s (%s): %v", chatID, name, leetcode.Outcome(err), err)
				return nil
			}
			results[i] = entry
			return nil
		})
	}
	g.Wait()

	for i, entry := range results {
		if entry == nil {
			board.Skipped = append(board.Skipped, usernames[i])
			continue
		}
		board.Entries = append(board.Entries, *entry)
	}
	if len(board.Entries) == 0 {
		board.Status = StatusNoData
		return board, nil
	}

	Rank(board.Entries)
	board.Status = StatusOK
	return board, nil
}

// Lookup fetches one user and computes their current streak. When the
// streak reaches back past January 1st the previous year is fetched too; if
// that fetch fails the streak is reported as far as the current year goes.
func (s *Service) Lookup(ctx context.Context, username string) (*Entry, error) {
	now := s.now().In(s.loc)

	cal, err := s.source.FetchStats(ctx, username, now.Year())
	if err != nil {
		return nil, err
	}

	walk := streak.Scan(cal.SubmissionCalendar, now)
	if walk.CrossesYear(now) {
		prev, err := s.source.FetchStats(ctx, username, now.Year()-1)
		if err != nil {
			logger.Warning("[leaderboard] %s: previous year unavailable, streak may be short: %v", username, err)
		} else {
			walk = streak.Scan(cal.SubmissionCalendar.Merge(prev.SubmissionCalendar), now)
		}
	}

	return &Entry{
		Username:        username,
		CurrentStreak:   walk.Count,
		MaxStreak:       cal.BestStreak,
		TotalActiveDays: cal.TotalActiveDays,
	}, nil
}

// Rank sorts entries by current streak, highest first, keeping the input
// order for ties, and numbers them from 1.
func Rank(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CurrentStreak > entries[j].CurrentStreak
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
