package service

import (
	"context"
	"log"

	"github.com/ecohuntapp/ecohunt-server/internal/repository"
	"github.com/robfig/cron/v3"
)

// StatsScheduler resets the cached weekly/monthly point counters. The
// resets only touch the denormalized user_stats table; the points ledger
// itself is never modified, so leaderboard periods stay correct regardless.
type StatsScheduler struct {
	cron     *cron.Cron
	userRepo repository.UserRepository
	feed     *ChangeFeed
}

func NewStatsScheduler(userRepo repository.UserRepository, feed *ChangeFeed) *StatsScheduler {
	return &StatsScheduler{
		cron:     cron.New(),
		userRepo: userRepo,
		feed:     feed,
	}
}

func (s *StatsScheduler) Start() {
	// Monday 00:00 server time.
	_, err := s.cron.AddFunc("0 0 * * 1", func() {
		log.Println("🧹 Resetting weekly point counters...")
		if err := s.userRepo.ResetWeeklyPoints(context.Background()); err != nil {
			log.Printf("❌ Weekly reset failed: %v", err)
			return
		}
		s.feed.Publish(context.Background(), TableUserStats)
		log.Println("✅ Weekly point counters reset")
	})
	if err != nil {
		log.Printf("⚠️ Failed to schedule weekly reset: %v", err)
	}

	// First day of the month, 00:00.
	_, err = s.cron.AddFunc("0 0 1 * *", func() {
		log.Println("🧹 Resetting monthly point counters...")
		if err := s.userRepo.ResetMonthlyPoints(context.Background()); err != nil {
			log.Printf("❌ Monthly reset failed: %v", err)
			return
		}
		s.feed.Publish(context.Background(), TableUserStats)
		log.Println("✅ Monthly point counters reset")
	})
	if err != nil {
		log.Printf("⚠️ Failed to schedule monthly reset: %v", err)
	}

	s.cron.Start()
	log.Println("🚀 Stats scheduler started")
}

func (s *StatsScheduler) Stop() {
	s.cron.Stop()
	log.Println("🛑 Stats scheduler stopped")
}
