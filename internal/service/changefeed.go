package service

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// Tables whose committed changes are broadcast to live subscribers.
const (
	TableMissions        = "missions"
	TableMissionAnalysis = "mission_analysis"
	TablePointsLog       = "points_log"
	TableUserStats       = "user_stats"
	TableUserLocations   = "user_locations"
)

const changeChannelPrefix = "table_changed:"

// ChangeFeed publishes and subscribes table-change notifications over Redis
// pub/sub. Delivery is at-least-once per committed change; ordering across
// tables is not guaranteed, which is fine because every notification
// triggers a full idempotent re-fetch.
type ChangeFeed struct {
	rdb *redis.Client
}

func NewChangeFeed(rdb *redis.Client) *ChangeFeed {
	return &ChangeFeed{rdb: rdb}
}

// Publish notifies subscribers that rows in the given tables changed.
// A nil Redis client degrades to no realtime updates instead of failing
// the write path.
func (f *ChangeFeed) Publish(ctx context.Context, tables ...string) {
	if f == nil || f.rdb == nil {
		return
	}
	for _, table := range tables {
		if err := f.rdb.Publish(ctx, changeChannelPrefix+table, table).Err(); err != nil {
			log.Printf("Failed to publish change for table %s: %v", table, err)
		}
	}
}

// Subscribe opens a pub/sub subscription for the given tables. The caller
// owns the returned PubSub and must Close it.
func (f *ChangeFeed) Subscribe(ctx context.Context, tables ...string) *redis.PubSub {
	if f == nil || f.rdb == nil {
		return nil
	}
	channels := make([]string, len(tables))
	for i, t := range tables {
		channels[i] = changeChannelPrefix + t
	}
	return f.rdb.Subscribe(ctx, channels...)
}
