package app

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StartChannelSweeper schedules the channel-TTL policy: every minute,
// channels pending longer than ttl are failed out with a terminal event
// carrying no transaction hash. A non-positive ttl disables the policy
// and no job is scheduled; whether clients should ever give up on a
// silent channel is a deployment decision, not a hardcoded default.
func StartChannelSweeper(orchestrator *RelayOrchestrator, ttl time.Duration) *cron.Cron {
	if ttl <= 0 {
		log.Println("level=info component=sweeper msg=\"channel ttl disabled; silent channels stay pending\"")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc("@every 1m", func() {
		if n := orchestrator.FailExpiredChannels(ttl); n > 0 {
			log.Printf("level=info component=sweeper msg=\"expired channels failed out\" count=%d ttl=%s", n, ttl)
		}
	})
	if err != nil {
		log.Printf("level=error component=sweeper msg=\"schedule failed\" err=%v", err)
		return nil
	}
	c.Start()
	log.Printf("level=info component=sweeper msg=\"channel sweeper started\" ttl=%s", ttl)
	return c
}
