package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/infra"
	"github.com/reinaldoagf/servimarket-back/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports readiness for the checkout path: postgres (sales, stock),
// redis (job queues, summary cache) and the state of the async machinery —
// per-queue backlog, dead-letter depth and the receipt mailer's circuit.
// Queue/DLQ numbers are informational; only a dead store fails the check.
func Health(db *gorm.DB, rdb *redis.Client, mailCB *infra.CircuitBreaker) gin.HandlerFunc {
	queues := []string{worker.QueuePurchaseEvent, worker.QueueEmail}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		backlog := gin.H{}
		deadLetters := gin.H{}
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			for _, q := range queues {
				depth, _ := rdb.LLen(ctx, q).Result()
				backlog[q] = depth
				dead, _ := worker.DLQLength(ctx, rdb, q)
				deadLetters[q] = dead
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":             status == http.StatusOK,
			"db":             dbStatus,
			"redis":          redisStatus,
			"queues":         backlog,
			"dead_letters":   deadLetters,
			"mailer_circuit": mailCB.State().String(),
		})
	}
}
