package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	mongorepo "github.com/veridict/voicelab/internal/repositories/mongo"
	"github.com/veridict/voicelab/internal/services"
	"github.com/veridict/voicelab/internal/utils"
)

// AnalysisWorkerPool consumes queued analysis jobs from the Redis stream,
// executes them through the analysis service, persists the result and
// publishes lifecycle events on the job's status channel.
type AnalysisWorkerPool struct {
	Redis      *redis.Client
	Results    mongorepo.ResultRepository
	Analysis   services.AnalysisService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	// JobTimeout bounds one job's execution; long recordings must not pin
	// a consumer forever.
	JobTimeout time.Duration
}

func (p *AnalysisWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Results == nil || p.Analysis == nil {
		return errors.New("AnalysisWorkerPool missing dependency: Redis/Results/Analysis must be set")
	}
	if p.Stream == "" {
		p.Stream = services.JobStream
	}
	if p.Group == "" {
		p.Group = "analysis-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "w"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.JobTimeout <= 0 {
		p.JobTimeout = 5 * time.Minute
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *AnalysisWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    5,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *AnalysisWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	jobID := getStr("job_id")
	operation := getStr("operation")
	if jobID == "" || operation == "" {
		return
	}

	var params map[string]string
	if raw := getStr("params"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			params = map[string]string{"audio_id": getStr("audio_id")}
		}
	} else {
		params = map[string]string{"audio_id": getStr("audio_id")}
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":  msg.ID,
		"job_id":    jobID,
		"operation": operation,
		"audio_id":  params["audio_id"],
	})

	statusCh := services.JobStatusChannel(jobID)

	_ = p.Results.SetRunning(ctx, jobID)
	p.publishStatus(ctx, statusCh, jobID, "running", "")

	jobCtx, cancel := context.WithTimeout(ctx, p.JobTimeout)
	result, err := p.Analysis.Run(jobCtx, operation, params)
	cancel()

	if err != nil {
		log.WithError(err).Error("analysis job failed")
		reason := err.Error()
		if utils.IsCode(err, utils.CodeTimeout) {
			reason = "job exceeded the execution time limit"
		}
		_ = p.Results.Fail(ctx, jobID, reason)
		p.publishStatus(ctx, statusCh, jobID, "failed", reason)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.WithError(err).Error("failed to encode job result")
		_ = p.Results.Fail(ctx, jobID, "failed to encode result")
		p.publishStatus(ctx, statusCh, jobID, "failed", "failed to encode result")
		return
	}

	if err := p.Results.Complete(ctx, jobID, payload); err != nil {
		log.WithError(err).Error("failed to persist job result")
		p.publishStatus(ctx, statusCh, jobID, "failed", "failed to persist result")
		return
	}

	log.Info("analysis job done")
	p.publishStatus(ctx, statusCh, jobID, "done", "")
}

func (p *AnalysisWorkerPool) publishStatus(ctx context.Context, channel, jobID, status, message string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"type":    "status",
		"job_id":  jobID,
		"status":  status,
		"message": message,
	})
	_ = p.Redis.Publish(ctx, channel, string(payload)).Err()
}
