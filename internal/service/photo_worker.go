package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	redispkg "github.com/rubyhat/cloudsquares-api/pkg/redis"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
)

// PhotoWorker 照片接入 worker：消费 Redis Streams 里的下载任务，
// 拉取图片后把元数据落库。下载失败的消息不 ACK，留给 pending 列表重投。
type PhotoWorker struct {
	redisClient    *redispkg.Client
	propertiesRepo repository.PropertiesRepository
	limits         *LimitChecker
	httpClient     *resty.Client
	stream         string
	group          string
	consumer       string
	logger         *zap.Logger
}

// NewPhotoWorker 创建 PhotoWorker
func NewPhotoWorker(redisClient *redispkg.Client, propertiesRepo repository.PropertiesRepository, limits *LimitChecker, stream, group, consumer string, downloadTimeout time.Duration, logger *zap.Logger) *PhotoWorker {
	httpClient := resty.New().
		SetTimeout(downloadTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &PhotoWorker{
		redisClient:    redisClient,
		propertiesRepo: propertiesRepo,
		limits:         limits,
		httpClient:     httpClient,
		stream:         stream,
		group:          group,
		consumer:       consumer,
		logger:         logger,
	}
}

// Run 消费循环；ctx 取消后返回
func (w *PhotoWorker) Run(ctx context.Context) error {
	if err := redispkg.CreateConsumerGroup(ctx, w.redisClient, w.stream, w.group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("Photo worker started",
		zap.String("stream", w.stream),
		zap.String("group", w.group),
		zap.String("consumer", w.consumer),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Photo worker stopping")
			return nil
		default:
		}

		messages, err := redispkg.ReadFromStream(ctx, w.redisClient, w.stream, w.group, w.consumer, 10)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("Failed to read photo jobs", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			if err := w.handle(ctx, msg); err != nil {
				w.logger.Error("Failed to process photo job",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
				// 任务本身不合法时丢弃，临时失败留给重投
				if !isRetryable(err) {
					_ = redispkg.AckMessage(ctx, w.redisClient, w.stream, w.group, msg.ID)
				}
				continue
			}
			if err := redispkg.AckMessage(ctx, w.redisClient, w.stream, w.group, msg.ID); err != nil {
				w.logger.Warn("Failed to ack photo job",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// handle 处理单条任务：解码 → 限额 → 下载 → 落库
func (w *PhotoWorker) handle(ctx context.Context, msg redispkg.StreamMessage) error {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return domain.InvalidArgumentf("message has no data payload")
	}

	var job PhotoJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return domain.InvalidArgumentf("malformed photo job: %v", err)
	}
	if job.AgencyID == "" || job.PropertyID == "" || job.FileURL == "" {
		return domain.InvalidArgumentf("photo job is missing required fields")
	}

	if err := w.limits.EnsurePhotoQuota(ctx, job.AgencyID, job.PropertyID); err != nil {
		return err
	}

	resp, err := w.httpClient.R().SetContext(ctx).Get(job.FileURL)
	if err != nil {
		return fmt.Errorf("failed to download photo: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("photo download returned status %d: %w", resp.StatusCode(), domain.ErrInvalidArgument)
	}

	body := resp.Body()
	photoID, err := w.propertiesRepo.InsertPhoto(ctx, job.AgencyID, &domain.PropertyPhoto{
		PropertyID:  job.PropertyID,
		AgencyID:    job.AgencyID,
		FileURL:     job.FileURL,
		ContentType: resp.Header().Get("Content-Type"),
		SizeBytes:   int64(len(body)),
	})
	if err != nil {
		return err
	}

	w.logger.Info("Property photo ingested",
		zap.String("agency_id", job.AgencyID),
		zap.String("property_id", job.PropertyID),
		zap.String("photo_id", photoID),
		zap.Int("size_bytes", len(body)),
	)
	return nil
}

// isRetryable 临时失败（网络/数据库）可以重投；参数类错误直接丢弃
func isRetryable(err error) bool {
	return !errors.Is(err, domain.ErrInvalidArgument) &&
		!errors.Is(err, domain.ErrLimitExceeded) &&
		!errors.Is(err, domain.ErrNotFound)
}
