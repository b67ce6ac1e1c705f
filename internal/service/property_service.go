package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	redispkg "github.com/rubyhat/cloudsquares-api/pkg/redis"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
)

// PhotoJob 照片下载任务（Redis Streams 消息负载）
type PhotoJob struct {
	AgencyID   string `json:"agency_id"`
	PropertyID string `json:"property_id"`
	FileURL    string `json:"file_url"`
}

// PropertyService 房产服务接口（最小面：业主/申请/照片挂在房产上）
type PropertyService interface {
	// CreateProperty 创建房产
	CreateProperty(ctx context.Context, req CreatePropertyRequest) (*domain.Property, error)

	// GetProperty 获取房产
	GetProperty(ctx context.Context, tenantID, propertyID string) (*domain.Property, error)

	// DeleteProperty 软删除房产
	DeleteProperty(ctx context.Context, tenantID, propertyID string) error

	// EnqueuePhotos 把照片下载任务投递到 Redis Streams，由 worker 异步处理
	EnqueuePhotos(ctx context.Context, req EnqueuePhotosRequest) (int, error)
}

type propertyService struct {
	propertiesRepo repository.PropertiesRepository
	limits         *LimitChecker
	redisClient    *redispkg.Client
	photoStream    string
	logger         *zap.Logger
}

// NewPropertyService 创建 PropertyService 实例
func NewPropertyService(propertiesRepo repository.PropertiesRepository, limits *LimitChecker, redisClient *redispkg.Client, photoStream string, logger *zap.Logger) PropertyService {
	return &propertyService{
		propertiesRepo: propertiesRepo,
		limits:         limits,
		redisClient:    redisClient,
		photoStream:    photoStream,
		logger:         logger,
	}
}

// CreatePropertyRequest 创建房产请求
type CreatePropertyRequest struct {
	AgencyID string
	Title    string
	Price    int64
	Status   string // 缺省 active
}

// EnqueuePhotosRequest 照片任务投递请求
type EnqueuePhotosRequest struct {
	AgencyID   string
	PropertyID string
	FileURLs   []string
}

// CreateProperty 创建房产
func (s *propertyService) CreateProperty(ctx context.Context, req CreatePropertyRequest) (*domain.Property, error) {
	if req.AgencyID == "" {
		return nil, domain.InvalidArgumentf("agency_id is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		v := domain.NewValidationError()
		v.Add("title", "cannot be blank")
		return nil, v
	}
	if req.Price < 0 {
		v := domain.NewValidationError()
		v.Add("price", "cannot be negative")
		return nil, v
	}

	if err := s.limits.EnsurePropertyQuota(ctx, req.AgencyID); err != nil {
		return nil, err
	}

	propertyID, err := s.propertiesRepo.CreateProperty(ctx, req.AgencyID, &domain.Property{
		Title:  strings.TrimSpace(req.Title),
		Price:  req.Price,
		Status: req.Status,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Property created",
		zap.String("agency_id", req.AgencyID),
		zap.String("property_id", propertyID),
	)
	return s.propertiesRepo.GetProperty(ctx, req.AgencyID, propertyID)
}

// GetProperty 获取房产
func (s *propertyService) GetProperty(ctx context.Context, tenantID, propertyID string) (*domain.Property, error) {
	if tenantID == "" {
		return nil, domain.InvalidArgumentf("agency_id is required")
	}
	return s.propertiesRepo.GetProperty(ctx, tenantID, propertyID)
}

// DeleteProperty 软删除房产
func (s *propertyService) DeleteProperty(ctx context.Context, tenantID, propertyID string) error {
	if tenantID == "" || propertyID == "" {
		return domain.InvalidArgumentf("agency_id and property_id are required")
	}
	return s.propertiesRepo.SoftDeleteProperty(ctx, tenantID, propertyID)
}

// EnqueuePhotos 投递照片下载任务；返回已投递数量
func (s *propertyService) EnqueuePhotos(ctx context.Context, req EnqueuePhotosRequest) (int, error) {
	if req.AgencyID == "" || req.PropertyID == "" {
		return 0, domain.InvalidArgumentf("agency_id and property_id are required")
	}
	if len(req.FileURLs) == 0 {
		return 0, domain.InvalidArgumentf("file_urls are required")
	}

	// 房产必须属于本租户
	if _, err := s.propertiesRepo.GetProperty(ctx, req.AgencyID, req.PropertyID); err != nil {
		return 0, err
	}
	if err := s.limits.EnsurePhotoQuota(ctx, req.AgencyID, req.PropertyID); err != nil {
		return 0, err
	}

	enqueued := 0
	for _, url := range req.FileURLs {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		job := PhotoJob{
			AgencyID:   req.AgencyID,
			PropertyID: req.PropertyID,
			FileURL:    url,
		}
		msgID, err := redispkg.PublishJSONToStream(ctx, s.redisClient, s.photoStream, job)
		if err != nil {
			return enqueued, err
		}
		enqueued++
		s.logger.Debug("Photo job enqueued",
			zap.String("property_id", req.PropertyID),
			zap.String("message_id", msgID),
		)
	}

	s.logger.Info("Photo jobs enqueued",
		zap.String("agency_id", req.AgencyID),
		zap.String("property_id", req.PropertyID),
		zap.Int("count", enqueued),
	)
	return enqueued, nil
}
