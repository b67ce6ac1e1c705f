package repository

import (
	"context"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PropertiesRepository 房产Repository接口（最小面：业主/购房申请/照片依赖它）
type PropertiesRepository interface {
	// GetProperty 租户内按property_id获取（不含软删除）
	GetProperty(ctx context.Context, tenantID, propertyID string) (*domain.Property, error)

	// CreateProperty 创建房产，返回property_id
	CreateProperty(ctx context.Context, tenantID string, property *domain.Property) (string, error)

	// CountActiveProperties 租户内未删除房产数量（套餐限额检查用）
	CountActiveProperties(ctx context.Context, tenantID string) (int, error)

	// SoftDeleteProperty 软删除房产
	SoftDeleteProperty(ctx context.Context, tenantID, propertyID string) error

	// InsertPhoto 写入一张照片（照片worker下载成功后调用），返回photo_id
	InsertPhoto(ctx context.Context, tenantID string, photo *domain.PropertyPhoto) (string, error)

	// CountPhotos 某房产已有照片数量（套餐限额检查用）
	CountPhotos(ctx context.Context, tenantID, propertyID string) (int, error)
}
