package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/repository"
	"yankey-ledger/internal/store"
)

// MerchantService 商户目录服务接口（域名路由 + 商户 CRUD）
type MerchantService interface {
	// ResolveByDomain 根据请求 Host 解析商户（域名路由入口）
	// host 可以带端口（"shop.example.com:3000"），解析前归一化
	ResolveByDomain(ctx context.Context, host string) (*domain.Merchant, error)

	// ResolveByID 根据merchant_id解析商户
	ResolveByID(ctx context.Context, merchantID string) (*domain.Merchant, error)

	// Onboard 商户入驻：创建商户 + 在新分区创建第一个 owner 操作员
	Onboard(ctx context.Context, req OnboardMerchantRequest) (*OnboardMerchantResponse, error)

	// GetSettings 商户设置查询（office）
	GetSettings(ctx context.Context, merchantID string) (*MerchantSettings, error)

	// UpdateSettings 商户设置更新（office，部分字段）
	UpdateSettings(ctx context.Context, merchantID string, req UpdateMerchantSettingsRequest) (*MerchantSettings, error)
}

// merchantService 实现
type merchantService struct {
	merchants  repository.MerchantsRepository
	partitions repository.PartitionSource
	cache      store.KV // 可选，nil 表示不启用缓存
	logger     *zap.Logger
}

// NewMerchantService 创建 MerchantService 实例
// cache 为 nil 时跳过域名路由缓存（直接查库）
func NewMerchantService(
	merchants repository.MerchantsRepository,
	partitions repository.PartitionSource,
	cache store.KV,
	logger *zap.Logger,
) MerchantService {
	return &merchantService{
		merchants:  merchants,
		partitions: partitions,
		cache:      cache,
		logger:     logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// OnboardMerchantRequest 商户入驻请求
type OnboardMerchantRequest struct {
	Name              string  // 必填
	Domain            string  // 必填，全局唯一
	LoyaltyPercentage float64 // 0-100
	TelegramKey       string  // 可选

	// 第一个操作员（role=owner）
	AdminUsername    string // 必填
	AdminPassword    string // 必填，已经是哈希（哈希由上游认证层完成）
	AdminDisplayName string // 必填
}

// OnboardMerchantResponse 商户入驻响应
type OnboardMerchantResponse struct {
	Merchant *domain.Merchant
	Owner    *domain.Operator
}

// MerchantSettings 商户设置视图
type MerchantSettings struct {
	Name              string  `json:"name"`
	Domain            string  `json:"domain"`
	LoyaltyPercentage float64 `json:"loyaltyPercentage"`
}

// UpdateMerchantSettingsRequest 商户设置更新（nil 字段不更新）
type UpdateMerchantSettingsRequest struct {
	Name              *string
	LoyaltyPercentage *float64
	TelegramKey       *string
}

// ============================================
// 域名归一化
// ============================================

// NormalizeDomain 域名归一化：小写 + 去掉可选的 ":port" 后缀
// "Shop.Example.com:3000" 和 "shop.example.com" 解析到同一商户
func NormalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndex(host, ":"); i >= 0 {
		// 只剥离纯数字端口，避免误伤 IPv6 字面量以外的形态
		if port := host[i+1:]; port != "" && isDigits(port) {
			host = host[:i]
		}
	}
	return host
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ============================================
// 实现
// ============================================

const (
	domainCacheKeyPrefix = "yankey:merchant:domain:"
	domainCacheTTL       = 5 * time.Minute
)

func (s *merchantService) ResolveByDomain(ctx context.Context, host string) (*domain.Merchant, error) {
	domainName := NormalizeDomain(host)
	if domainName == "" {
		return nil, fmt.Errorf("%w: host is required", domain.ErrInvalidRequest)
	}

	// read-through 缓存：miss 或 redis 故障都落到数据库
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, domainCacheKeyPrefix+domainName); err == nil {
			var m domain.Merchant
			if err := json.Unmarshal([]byte(raw), &m); err == nil {
				return &m, nil
			}
		} else if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("merchant domain cache read failed", zap.Error(err))
		}
	}

	m, err := s.merchants.GetMerchantByDomain(ctx, domainName)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(m); err == nil {
			if err := s.cache.Set(ctx, domainCacheKeyPrefix+domainName, string(raw), domainCacheTTL); err != nil {
				s.logger.Warn("merchant domain cache write failed", zap.Error(err))
			}
		}
	}
	return m, nil
}

func (s *merchantService) ResolveByID(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	return s.merchants.GetMerchant(ctx, merchantID)
}

func (s *merchantService) Onboard(ctx context.Context, req OnboardMerchantRequest) (*OnboardMerchantResponse, error) {
	if req.Name == "" || req.Domain == "" {
		return nil, fmt.Errorf("%w: name and domain are required", domain.ErrInvalidRequest)
	}
	if req.AdminUsername == "" || req.AdminPassword == "" || req.AdminDisplayName == "" {
		return nil, fmt.Errorf("%w: admin username, password and display name are required", domain.ErrInvalidRequest)
	}
	if req.LoyaltyPercentage < 0 || req.LoyaltyPercentage > 100 {
		return nil, fmt.Errorf("%w: loyalty percentage must be within 0-100", domain.ErrInvalidRequest)
	}

	merchantID, err := s.merchants.CreateMerchant(ctx, &domain.Merchant{
		Name:              req.Name,
		Domain:            NormalizeDomain(req.Domain),
		LoyaltyPercentage: req.LoyaltyPercentage,
		TelegramKey:       req.TelegramKey,
	})
	if err != nil {
		return nil, err
	}

	m, err := s.merchants.GetMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	// 新商户分区在这里被首次打开（注册表懒建）
	part, err := s.partitions.Partition(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	owner, err := part.Operators.CreateOperator(ctx, &domain.Operator{
		Username:    req.AdminUsername,
		Password:    req.AdminPassword,
		DisplayName: req.AdminDisplayName,
		Role:        domain.RoleOwner,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("merchant onboarded",
		zap.String("merchant_id", merchantID),
		zap.String("domain", m.Domain),
	)
	return &OnboardMerchantResponse{Merchant: m, Owner: owner}, nil
}

func (s *merchantService) GetSettings(ctx context.Context, merchantID string) (*MerchantSettings, error) {
	m, err := s.merchants.GetMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	return &MerchantSettings{
		Name:              m.Name,
		Domain:            m.Domain,
		LoyaltyPercentage: m.LoyaltyPercentage,
	}, nil
}

func (s *merchantService) UpdateSettings(ctx context.Context, merchantID string, req UpdateMerchantSettingsRequest) (*MerchantSettings, error) {
	if req.LoyaltyPercentage != nil && (*req.LoyaltyPercentage < 0 || *req.LoyaltyPercentage > 100) {
		return nil, fmt.Errorf("%w: loyalty percentage must be within 0-100", domain.ErrInvalidRequest)
	}

	m, err := s.merchants.UpdateMerchant(ctx, merchantID, domain.MerchantUpdate{
		Name:              req.Name,
		LoyaltyPercentage: req.LoyaltyPercentage,
		TelegramKey:       req.TelegramKey,
	})
	if err != nil {
		return nil, err
	}

	// 设置可能影响域名路由缓存里的快照，直接失效
	if s.cache != nil {
		if err := s.cache.Del(ctx, domainCacheKeyPrefix+m.Domain); err != nil {
			s.logger.Warn("merchant domain cache invalidation failed",
				zap.String("domain", m.Domain),
				zap.Error(err),
			)
		}
	}

	return &MerchantSettings{
		Name:              m.Name,
		Domain:            m.Domain,
		LoyaltyPercentage: m.LoyaltyPercentage,
	}, nil
}
