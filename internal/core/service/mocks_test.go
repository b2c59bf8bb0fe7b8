package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mercata/orderflow/internal/core/domain"
	"github.com/mercata/orderflow/internal/port"
)

// Mock CatalogRepository
type mockCatalog struct {
	mu            sync.Mutex
	products      map[string]*domain.Product
	decrementErrs map[string]error
	restoreErrs   map[string]error
	restored      map[string]int
	lookups       int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products:      make(map[string]*domain.Product),
		decrementErrs: make(map[string]error),
		restoreErrs:   make(map[string]error),
		restored:      make(map[string]int),
	}
}

func (m *mockCatalog) addProduct(id string, price int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = &domain.Product{ID: id, Title: id, Price: price, Stock: stock}
}

func (m *mockCatalog) stockOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return p.Stock
	}
	return 0
}

func (m *mockCatalog) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalog) DecrementStock(ctx context.Context, productID string, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.decrementErrs[productID]; ok {
		return 0, err
	}

	p, ok := m.products[productID]
	if !ok || p.Stock < quantity {
		return 0, fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, productID)
	}
	p.Stock -= quantity
	return p.Stock, nil
}

func (m *mockCatalog) RestoreStock(ctx context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.restoreErrs[productID]; ok {
		return err
	}
	if p, ok := m.products[productID]; ok {
		p.Stock += quantity
	}
	m.restored[productID] += quantity
	return nil
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu             sync.Mutex
	orders         map[string]domain.Order
	items          map[string][]domain.OrderLineItem
	insertOrderErr error
	insertItemsErr error
	// rows persisted before insertItemsErr fires, mimicking a mid-batch
	// storage failure
	itemsBeforeErr int
	userCounts     map[string]int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders:     make(map[string]domain.Order),
		items:      make(map[string][]domain.OrderLineItem),
		userCounts: make(map[string]int),
	}
}

func (m *mockOrderRepo) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *mockOrderRepo) InsertOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertOrderErr != nil {
		return m.insertOrderErr
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) InsertLineItems(ctx context.Context, items []domain.OrderLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertItemsErr != nil {
		for i, item := range items {
			if i >= m.itemsBeforeErr {
				break
			}
			m.items[item.OrderID] = append(m.items[item.OrderID], item)
		}
		return m.insertItemsErr
	}
	for _, item := range items {
		m.items[item.OrderID] = append(m.items[item.OrderID], item)
	}
	return nil
}

func (m *mockOrderRepo) DeleteLineItems(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, orderID)
	return nil
}

func (m *mockOrderRepo) DeleteOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, orderID)
	return nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, []domain.OrderLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return &order, m.items[orderID], nil
}

func (m *mockOrderRepo) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	m.orders[orderID] = order
	return true, nil
}

func (m *mockOrderRepo) CountOrdersByUser(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if count, ok := m.userCounts[userID]; ok {
		return count, nil
	}
	count := 0
	for _, order := range m.orders {
		if order.UserID == userID && order.Status != domain.OrderStatusCancelled {
			count++
		}
	}
	return count, nil
}

// Mock PriceCache
type mockPriceCache struct {
	mu      sync.Mutex
	entries map[string]int64
	sets    int
	getErr  error
}

func newMockPriceCache() *mockPriceCache {
	return &mockPriceCache{entries: make(map[string]int64)}
}

func (m *mockPriceCache) GetPrice(ctx context.Context, productID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	price, ok := m.entries[productID]
	return price, ok, nil
}

func (m *mockPriceCache) SetPrice(ctx context.Context, productID string, price int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[productID] = price
	m.sets++
	return nil
}

// Mock PromotionEvaluator
type mockPromos struct {
	mu              sync.Mutex
	discountPercent int64
	promotionID     string
	evalErr         error
	usageErr        error
	lastCode        string
	usageCalled     chan string
}

func newMockPromos(discountPercent int64) *mockPromos {
	return &mockPromos{
		discountPercent: discountPercent,
		promotionID:     "promo-1",
		usageCalled:     make(chan string, 8),
	}
}

func (m *mockPromos) Evaluate(ctx context.Context, code string, amount int64) (port.PromotionResult, error) {
	m.mu.Lock()
	m.lastCode = code
	m.mu.Unlock()
	if m.evalErr != nil {
		return port.PromotionResult{}, m.evalErr
	}
	if m.discountPercent == 0 {
		return port.PromotionResult{}, nil
	}
	return port.PromotionResult{
		Valid:       true,
		Discount:    amount * m.discountPercent / 100,
		PromotionID: m.promotionID,
	}, nil
}

func (m *mockPromos) IncrementUsage(ctx context.Context, promotionID string) error {
	m.usageCalled <- promotionID
	return m.usageErr
}

// Mock RewardRepository
type loyaltyAward struct {
	userID string
	points int64
	reason string
}

type mockRewardRepo struct {
	mu                sync.Mutex
	awards            []loyaltyAward
	badges            []string
	referral          *domain.Referral
	referralCompleted bool
	loyaltyErr        error
}

func newMockRewardRepo() *mockRewardRepo {
	return &mockRewardRepo{}
}

func (m *mockRewardRepo) AwardLoyaltyPoints(ctx context.Context, userID, orderID string, points int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loyaltyErr != nil {
		return m.loyaltyErr
	}
	m.awards = append(m.awards, loyaltyAward{userID: userID, points: points, reason: reason})
	return nil
}

func (m *mockRewardRepo) PendingReferral(ctx context.Context, userID string) (*domain.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.referral != nil && m.referral.ReferredID == userID && !m.referralCompleted {
		ref := *m.referral
		return &ref, nil
	}
	return nil, nil
}

func (m *mockRewardRepo) CompleteReferral(ctx context.Context, referralID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referralCompleted = true
	return nil
}

func (m *mockRewardRepo) AwardBadge(ctx context.Context, userID, badge string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.badges = append(m.badges, badge)
	return nil
}

func (m *mockRewardRepo) awardCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.awards)
}

func (m *mockRewardRepo) hasBadge(badge string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.badges {
		if b == badge {
			return true
		}
	}
	return false
}
