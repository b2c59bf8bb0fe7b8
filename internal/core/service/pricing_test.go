package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mercata/orderflow/internal/core/domain"
)

func newTestCalculator(catalog *mockCatalog, cache *mockPriceCache, promos *mockPromos) *TotalCalculator {
	return NewTotalCalculator(catalog, cache, promos, nil)
}

func TestComputeTotals_ShippingFeeBelowThreshold(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct("p1", 1000, 100)
	calc := newTestCalculator(catalog, newMockPriceCache(), newMockPromos(0))

	items := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 2}}
	resolved, totals, err := calc.ComputeTotals(context.Background(), items, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resolved) != 1 || resolved[0].UnitPrice != 1000 {
		t.Errorf("unexpected resolved items: %+v", resolved)
	}
	if totals.Subtotal != 2000 {
		t.Errorf("expected subtotal 2000, got %d", totals.Subtotal)
	}
	if totals.Shipping != ShippingFee {
		t.Errorf("expected shipping %d, got %d", ShippingFee, totals.Shipping)
	}
	if totals.Total != 2500 {
		t.Errorf("expected total 2500, got %d", totals.Total)
	}
}

func TestComputeTotals_FreeShippingAtThreshold(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct("p1", 1000, 100)
	calc := newTestCalculator(catalog, newMockPriceCache(), newMockPromos(0))

	items := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 5}}
	_, totals, err := calc.ComputeTotals(context.Background(), items, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if totals.Shipping != 0 {
		t.Errorf("expected free shipping, got %d", totals.Shipping)
	}
	if totals.Total != 5000 {
		t.Errorf("expected total 5000, got %d", totals.Total)
	}
}

func TestComputeTotals_PromotionDiscount(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct("p1", 1000, 100)
	promos := newMockPromos(10)
	calc := newTestCalculator(catalog, newMockPriceCache(), promos)

	items := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 5}}
	_, totals, err := calc.ComputeTotals(context.Background(), items, "save10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if totals.Discount != 500 {
		t.Errorf("expected discount 500, got %d", totals.Discount)
	}
	if totals.Total != 4500 {
		t.Errorf("expected total 4500, got %d", totals.Total)
	}

	// Code is normalized before evaluation.
	promos.mu.Lock()
	code := promos.lastCode
	promos.mu.Unlock()
	if code != "SAVE10" {
		t.Errorf("expected normalized code SAVE10, got %q", code)
	}

	// Usage increment fires asynchronously.
	select {
	case id := <-promos.usageCalled:
		if id != "promo-1" {
			t.Errorf("expected usage increment for promo-1, got %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Error("usage increment never called")
	}
}

func TestComputeTotals_UsageIncrementFailureDoesNotAffectTotals(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct("p1", 1000, 100)
	promos := newMockPromos(10)
	promos.usageErr = errors.New("counter unavailable")
	calc := newTestCalculator(catalog, newMockPriceCache(), promos)

	items := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 5}}
	_, totals, err := calc.ComputeTotals(context.Background(), items, "SAVE10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Total != 4500 {
		t.Errorf("expected total 4500, got %d", totals.Total)
	}

	select {
	case <-promos.usageCalled:
	case <-time.After(2 * time.Second):
		t.Error("usage increment never attempted")
	}
}

func TestComputeTotals_InvalidPromoYieldsNoDiscount(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct("p1", 1000, 100)
	calc := newTestCalculator(catalog, newMockPriceCache(), newMockPromos(0))

	items := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 5}}
	_, totals, err := calc.ComputeTotals(context.Background(), items, "BOGUS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Discount != 0 || totals.Total != 5000 {
		t.Errorf("expected no discount, got %+v", totals)
	}
}

func TestComputeTotals_DiscountClamped(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct("p1", 1000, 100)
	promos := newMockPromos(250) // evaluator misbehaves, 250% discount
	calc := newTestCalculator(catalog, newMockPriceCache(), promos)

	items := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 1}}
	_, totals, err := calc.ComputeTotals(context.Background(), items, "HUGE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Total != 0 {
		t.Errorf("expected clamped total 0, got %d", totals.Total)
	}
	if totals.Total < 0 {
		t.Error("total must never be negative")
	}
}

func TestComputeTotals_ClientPriceIgnored(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct("p1", 1000, 100)
	calc := newTestCalculator(catalog, newMockPriceCache(), newMockPromos(0))

	withAbsurd := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 2, ClientPrice: 1}}
	without := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 2}}

	_, totalsA, err := calc.ComputeTotals(context.Background(), withAbsurd, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, totalsB, err := calc.ComputeTotals(context.Background(), without, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if totalsA != totalsB {
		t.Errorf("client price influenced totals: %+v vs %+v", totalsA, totalsB)
	}
}

func TestComputeTotals_ProductNotFound(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct("p1", 1000, 100)
	calc := newTestCalculator(catalog, newMockPriceCache(), newMockPromos(0))

	items := []domain.OrderRequestItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "ghost", Quantity: 1},
	}
	resolved, _, err := calc.ComputeTotals(context.Background(), items, "")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got: %v", err)
	}
	if resolved != nil {
		t.Error("no partial totals may be returned on failure")
	}
}

func TestComputeTotals_CacheHitSkipsCatalog(t *testing.T) {
	catalog := newMockCatalog()
	cache := newMockPriceCache()
	cache.entries["p1"] = 1000
	calc := newTestCalculator(catalog, cache, newMockPromos(0))

	items := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 1}}
	_, totals, err := calc.ComputeTotals(context.Background(), items, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Subtotal != 1000 {
		t.Errorf("expected cached price used, got subtotal %d", totals.Subtotal)
	}
	if catalog.lookups != 0 {
		t.Errorf("expected no catalog lookups on cache hit, got %d", catalog.lookups)
	}
}

func TestComputeTotals_CacheErrorFallsThrough(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct("p1", 1000, 100)
	cache := newMockPriceCache()
	cache.getErr = errors.New("cache down")
	calc := newTestCalculator(catalog, cache, newMockPromos(0))

	items := []domain.OrderRequestItem{{ProductID: "p1", Quantity: 1}}
	_, totals, err := calc.ComputeTotals(context.Background(), items, "")
	if err != nil {
		t.Fatalf("cache failure must not fail the order: %v", err)
	}
	if totals.Subtotal != 1000 {
		t.Errorf("expected catalog price, got subtotal %d", totals.Subtotal)
	}
}
