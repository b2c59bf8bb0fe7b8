package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mercata/orderflow/internal/adapter/storage"
	"github.com/mercata/orderflow/internal/core/domain"
	"github.com/mercata/orderflow/internal/core/service"
)

const (
	mysqlDSN      = "root:root@tcp(localhost:3306)/orderflow?parseTime=true"
	redisAddr     = "localhost:6379"
	productID     = "stress-test-product"
	initialStock  = 20
	totalRequests = 50
)

// Drives concurrent order creation against live MySQL/Redis and checks the
// oversell invariant: successes == initial stock, final stock == 0.
func main() {
	ctx := context.Background()

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Reset test data
	db.ExecContext(ctx, `
		DELETE o, li FROM orders o
		JOIN order_line_items li ON li.order_id = o.id
		WHERE li.product_id = ?`, productID)
	rdb.Del(ctx, "price:"+productID)
	_, err = db.ExecContext(ctx, `
		INSERT INTO products (id, title, price, stock, created_at, updated_at)
		VALUES (?, 'Stress Test Product', 1500, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE stock = ?, price = 1500`,
		productID, initialStock, initialStock)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	promoAdapter := storage.NewPromotionAdapter(db)
	logger := zap.NewNop()

	calculator := service.NewTotalCalculator(mysqlAdapter, redisAdapter, promoAdapter, logger)
	orderService := service.NewOrderService(calculator, mysqlAdapter, mysqlAdapter, nil, logger)

	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var otherCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()

			req := domain.OrderRequest{
				Items: []domain.OrderRequestItem{{ProductID: productID, Quantity: 1}},
				Shipping: domain.ShippingInfo{
					Name:    fmt.Sprintf("Stress User %d", userID),
					Address: "1 Load Test Lane",
				},
			}
			_, err := orderService.CreateOrder(ctx, req, "")
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && soldOut == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d sold out\n", success, soldOut)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d sold out, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
	}

	var finalStock int
	db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, productID).Scan(&finalStock)
	fmt.Printf("Final Stock: %d\n", finalStock)

	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}
}
