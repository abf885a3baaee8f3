package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"workspace-backoffice/internal/config"
	"workspace-backoffice/internal/database"
	"workspace-backoffice/internal/domain"
	"workspace-backoffice/internal/infrastructure/mail"
	"workspace-backoffice/internal/infrastructure/payment"
	"workspace-backoffice/internal/notify"
	"workspace-backoffice/internal/observability"
	"workspace-backoffice/internal/repo"
	"workspace-backoffice/internal/service"
	"workspace-backoffice/internal/worker"
)

// The simulator drives both checkout branches against a flaky mock
// gateway, then lets the reconciliation worker clean up whatever the
// missing webhooks left behind.
func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	workspaceRepo := repo.NewWorkspaceRepo(db)
	userRepo := repo.NewUserRepo(db)
	variantRepo := repo.NewVariantRepo(db)
	orderRepo := repo.NewOrderRepo(db)
	addressRepo := repo.NewAddressRepo(db)
	historyRepo := repo.NewHistoryRepo(db)
	notificationRepo := repo.NewNotificationRepo(db)
	sessionRepo := repo.NewCheckoutSessionRepo(db)

	// Half of the online sessions pay immediately; the other half are
	// "abandoned" until the sweep decides their fate.
	gateway := payment.NewMockGateway()
	gateway.AutoPayChance = 50

	fanout := notify.NewFanout(userRepo, notificationRepo, mail.BasicRenderer{}, mail.LogSender{Logger: logger}, logger)
	orderService := service.NewOrderService(db, orderRepo, variantRepo, userRepo, addressRepo, historyRepo, fanout, logger)
	checkoutService := service.NewCheckoutService(orderService, sessionRepo, variantRepo, gateway, "usd", logger)

	// Seed one workspace with a customer and three variants.
	workspaceId := uuid.New()
	if err := workspaceRepo.Create(ctx, workspaceId, "simulated workspace"); err != nil {
		logger.Fatal("seed workspace", zap.Error(err))
	}
	customer := &domain.User{
		ID: uuid.New(), WorkspaceID: workspaceId,
		Email: "customer@example.test", Name: "Sim Customer",
		Role: domain.RoleCustomer, CreatedAt: time.Now(),
	}
	if err := userRepo.Create(ctx, customer); err != nil {
		logger.Fatal("seed customer", zap.Error(err))
	}

	variantIds := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		v := &domain.ProductVariant{
			ID: uuid.New(), WorkspaceID: workspaceId,
			SKU:   fmt.Sprintf("SIM-%d", i+1),
			Price: decimal.NewFromFloat(float64(10 * (i + 1))),
			Stock: 100, IsAvailable: true,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}
		if err := variantRepo.Create(ctx, v); err != nil {
			logger.Fatal("seed variant", zap.Error(err))
		}
		variantIds = append(variantIds, v.ID)
	}

	address := service.AddressInput{Line1: "1 Sim Street", City: "Simville", Country: "US", PostalCode: "00001"}

	fmt.Println("--- STARTING SIMULATION (20 ORDERS) ---")
	for i := 0; i < 20; i++ {
		method := domain.PaymentCash
		if i%2 == 1 {
			method = domain.PaymentOnline
		}
		input := service.CreateOrderInput{
			UserID: customer.ID,
			Items: []service.RequestedItem{
				{VariantID: variantIds[rand.IntN(len(variantIds))], Quantity: 1 + rand.IntN(3)},
			},
			PaymentMethod:   method,
			ShippingAddress: &address,
			BillingAddress:  &address,
		}

		result, err := checkoutService.PlaceOrder(ctx, input, customer.ID)
		switch {
		case err != nil:
			fmt.Printf("[%d] %s FAILED: %v\n", i+1, method, err)
		case result.Order != nil:
			fmt.Printf("[%d] %s order %s total %s\n", i+1, method, result.Order.OrderID, result.Order.TotalAmount.StringFixed(2))
		default:
			fmt.Printf("[%d] %s session %s awaiting payment\n", i+1, method, result.SessionID)
		}
		time.Sleep(50 * time.Millisecond)
	}

	// Sweep with a zero stale threshold so every still-INIT session is
	// reconciled immediately: paid ones become orders, the rest expire.
	fmt.Println("--- RECONCILING ABANDONED SESSIONS ---")
	sweeper := worker.NewReconciliationWorker(sessionRepo, gateway, checkoutService, 500*time.Millisecond, 0, logger)
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	sweeper.Run(sweepCtx)

	orders, err := orderRepo.ListByWorkspace(ctx, workspaceId)
	if err != nil {
		logger.Fatal("list orders", zap.Error(err))
	}
	fmt.Printf("--- DONE: %d orders materialized ---\n", len(orders))
	for _, v := range variantIds {
		variant, _ := variantRepo.FindById(ctx, v)
		if variant != nil {
			fmt.Printf("variant %s stock remaining: %d\n", variant.SKU, variant.Stock)
		}
	}
}
