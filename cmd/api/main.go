package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockpilot/internal/handler"
	"stockpilot/internal/metrics"
	"stockpilot/internal/middleware"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/internal/scheduler"
	"stockpilot/internal/service"
	"stockpilot/internal/ws"
	"stockpilot/pkg/cache"
	"stockpilot/pkg/config"
	"stockpilot/pkg/database"
	"stockpilot/pkg/jwt"
	"stockpilot/pkg/notify"
	"stockpilot/pkg/storage"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func main() {
	// 1. Load config
	cfg := config.Load()

	// 2. Setup Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	// Auto Migrate (production deployments should run migrations separately)
	if err := db.AutoMigrate(
		&model.Privilege{}, &model.Role{}, &model.User{},
		&model.Category{}, &model.CustomerCategory{}, &model.Customer{},
		&model.Product{}, &model.Batch{},
		&model.Order{}, &model.OrderItem{},
		&model.InventoryMovement{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	// 3. Seed default privileges, roles, and admin user
	seedPrivilegesRolesAndAdmin(db, cfg)

	// 4. Outbound integrations, each optional
	var dashCache cache.Cache = cache.Nop{}
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			log.Printf("Warning: redis unavailable, caching disabled: %v", err)
		} else {
			defer redisCache.Close()
			dashCache = redisCache
		}
	}

	var images storage.ImageStore = storage.Disabled{}
	if cfg.S3.Enabled() {
		minioStore, err := storage.NewMinioStore(cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket, cfg.S3.UseSSL, cfg.S3.CDNBase)
		if err != nil {
			log.Printf("Warning: object storage unavailable, image upload disabled: %v", err)
		} else {
			images = minioStore
		}
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.SMTP.Enabled() {
		notifier = notify.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.To)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	// 5. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 6. Dependency Injection (Wiring Layers)
	store := repository.NewStore(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	customerCategoryRepo := repository.NewCustomerCategoryRepo(db)
	reportRepo := repository.NewReportRepo(db)

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)

	invService := service.NewInventoryService(store, categoryRepo, images, wsHub, dashCache)
	orderService := service.NewOrderService(store, wsHub, dashCache)
	reorderService := service.NewReorderService(store, service.VelocitySuggester{LeadTimeDays: 7, CoverDays: 7})
	categoryService := service.NewCategoryService(categoryRepo, store.Products())
	customerCategoryService := service.NewCustomerCategoryService(customerCategoryRepo, store.Customers())
	customerService := service.NewCustomerService(store, customerCategoryRepo)
	dashService := service.NewDashboardService(reportRepo, store.Batches(), store.Products(), dashCache, cfg.Redis.TTL, cfg.Location, cfg.Alerts.ExpiryWarningDays)
	authService := service.NewAuthService(userRepo, tokens, wsHub)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)
	alertService := service.NewAlertService(store.Products(), store.Batches(), notifier, wsHub, cfg.Alerts.ExpiryWarningDays)

	invHandler := handler.NewInventoryHandler(invService, reorderService)
	orderHandler := handler.NewOrderHandler(orderService, cfg.Location)
	catalogHandler := handler.NewCatalogHandler(categoryService, customerCategoryService, customerService)
	dashHandler := handler.NewDashboardHandler(dashService, cfg.Location)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(userService)

	// 7. Scheduled alerts
	alertScheduler, err := scheduler.Start(alertService, cfg.Alerts.At, cfg.Location)
	if err != nil {
		log.Fatal(err)
	}

	// 8. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "StockPilot v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS
	app.Use(middleware.Prometheus())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 9. Routes
	api := app.Group("/api/v1")
	requireAuth := middleware.RequireAuth(tokens, userRepo)

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/heartbeat", requireAuth, authHandler.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	// Dashboard & reports
	protected.Get("/dashboard/stats", middleware.RequirePrivilege(model.PrivDashboardView), dashHandler.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", middleware.RequirePrivilege(model.PrivDashboardView), dashHandler.GetStockMovement)
	reports := protected.Group("/reports", middleware.RequirePrivilege(model.PrivReportView))
	reports.Get("/sales", dashHandler.SalesReport)
	reports.Get("/top-products", dashHandler.TopProducts)
	reports.Get("/expiring-batches", dashHandler.ExpiringBatches)
	reports.Get("/low-stock", dashHandler.LowStock)

	// Products & stock
	protected.Get("/products", middleware.RequirePrivilege(model.PrivProductView), invHandler.GetProducts)
	protected.Post("/products", middleware.RequirePrivilege(model.PrivProductCreate), invHandler.CreateProduct)
	protected.Get("/products/:id", middleware.RequirePrivilege(model.PrivProductView), invHandler.GetProduct)
	protected.Put("/products/:id", middleware.RequirePrivilege(model.PrivProductUpdate), invHandler.UpdateProduct)
	protected.Delete("/products/:id", middleware.RequirePrivilege(model.PrivProductDelete), invHandler.DeleteProduct)
	protected.Post("/products/:id/batches", middleware.RequireAnyPrivilege(model.PrivProductUpdate, model.PrivProductAdjust), invHandler.StockIn)
	protected.Post("/products/:id/adjust", middleware.RequirePrivilege(model.PrivProductAdjust), invHandler.AdjustStock)
	protected.Get("/products/:id/movements", middleware.RequirePrivilege(model.PrivProductView), invHandler.GetMovements)
	protected.Post("/products/:id/image", middleware.RequirePrivilege(model.PrivProductUpdate), invHandler.UploadImage)
	protected.Get("/products/:id/reorder-suggestion", middleware.RequirePrivilege(model.PrivProductView), invHandler.ReorderSuggestion)

	// Categories
	protected.Get("/categories", catalogHandler.GetCategories)
	protected.Post("/categories", middleware.RequirePrivilege(model.PrivCategoryManage), catalogHandler.CreateCategory)
	protected.Put("/categories/:id", middleware.RequirePrivilege(model.PrivCategoryManage), catalogHandler.UpdateCategory)
	protected.Delete("/categories/:id", middleware.RequirePrivilege(model.PrivCategoryManage), catalogHandler.DeleteCategory)
	protected.Get("/customer-categories", catalogHandler.GetCustomerCategories)
	protected.Post("/customer-categories", middleware.RequirePrivilege(model.PrivCategoryManage), catalogHandler.CreateCustomerCategory)
	protected.Put("/customer-categories/:id", middleware.RequirePrivilege(model.PrivCategoryManage), catalogHandler.UpdateCustomerCategory)
	protected.Delete("/customer-categories/:id", middleware.RequirePrivilege(model.PrivCategoryManage), catalogHandler.DeleteCustomerCategory)

	// Customers
	protected.Get("/customers", middleware.RequirePrivilege(model.PrivCustomerView), catalogHandler.GetCustomers)
	protected.Post("/customers", middleware.RequirePrivilege(model.PrivCustomerCreate), catalogHandler.CreateCustomer)
	protected.Get("/customers/:id", middleware.RequirePrivilege(model.PrivCustomerView), catalogHandler.GetCustomer)
	protected.Put("/customers/:id", middleware.RequirePrivilege(model.PrivCustomerUpdate), catalogHandler.UpdateCustomer)
	protected.Delete("/customers/:id", middleware.RequirePrivilege(model.PrivCustomerDelete), catalogHandler.DeleteCustomer)
	protected.Get("/customers/:id/orders", middleware.RequirePrivilege(model.PrivCustomerView), middleware.RequirePrivilege(model.PrivOrderView), catalogHandler.GetCustomerOrders)

	// Orders (quote is registered before :id so it is not captured as an id)
	protected.Get("/orders", middleware.RequirePrivilege(model.PrivOrderView), orderHandler.GetOrders)
	protected.Post("/orders/quote", middleware.RequireAnyPrivilege(model.PrivOrderCreate, model.PrivOrderUpdate), orderHandler.Quote)
	protected.Post("/orders", middleware.RequirePrivilege(model.PrivOrderCreate), orderHandler.CreateOrder)
	protected.Get("/orders/:id", middleware.RequirePrivilege(model.PrivOrderView), orderHandler.GetOrder)
	protected.Put("/orders/:id", middleware.RequirePrivilege(model.PrivOrderUpdate), orderHandler.UpdateOrder)
	protected.Patch("/orders/:id/status", middleware.RequirePrivilege(model.PrivOrderUpdate), orderHandler.UpdateStatus)
	protected.Delete("/orders/:id", middleware.RequirePrivilege(model.PrivOrderDelete), orderHandler.DeleteOrder)

	// User Management Routes
	protected.Get("/users", middleware.RequirePrivilege(model.PrivUserView), userHandler.GetUsers)
	protected.Get("/users/:id", middleware.RequirePrivilege(model.PrivUserView), userHandler.GetUser)
	protected.Post("/users", middleware.RequirePrivilege(model.PrivUserCreate), userHandler.CreateUser)
	protected.Put("/users/:id", middleware.RequirePrivilege(model.PrivUserUpdate), userHandler.UpdateUser)
	protected.Delete("/users/:id", middleware.RequirePrivilege(model.PrivUserDelete), userHandler.DeleteUser)
	protected.Put("/users/:id/privileges", middleware.RequirePrivilege(model.PrivUserUpdatePrivilege), userHandler.UpdateUserPrivileges)
	protected.Get("/roles", roleHandler.GetRoles)
	protected.Get("/privileges", roleHandler.GetPrivileges)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 10. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	alertScheduler.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// seedPrivilegesRolesAndAdmin creates default privileges, roles, and the admin
// user if they don't exist. Failures are logged, the server still starts.
func seedPrivilegesRolesAndAdmin(db *gorm.DB, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	privilegeRepo := repository.NewPrivilegeRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(ctx); err != nil {
		log.Printf("Warning: Failed to seed privileges: %v", err)
	}

	// 2. Seed roles and their default grants
	if err := roleRepo.SeedDefaults(ctx); err != nil {
		log.Printf("Warning: Failed to seed roles: %v", err)
	}

	// 3. Create default admin user
	_, err := userRepo.FindByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.Printf("Warning: Failed to look up admin user: %v", err)
		return
	}

	adminRole, err := roleRepo.FindByCode(ctx, model.RoleAdmin)
	if err != nil {
		log.Printf("Warning: ADMIN role missing, admin user not created: %v", err)
		return
	}

	admin := &model.User{
		Email:      cfg.AdminEmail,
		FullName:   "Administrator",
		RoleID:     &adminRole.ID,
		IsActive:   true,
		Privileges: adminRole.Privileges,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"

	if err := admin.SetPassword(cfg.AdminPassword); err != nil {
		log.Printf("Warning: Failed to hash admin password: %v", err)
		return
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		log.Printf("Warning: Failed to create admin user: %v", err)
		return
	}
	log.Printf("Admin user created: %s (ADMIN)", cfg.AdminEmail)
}
