package main

import (
	"commerce-backend/config"
	"commerce-backend/internal/api"
	"commerce-backend/internal/api/audit"
	"commerce-backend/internal/api/discount"
	"commerce-backend/internal/api/inventory"
	"commerce-backend/internal/api/order"
	"commerce-backend/internal/api/payment"
	"commerce-backend/internal/common"
	"commerce-backend/internal/gateway"
	"commerce-backend/internal/middleware"
	"commerce-backend/internal/repository/mysql"
	"commerce-backend/internal/service"
	"commerce-backend/internal/storage"
	"commerce-backend/internal/util"
	"commerce-backend/migrations"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const versionTimeFormat = "20060102150405"

func main() {
	rootCmd := &cobra.Command{
		Use:   "commerce-backend",
		Short: "订单、支付、折扣与库存后台服务",
	}
	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		createMigrationCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Init()
			util.InitLogger(config.AppConfig.LogLevel)
			defer util.Logger.Sync()
			return serve(config.AppConfig)
		},
	}
}

func serve(cfg config.Config) error {
	util.Logger.Info("应用程序启动")

	db, err := sqlx.Connect("mysql", cfg.DSN())
	if err != nil {
		util.Logger.Error("连接数据库失败", zap.Error(err))
		return err
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	util.Logger.Info("数据库连接成功")

	ctx := context.Background()
	store, err := storage.New(ctx, cfg)
	if err != nil {
		util.Logger.Error("初始化导出存储失败", zap.Error(err))
		return err
	}

	gw := gateway.NewRetryingGateway(gateway.NewManualGateway(), common.RetryPolicy{
		MaxRetries: cfg.GatewayMaxRetries,
		BaseDelay:  cfg.GatewayRetryBaseDelay,
		MaxDelay:   5 * time.Second,
	})

	// 初始化存储库、服务和处理器
	tx := mysql.NewTxManager(db)
	orderRepo := mysql.NewOrderRepository(db)
	paymentRepo := mysql.NewPaymentRepository(db)
	discountRepo := mysql.NewDiscountRepository(db)
	inventoryRepo := mysql.NewInventoryRepository(db)
	auditRepo := mysql.NewAuditRepository(db)

	auditService := service.NewAuditService(auditRepo, store)
	emailService := service.NewEmailService(cfg)
	discountService := service.NewDiscountService(tx, discountRepo, auditService)
	inventoryService := service.NewInventoryService(tx, inventoryRepo, auditService)
	paymentService := service.NewPaymentService(tx, paymentRepo, orderRepo, inventoryService, auditService, gw, emailService)
	orderService := service.NewOrderService(tx, orderRepo, paymentRepo, discountService, inventoryService, paymentService, auditService)

	r := api.NewRouter(api.Handlers{
		Order:     order.NewOrderHandler(orderService),
		Payment:   payment.NewPaymentHandler(paymentService),
		Discount:  discount.NewDiscountHandler(discountService),
		Inventory: inventory.NewInventoryHandler(inventoryService),
		Audit:     audit.NewAuditHandler(auditService),
	}, api.RouterOptions{
		AllowOrigins: []string{cfg.FrontendURL},
		Monitor:      middleware.NewErrorMonitor(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		util.Logger.Info("服务器正在启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		util.Logger.Error("服务器强制关闭", zap.Error(err))
		return err
	}

	util.Logger.Info("服务器已优雅关闭")
	return nil
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-up",
		Short: "执行全部数据库迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Init()

			src, err := iofs.New(migrations.FS, ".")
			if err != nil {
				return err
			}
			m, err := migrate.NewWithSourceInstance("iofs", src,
				fmt.Sprintf("mysql://%s&multiStatements=true", config.AppConfig.DSN()))
			if err != nil {
				return err
			}
			defer m.Close()

			err = m.Up()
			if errors.Is(err, migrate.ErrNoChange) {
				fmt.Println("No change in migration")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println("Migrated up")
			return nil
		},
	}
}

func createMigrationCommand() *cobra.Command {
	var dir string
	c := &cobra.Command{
		Use:   "migrate-create [name]",
		Short: "创建空的迁移脚本",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := time.Now().Format(versionTimeFormat)
			up := fmt.Sprintf("%s/%s_%s.up.sql", dir, version, args[0])
			down := fmt.Sprintf("%s/%s_%s.down.sql", dir, version, args[0])

			if err := os.WriteFile(up, []byte{}, 0644); err != nil {
				return err
			}
			if err := os.WriteFile(down, []byte{}, 0644); err != nil {
				return err
			}
			fmt.Println("Created SQL up script:", up)
			fmt.Println("Created SQL down script:", down)
			return nil
		},
	}
	c.Flags().StringVar(&dir, "dir", "migrations", "迁移脚本目录")
	return c
}
