package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ignite-service/internal/config"
	"ignite-service/internal/model"
	"ignite-service/internal/repo"
	"ignite-service/internal/service"
	"ignite-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type app struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	db       *gorm.DB
	services *service.Container
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:          "ignitectl",
		Short:        "Operator tooling for the ignite service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log service activity to stdout")

	root.AddCommand(
		newAccountCmd(a),
		newSessionCmd(a),
		newArchiveCmd(a),
		newMirrorCmd(a),
		newOperatorCmd(a),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	config.GlobalConfig = cfg
	if a.verbose {
		logger.InitLogger(cfg.Server.Mode)
	}

	db, err := repo.OpenDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	var rdb *redis.Client
	if cfg.Store.Driver != "db" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}

	services, err := service.NewContainer(ctx, cfg, db, rdb)
	if err != nil {
		return err
	}
	a.cfg, a.db, a.services = cfg, db, services
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
