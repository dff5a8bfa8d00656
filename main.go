package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"stockpos/m/internal/api"
	"stockpos/m/internal/auth"
	"stockpos/m/internal/config"
	"stockpos/m/internal/ledger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	users := auth.NewStore()
	inventory := ledger.NewInventory()
	sales := ledger.NewSales(inventory)
	promotions := ledger.NewPromotions()

	handler := api.New(users, inventory, sales, promotions, cfg.Secret)

	log.Printf("stockpos server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
