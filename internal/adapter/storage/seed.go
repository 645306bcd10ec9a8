package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/niksmo/levelup-shop/internal/core/domain"
)

// A Seeder populates an empty catalog on first open: the category
// set, one demo seller and the demo product list. Idempotent via
// the count == 0 guard.
type Seeder struct {
	sqldb    sqldb
	products *ProductsRepository
}

func NewSeeder(sqldb sqldb, products *ProductsRepository) Seeder {
	return Seeder{sqldb, products}
}

func (s Seeder) EnsureSeedData(ctx context.Context) error {
	const op = "Seeder.EnsureSeedData"
	log := slog.With("op", op)

	n, err := s.products.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		log.Debug("catalog is not empty, skipping seed")
		return nil
	}

	if err := s.seedCategories(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.seedSeller(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.products.SaveProducts(ctx, demoProducts()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("seeded demo catalog", "nProducts", len(demoProducts()))
	return nil
}

func (s Seeder) seedCategories(ctx context.Context) error {
	query := `
		INSERT INTO categories (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING;`

	for _, c := range demoCategories() {
		if _, err := s.sqldb.ExecContext(ctx, query, c.ID, c.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s Seeder) seedSeller(ctx context.Context) error {
	seller := domain.Seller{
		ID:     1,
		Name:   "Level-Up Gamer Store",
		Email:  "store@levelupgamer.example",
		Active: true,
	}

	query := `
		INSERT INTO sellers (id, name, email, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING;`

	_, err := s.sqldb.ExecContext(ctx, query,
		seller.ID, seller.Name, seller.Email, seller.Active)
	return err
}

func demoCategories() []domain.Category {
	return []domain.Category{
		{ID: 1, Name: "Board Games"},
		{ID: 2, Name: "Accessories"},
		{ID: 3, Name: "Consoles"},
		{ID: 4, Name: "Gamer Computers"},
		{ID: 5, Name: "Gamer Chairs"},
		{ID: 6, Name: "Mice"},
		{ID: 7, Name: "Mousepads"},
		{ID: 8, Name: "Custom T-Shirts"},
	}
}

func demoProducts() []domain.Product {
	return []domain.Product{
		{
			Code:         "JM001",
			Name:         "Catan",
			Description:  "A classic strategy game of settling and expanding across the island of Catan. Best with 3-4 players.",
			Price:        29990,
			CategoryID:   1,
			CategoryName: "Board Games",
			Stock:        100,
			Manufacturer: "Catan Studio",
			Rating:       4.5,
			SellerID:     1,
			Active:       true,
		},
		{
			Code:         "JM002",
			Name:         "Carcassonne",
			Description:  "A tile-placement game building the landscape around the medieval fortress of Carcassonne. Easy to learn, 2-5 players.",
			Price:        24990,
			CategoryID:   1,
			CategoryName: "Board Games",
			Stock:        100,
			Manufacturer: "Z-Man Games",
			Rating:       4.3,
			SellerID:     1,
			Active:       true,
		},
		{
			Code:         "AC001",
			Name:         "Xbox Series X Wireless Controller",
			Description:  "Comfortable grip with mappable buttons and improved tactile response. Works with Xbox consoles and PC.",
			Price:        59990,
			CategoryID:   2,
			CategoryName: "Accessories",
			Stock:        100,
			Manufacturer: "Microsoft",
			Rating:       4.7,
			SellerID:     1,
			Active:       true,
		},
		{
			Code:         "AC002",
			Name:         "HyperX Cloud II Gaming Headset",
			Description:  "Surround sound with a detachable microphone and memory foam ear pads for long sessions.",
			Price:        79990,
			CategoryID:   2,
			CategoryName: "Accessories",
			Stock:        100,
			Manufacturer: "HyperX",
			Rating:       4.8,
			SellerID:     1,
			Active:       true,
		},
		{
			Code:         "CO001",
			Name:         "PlayStation 5",
			Description:  "Sony's latest generation console with stunning graphics and ultra-fast load times.",
			Price:        549990,
			CategoryID:   3,
			CategoryName: "Consoles",
			Stock:        100,
			Manufacturer: "Sony",
			Rating:       4.9,
			SellerID:     1,
			Active:       true,
		},
		{
			Code:         "CG001",
			Name:         "ASUS ROG Strix Gaming PC",
			Description:  "A powerful rig built for demanding gamers, equipped with the latest components.",
			Price:        1299990,
			CategoryID:   4,
			CategoryName: "Gamer Computers",
			Stock:        100,
			Manufacturer: "ASUS",
			Rating:       4.8,
			SellerID:     1,
			Active:       true,
		},
		{
			Code:         "SG001",
			Name:         "Secretlab Titan Gaming Chair",
			Description:  "Ergonomic support and adjustable customization for extended play sessions.",
			Price:        349990,
			CategoryID:   5,
			CategoryName: "Gamer Chairs",
			Stock:        100,
			Manufacturer: "Secretlab",
			Rating:       4.7,
			SellerID:     1,
			Active:       true,
		},
		{
			Code:         "MS001",
			Name:         "Logitech G502 HERO Gaming Mouse",
			Description:  "High-precision sensor and customizable buttons for exact control.",
			Price:        49990,
			CategoryID:   6,
			CategoryName: "Mice",
			Stock:        100,
			Manufacturer: "Logitech",
			Rating:       4.6,
			SellerID:     1,
			Active:       true,
		},
		{
			Code:         "MP001",
			Name:         "Razer Goliathus Extended Chroma Mousepad",
			Description:  "A wide play surface with customizable RGB lighting and an even glide.",
			Price:        29990,
			CategoryID:   7,
			CategoryName: "Mousepads",
			Stock:        100,
			Manufacturer: "Razer",
			Rating:       4.4,
			SellerID:     1,
			Active:       true,
		},
		{
			Code:         "PP001",
			Name:         "Custom 'Level-Up' Gamer T-Shirt",
			Description:  "A comfortable tee, customizable with your gamer tag or favorite design.",
			Price:        14990,
			CategoryID:   8,
			CategoryName: "Custom T-Shirts",
			Stock:        100,
			Manufacturer: "Level-Up Gamer",
			Rating:       4.2,
			SellerID:     1,
			Active:       true,
		},
	}
}
