package httphandler

import (
	"time"

	"github.com/niksmo/levelup-shop/internal/core/domain"
)

type (
	Product struct {
		Code         string  `json:"code"`
		Name         string  `json:"name"`
		Description  string  `json:"description"`
		Price        int     `json:"price"`
		CategoryID   int     `json:"category_id"`
		CategoryName string  `json:"category_name"`
		Stock        int     `json:"stock"`
		ImageURL     string  `json:"image_url"`
		Manufacturer string  `json:"manufacturer"`
		Rating       float32 `json:"rating"`
		SellerID     int64   `json:"seller_id"`
		Active       bool    `json:"active"`
	}

	CartLine struct {
		ID           int64     `json:"id"`
		SessionID    int       `json:"session_id"`
		ProductCode  string    `json:"product_code"`
		ProductName  string    `json:"product_name"`
		ProductPrice int       `json:"product_price"`
		Quantity     int       `json:"quantity"`
		CreatedAt    time.Time `json:"created_at"`
	}

	PriceBreakdown struct {
		Subtotal        int `json:"subtotal"`
		DiscountPercent int `json:"discount_percent"`
		DiscountAmount  int `json:"discount_amount"`
		TaxableBase     int `json:"taxable_base"`
		TaxPercent      int `json:"tax_percent"`
		TaxAmount       int `json:"tax_amount"`
		Total           int `json:"total"`
	}

	SignInRequest struct {
		UserID        int    `json:"user_id"`
		UserName      string `json:"user_name"`
		LoyaltyMember bool   `json:"loyalty_member"`
		Role          string `json:"role"`
	}

	AddItemRequest struct {
		ProductCode string `json:"product_code"`
		Quantity    int    `json:"quantity"`
	}
)

func productToWire(p domain.Product) Product {
	return Product{
		Code:         p.Code,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Stock:        p.Stock,
		ImageURL:     p.ImageURL,
		Manufacturer: p.Manufacturer,
		Rating:       p.Rating,
		SellerID:     p.SellerID,
		Active:       p.Active,
	}
}

func productToDomain(p Product) domain.Product {
	return domain.Product{
		Code:         p.Code,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Stock:        p.Stock,
		ImageURL:     p.ImageURL,
		Manufacturer: p.Manufacturer,
		Rating:       p.Rating,
		SellerID:     p.SellerID,
		Active:       p.Active,
	}
}

func productsToWire(ps []domain.Product) []Product {
	ws := make([]Product, len(ps))
	for i, p := range ps {
		ws[i] = productToWire(p)
	}
	return ws
}

func lineToWire(l domain.CartLine) CartLine {
	return CartLine{
		ID:           l.ID,
		SessionID:    l.SessionID,
		ProductCode:  l.ProductCode,
		ProductName:  l.ProductName,
		ProductPrice: l.ProductPrice,
		Quantity:     l.Quantity,
		CreatedAt:    l.CreatedAt,
	}
}

func lineToDomain(l CartLine) domain.CartLine {
	return domain.CartLine{
		ID:           l.ID,
		SessionID:    l.SessionID,
		ProductCode:  l.ProductCode,
		ProductName:  l.ProductName,
		ProductPrice: l.ProductPrice,
		Quantity:     l.Quantity,
		CreatedAt:    l.CreatedAt,
	}
}

func linesToWire(ls []domain.CartLine) []CartLine {
	ws := make([]CartLine, len(ls))
	for i, l := range ls {
		ws[i] = lineToWire(l)
	}
	return ws
}

func breakdownToWire(b domain.PriceBreakdown) PriceBreakdown {
	return PriceBreakdown{
		Subtotal:        b.Subtotal,
		DiscountPercent: b.DiscountPercent,
		DiscountAmount:  b.DiscountAmount,
		TaxableBase:     b.TaxableBase,
		TaxPercent:      b.TaxPercent,
		TaxAmount:       b.TaxAmount,
		Total:           b.Total,
	}
}
