package domain

type (
	// A Product is identified by its business code,
	// unique and immutable once created.
	Product struct {
		Code         string
		Name         string
		Description  string
		Price        int
		CategoryID   int
		CategoryName string
		Stock        int
		ImageURL     string
		Manufacturer string
		Rating       float32
		SellerID     int64
		Active       bool
	}

	Category struct {
		ID   int
		Name string
	}

	Seller struct {
		ID     int64
		Name   string
		Email  string
		Active bool
	}
)

type ProductSort int

const (
	SortNone ProductSort = iota
	SortPriceAsc
	SortPriceDesc
	SortRatingDesc
	SortNameAsc
)

// A ProductQuery describes a catalog selection.
// Zero values mean "no restriction".
type ProductQuery struct {
	Code       string
	CategoryID int
	Search     string
	SellerID   int64
	Sort       ProductSort
}
