package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"agrimarket/internal/domain"
)

type ProductService struct {
	Prods  ProductRepository
	Users  Directory
	Sales  SalesLedger
	Stock  *InventoryService
	Pricer FairPricer
	Tr     Translator
}

func NewProductService(prods ProductRepository, users Directory, sales SalesLedger, stock *InventoryService, pricer FairPricer, tr Translator) *ProductService {
	return &ProductService{Prods: prods, Users: users, Sales: sales, Stock: stock, Pricer: pricer, Tr: tr}
}

// ProductView is a product prepared for display in a given language.
type ProductView struct {
	domain.Product
	NameTranslated      string               `json:"product_name_translated"`
	CommodityTranslated string               `json:"commodity_translated"`
	UnitsTranslated     string               `json:"units_translated"`
	UploadedAtReadable  string               `json:"uploaded_at_readable"`
	FarmerName          string               `json:"farmer_name"`
	Availability        *domain.Availability `json:"availability,omitempty"`
	SoldQuantity        *int                 `json:"sold_quantity,omitempty"`
}

func productView(ctx context.Context, tr Translator, p domain.Product, lang string) ProductView {
	v := ProductView{
		Product:             p,
		NameTranslated:      p.Name,
		CommodityTranslated: p.Commodity,
		UnitsTranslated:     p.Units,
		UploadedAtReadable:  domain.Readable(p.UploadedAt),
		FarmerName:          "Unknown",
	}
	if wantsTranslation(lang) {
		v.NameTranslated = tr.Translate(ctx, p.Name, "en", lang)
		v.CommodityTranslated = tr.Translate(ctx, p.Commodity, "en", lang)
		v.UnitsTranslated = tr.Translate(ctx, p.Units, "en", lang)
	}
	return v
}

func (s *ProductService) Get(ctx context.Context, id, lang string) (ProductView, error) {
	if strings.TrimSpace(id) == "" {
		return ProductView{}, fmt.Errorf("%w: Product ID is required", domain.ErrValidation)
	}
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	farmer, err := lookupUser(ctx, s.Users, p.FarmerID)
	if err != nil {
		return ProductView{}, err
	}
	v := productView(ctx, s.Tr, p, lang)
	v.FarmerName = farmer.Name

	avail, err := s.Stock.CheckAvailability(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	v.Availability = &avail
	sold, err := s.Sales.SumQuantity(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	v.SoldQuantity = &sold
	return v, nil
}

func (s *ProductService) ByFarmer(ctx context.Context, farmerID, lang string) ([]ProductView, error) {
	if strings.TrimSpace(farmerID) == "" {
		return nil, fmt.Errorf("%w: Farmer ID is required", domain.ErrValidation)
	}
	ps, err := s.Prods.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, fmt.Errorf("%w: no products found for farmer %s", domain.ErrNotFound, farmerID)
	}
	farmer, err := lookupUser(ctx, s.Users, farmerID)
	if err != nil {
		return nil, err
	}
	out := make([]ProductView, 0, len(ps))
	for _, p := range ps {
		v := productView(ctx, s.Tr, p, lang)
		v.FarmerName = farmer.Name
		out = append(out, v)
	}
	return out, nil
}

type Upload struct {
	FarmerID    string
	ProductName string
	Commodity   string
	Units       string
	Image       string
	Lang        string
	Price       decimal.Decimal
	Quantity    int
}

type UploadResult struct {
	Product        domain.Product     `json:"product"`
	SuggestedRange [2]decimal.Decimal `json:"suggested_price_range"`
}

// Upload lists a new product after checking its price against the fair-price
// range for the commodity. Unlike translation, the price lookup gates the
// decision, so an unreachable price feed rejects the upload.
func (s *ProductService) Upload(ctx context.Context, u Upload) (UploadResult, error) {
	required := []struct{ name, val string }{
		{"farmer_id", u.FarmerID}, {"product_name", u.ProductName}, {"commodity", u.Commodity},
		{"units", u.Units}, {"image", u.Image}, {"lang", u.Lang},
	}
	for _, f := range required {
		if strings.TrimSpace(f.val) == "" {
			return UploadResult{}, fmt.Errorf("%w: %s is required", domain.ErrValidation, f.name)
		}
	}
	if !u.Price.IsPositive() {
		return UploadResult{}, fmt.Errorf("%w: price is required", domain.ErrValidation)
	}
	if u.Quantity < 1 {
		return UploadResult{}, fmt.Errorf("%w: quantity is required", domain.ErrValidation)
	}

	name, commodity, units := strings.TrimSpace(u.ProductName), strings.TrimSpace(u.Commodity), strings.TrimSpace(u.Units)
	if wantsTranslation(u.Lang) {
		name = s.Tr.Translate(ctx, name, "auto", "en")
		commodity = s.Tr.Translate(ctx, commodity, "auto", "en")
		units = s.Tr.Translate(ctx, units, "auto", "en")
	} else {
		name = cases.Title(language.English).String(name)
	}

	q, err := s.Pricer.FairPrice(ctx, name)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: fair price for %s: %v", domain.ErrUpstreamUnavailable, name, err)
	}
	if u.Price.LessThan(q.MinPrice) || u.Price.GreaterThan(q.MaxPrice) {
		return UploadResult{}, fmt.Errorf("%w: Price must be between ₹%s and ₹%s", domain.ErrValidation, q.MinPrice, q.MaxPrice)
	}

	p := domain.Product{
		ID:         uuid.NewString(),
		FarmerID:   u.FarmerID,
		Name:       name,
		Commodity:  commodity,
		Units:      units,
		Price:      u.Price,
		Quantity:   u.Quantity,
		ImageURL:   u.Image,
		Status:     domain.ProductAvailable,
		UploadedAt: domain.Now(),
	}
	if err := s.Prods.Insert(ctx, p); err != nil {
		return UploadResult{}, err
	}
	return UploadResult{Product: p, SuggestedRange: [2]decimal.Decimal{q.MinPrice, q.MaxPrice}}, nil
}
