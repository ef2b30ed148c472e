package domain

// Availability labels derived from stock.
const (
	StatusInStock    = "In Stock"
	StatusOutOfStock = "Out of Stock"
)

// Category represents a catalog category as returned by the remote API.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Dimensions of a product in centimetres.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// Review is a customer review attached to a product.
type Review struct {
	Rating        float64 `json:"rating"`
	Comment       string  `json:"comment"`
	Date          string  `json:"date"`
	ReviewerName  string  `json:"reviewerName"`
	ReviewerEmail string  `json:"reviewerEmail"`
}

// Meta holds bookkeeping timestamps and codes.
type Meta struct {
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	Barcode   string `json:"barcode"`
	QRCode    string `json:"qrCode"`
}

// Product represents one inventory item.
// The json tags follow the remote catalog schema so remote payloads and
// persisted local products share one encoding.
type Product struct {
	ID                   int64      `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Category             string     `json:"category"`
	Price                float64    `json:"price"`
	DiscountPercentage   float64    `json:"discountPercentage"`
	Rating               float64    `json:"rating"`
	Stock                int        `json:"stock"`
	Tags                 []string   `json:"tags"`
	Brand                string     `json:"brand,omitempty"` // Empty means the product has no brand
	SKU                  string     `json:"sku"`
	Weight               float64    `json:"weight"`
	Dimensions           Dimensions `json:"dimensions"`
	WarrantyInformation  string     `json:"warrantyInformation"`
	ShippingInformation  string     `json:"shippingInformation"`
	AvailabilityStatus   string     `json:"availabilityStatus"`
	Reviews              []Review   `json:"reviews"`
	ReturnPolicy         string     `json:"returnPolicy"`
	MinimumOrderQuantity int        `json:"minimumOrderQuantity"`
	Meta                 Meta       `json:"meta"`
	Images               []string   `json:"images"`
	Thumbnail            string     `json:"thumbnail"`
}

// AvailabilityFor returns the availability label for a stock level.
func AvailabilityFor(stock int) string {
	if stock > 0 {
		return StatusInStock
	}
	return StatusOutOfStock
}

// ProductsPage is the envelope the remote API wraps product lists in.
type ProductsPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// ProductInput is what a caller supplies to create a local product. Fields
// left empty are filled with defaults when the product is built.
type ProductInput struct {
	Title       string   `json:"title" validate:"required,min=3"`
	Description string   `json:"description" validate:"required,min=10"`
	Category    string   `json:"category" validate:"required"`
	Price       float64  `json:"price" validate:"gt=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Brand       string   `json:"brand,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Images      []string `json:"images,omitempty" validate:"omitempty,dive,url"`
	Thumbnail   string   `json:"thumbnail,omitempty" validate:"omitempty,url"`
}
