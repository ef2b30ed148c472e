package processor

import (
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"inventory-service/internal/domain"
)

// Defaults for fields a created product does not supply.
const (
	DefaultBrand        = "Custom"
	DefaultWarranty     = "No warranty"
	DefaultShipping     = "Standard shipping"
	DefaultReturnPolicy = "No returns"
	PlaceholderImageURL = "https://via.placeholder.com/300x300/e5e7eb/6b7280?text="
	defaultWeight       = 1
	defaultDimension    = 10
	defaultMinimumOrder = 1
	idJitter            = 1000
)

// NewProduct builds a complete local product from input. The id is the
// current time in milliseconds plus a random offset, bumped until it collides
// with none of existingIDs.
func NewProduct(input domain.ProductInput, existingIDs map[int64]struct{}, now time.Time) domain.Product {
	id := now.UnixMilli() + rand.Int64N(idJitter)
	for {
		if _, taken := existingIDs[id]; !taken {
			break
		}
		id++
	}
	idStr := strconv.FormatInt(id, 10)
	stamp := now.UTC().Format("2006-01-02T15:04:05.000Z07:00")

	brand := strings.TrimSpace(input.Brand)
	if brand == "" {
		brand = DefaultBrand
	}
	tags := append([]string{}, input.Tags...)
	images := append([]string{}, input.Images...)
	if len(images) == 0 {
		images = []string{placeholderImage(input.Title)}
	}

	return domain.Product{
		ID:                   id,
		Title:                input.Title,
		Description:          input.Description,
		Category:             input.Category,
		Price:                input.Price,
		Stock:                input.Stock,
		Tags:                 tags,
		Brand:                brand,
		SKU:                  "CUSTOM-" + idStr,
		Weight:               defaultWeight,
		Dimensions:           domain.Dimensions{Width: defaultDimension, Height: defaultDimension, Depth: defaultDimension},
		WarrantyInformation:  DefaultWarranty,
		ShippingInformation:  DefaultShipping,
		AvailabilityStatus:   domain.AvailabilityFor(input.Stock),
		Reviews:              []domain.Review{},
		ReturnPolicy:         DefaultReturnPolicy,
		MinimumOrderQuantity: defaultMinimumOrder,
		Meta: domain.Meta{
			CreatedAt: stamp,
			UpdatedAt: stamp,
			Barcode:   idStr,
			QRCode:    "qr-" + idStr,
		},
		Images:    images,
		Thumbnail: input.Thumbnail,
	}
}

func placeholderImage(title string) string {
	r, size := utf8.DecodeRuneInString(strings.TrimSpace(title))
	if size == 0 || r == utf8.RuneError {
		return PlaceholderImageURL
	}
	return PlaceholderImageURL + url.QueryEscape(string(r))
}
