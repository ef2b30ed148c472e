package query

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"inventory-service/internal/domain"
)

// Messages shown for rejected create-form fields, keyed by json name and tag.
var createMessages = map[string]map[string]string{
	"title": {
		"required": "Product name is required",
		"min":      "Product name must be at least 3 characters",
	},
	"description": {
		"required": "Description is required",
		"min":      "Description must be at least 10 characters",
	},
	"category": {
		"required": "Category is required",
	},
	"price": {
		"gt": "Price must be greater than 0",
	},
	"stock": {
		"gte": "Stock must be a non-negative integer",
	},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizeInput trims the free-text fields of a create request.
func normalizeInput(in domain.ProductInput) domain.ProductInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Thumbnail = strings.TrimSpace(in.Thumbnail)
	return in
}

func (s *Service) validateInput(in domain.ProductInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
			return newValidationError("price", createMessages["price"]["gt"])
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out.Fields[field]; seen {
			continue
		}
		msg, ok := createMessages[field][fe.Tag()]
		if !ok {
			msg = "Invalid value for " + field
		}
		out.Fields[field] = msg
	}
	return out
}

// editValue checks value against the type and range of field and returns the
// value to persist. Numeric fields also accept numeric strings.
func editValue(field domain.EditField, value any) (any, error) {
	switch field {
	case domain.EditFieldTitle:
		title, ok := value.(string)
		if !ok || strings.TrimSpace(title) == "" {
			return nil, newValidationError("title", "Product name cannot be empty.")
		}
		return strings.TrimSpace(title), nil

	case domain.EditFieldPrice:
		price, ok := number(value)
		if !ok || price < 0 {
			return nil, newValidationError("price", "Price must be a non-negative number.")
		}
		return price, nil

	case domain.EditFieldStock:
		f, ok := number(value)
		if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
			return nil, newValidationError("stock", "Stock must be a non-negative integer.")
		}
		return int(f), nil
	}
	return nil, newValidationError("field", "Field must be one of title, price, stock.")
}

func number(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
