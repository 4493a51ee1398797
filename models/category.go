package models

import (
	"github.com/go-playground/validator"
)

// Category is the main garment class used by outfit composition rules.
type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryShoes     Category = "shoes"
	CategoryOuterwear Category = "outerwear"
	CategoryAccessory Category = "accessory"
	CategoryLayer     Category = "layer"
	CategoryOnepiece  Category = "onepiece"
)

// Categories lists every category in prompt order.
var Categories = []Category{
	CategoryTop,
	CategoryBottom,
	CategoryShoes,
	CategoryOuterwear,
	CategoryAccessory,
	CategoryLayer,
	CategoryOnepiece,
}

func (c *Category) Scan(value interface{}) error {
	*c = Category(value.(string))
	return nil
}

func (c Category) Value() (string, error) {
	return string(c), nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryTop, CategoryBottom, CategoryShoes, CategoryOuterwear,
		CategoryAccessory, CategoryLayer, CategoryOnepiece:
		return true
	}
	return false
}

func ValidateCategory(fl validator.FieldLevel) bool {
	return Category(fl.Field().String()).Valid()
}

func ValidateCategoryRaw(value string) bool {
	return Category(value).Valid()
}
