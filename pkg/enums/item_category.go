package enums

import "fmt"

// ItemCategory groups catalog items for browsing.
type ItemCategory string

const (
	ItemCategoryElectronics ItemCategory = "Electronics"
	ItemCategoryFashion     ItemCategory = "Fashion"
	ItemCategoryHome        ItemCategory = "Home"
	ItemCategorySports      ItemCategory = "Sports"
	ItemCategoryBooks       ItemCategory = "Books"
	ItemCategoryBeauty      ItemCategory = "Beauty"
	ItemCategoryToys        ItemCategory = "Toys"
	ItemCategoryHealth      ItemCategory = "Health"
)

var validItemCategories = []ItemCategory{
	ItemCategoryElectronics,
	ItemCategoryFashion,
	ItemCategoryHome,
	ItemCategorySports,
	ItemCategoryBooks,
	ItemCategoryBeauty,
	ItemCategoryToys,
	ItemCategoryHealth,
}

// String implements fmt.Stringer.
func (c ItemCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ItemCategory.
func (c ItemCategory) IsValid() bool {
	for _, candidate := range validItemCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseItemCategory converts raw input into an ItemCategory.
func ParseItemCategory(value string) (ItemCategory, error) {
	for _, candidate := range validItemCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item category %q", value)
}
