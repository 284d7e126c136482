package model

// Category is the closed set of item kinds.
type Category string

// Known categories.
const (
	CategoryStationary  Category = "Stationary"
	CategoryKitchenware Category = "Kitchenware"
	CategoryAppliance   Category = "Appliance"
)

// Icon assets per category.
const (
	IconStationary  = "ink_pen.svg"
	IconKitchenware = "flatware.svg"
	IconAppliance   = "electrical_services.svg"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{CategoryStationary, CategoryKitchenware, CategoryAppliance}
}

// ParseCategory matches s exactly against the known categories.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if !c.Valid() {
		return "", false
	}
	return c, true
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryStationary, CategoryKitchenware, CategoryAppliance:
		return true
	default:
		return false
	}
}

// Icon returns the display asset for c, or "" for an unknown category.
func (c Category) Icon() string {
	switch c {
	case CategoryStationary:
		return IconStationary
	case CategoryKitchenware:
		return IconKitchenware
	case CategoryAppliance:
		return IconAppliance
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// CategoryInfos returns the category list with icons.
func CategoryInfos() []CategoryInfo {
	cats := Categories()
	infos := make([]CategoryInfo, 0, len(cats))
	for _, c := range cats {
		infos = append(infos, CategoryInfo{Name: c, Icon: c.Icon()})
	}
	return infos
}
