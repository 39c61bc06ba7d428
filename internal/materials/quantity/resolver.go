package quantity

import (
	"strings"

	"materials-viewer/internal/materials/models"
)

// ============================================================
// Quantity Resolver
// ============================================================

// QuantitySetPrefix marks property sets that carry base quantities.
const QuantitySetPrefix = "Qto_"

// AreaFieldOrder is the authoritative search order for area fields inside
// a quantity set. Models routinely carry several redundant area sources;
// the first present value wins.
var AreaFieldOrder = []string{
	"NetSurfaceArea",
	"GrossSurfaceArea",
	"NetArea",
	"GrossArea",
	"NetSideArea",
	"GrossSideArea",
	"NetFloorArea",
	"GrossFloorArea",
	"Area",
	"OuterSurfaceArea",
}

// VolumeFieldOrder is the authoritative search order for volume fields.
var VolumeFieldOrder = []string{
	"NetVolume",
	"GrossVolume",
}

// Resolve extracts an area and a volume from one element's property bag.
// Direct quantities are searched first, then Qto_* sets in manifest order
// with the field orders above. A nil return means the quantity is unknown,
// which is distinct from a present zero. Resolve never fails.
func Resolve(bag models.PropertyBag) (area, volume *float64) {
	for _, q := range bag.Direct {
		v := q.Value
		switch q.Kind {
		case models.KindArea:
			if area == nil {
				area = &v
			}
		case models.KindVolume:
			if volume == nil {
				volume = &v
			}
		}
	}

	if area != nil && volume != nil {
		return area, volume
	}

	for _, set := range bag.Sets {
		if !strings.HasPrefix(set.Name, QuantitySetPrefix) {
			continue
		}
		if area == nil {
			area = firstField(set.Fields, AreaFieldOrder)
		}
		if volume == nil {
			volume = firstField(set.Fields, VolumeFieldOrder)
		}
		if area != nil && volume != nil {
			break
		}
	}

	return area, volume
}

func firstField(fields map[string]float64, order []string) *float64 {
	for _, name := range order {
		if v, ok := fields[name]; ok {
			value := v
			return &value
		}
	}
	return nil
}
