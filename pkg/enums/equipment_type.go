package enums

import (
	"fmt"
	"strings"
)

// EquipmentType is the appliance family a request concerns. Technician
// specialties use the same vocabulary.
type EquipmentType string

const (
	EquipmentTypeWasher          EquipmentType = "Lavadora"
	EquipmentTypeFridge          EquipmentType = "Nevera"
	EquipmentTypeLargeFridge     EquipmentType = "Nevecón"
	EquipmentTypeOven            EquipmentType = "Horno"
	EquipmentTypeStove           EquipmentType = "Estufa"
	EquipmentTypeAirConditioning EquipmentType = "Aire Acondicionado"
	EquipmentTypeDryer           EquipmentType = "Secadora"
	EquipmentTypeDishwasher      EquipmentType = "Lavavajillas"
)

var validEquipmentTypes = []EquipmentType{
	EquipmentTypeWasher,
	EquipmentTypeFridge,
	EquipmentTypeLargeFridge,
	EquipmentTypeOven,
	EquipmentTypeStove,
	EquipmentTypeAirConditioning,
	EquipmentTypeDryer,
	EquipmentTypeDishwasher,
}

func (e EquipmentType) String() string {
	return string(e)
}

// ParseEquipmentType matches case-insensitively against the known vocabulary.
func ParseEquipmentType(value string) (EquipmentType, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validEquipmentTypes {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid equipment type %q", value)
}
