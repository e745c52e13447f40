package model

import (
	"fmt"
	"strconv"
)

// AudioDevice is one output endpoint seen during a single enumeration pass.
type AudioDevice struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Card        string `json:"card"`
	Index       string `json:"index"`
	Virtual     bool   `json:"virtual"`
}

// VirtualDevices are software endpoints that exist regardless of hardware.
func VirtualDevices() []AudioDevice {
	return []AudioDevice{
		{ID: NullDevice, DisplayName: "Null Audio Device (Silent)", Card: "null", Index: "0", Virtual: true},
		{ID: DefaultDevice, DisplayName: "Default Audio Device", Card: "0", Index: "0", Virtual: true},
		{ID: "dmix", DisplayName: "Software Mixing Device", Card: "dmix", Index: "0", Virtual: true},
	}
}

// IsVirtualDevice reports devices without a hardware mixer.
func IsVirtualDevice(device string) bool {
	switch device {
	case NullDevice, DefaultDevice, "dmix", "pulse":
		return true
	}
	return false
}

func toString(v any) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(v)
	}
}
