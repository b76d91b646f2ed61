package audiocapture

import (
	"sort"
	"strings"
)

// Keyword heuristics for telling real microphones apart from the monitor
// sources, HDMI sinks and virtual aggregators PortAudio also reports.
var (
	micPositive = []string{
		"mic", "input", "line", "scarlett", "focusrite", "rode", "blue",
		"shure", "at2020", "yeti", "snowball", "usb audio", "headset",
	}

	micNegative = []string{
		"monitor", "output", "hdmi", "displayport", "speaker", "headphone",
		"spdif", "front", "surround", "iec958", "dmix", "split", "rear",
	}

	virtualDevices = map[string]bool{
		"sysdefault": true,
		"pipewire":   true,
		"default":    true,
		"pulse":      true,
		"null":       true,
	}
)

// filterMicrophones keeps input devices that look like actual microphones
// and sorts hardware devices first.
func filterMicrophones(devs []Device) []Device {
	var out []Device
	for _, d := range devs {
		if d.Channels <= 0 {
			continue
		}
		name := strings.ToLower(d.Name)
		if virtualDevices[name] {
			continue
		}
		if containsAny(name, micNegative) {
			continue
		}
		// High channel counts are virtual aggregators.
		if d.Channels > 8 {
			continue
		}
		if strings.Contains(d.Name, "(hw:") || containsAny(name, micPositive) {
			out = append(out, d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		hi, hj := strings.Contains(out[i].Name, "(hw:"), strings.Contains(out[j].Name, "(hw:")
		if hi != hj {
			return hi
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// pickDefault selects a device when no name is configured: the first
// microphone after filtering, or the first raw input if the heuristics
// leave nothing.
func pickDefault(devs []Device) Device {
	if mics := filterMicrophones(devs); len(mics) > 0 {
		return mics[0]
	}
	return devs[0]
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
