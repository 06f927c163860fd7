package bids

import (
	"encoding/json"
	"os"
	"strings"
)

// boldSidecar carries the only sidecar field this tool needs.
type boldSidecar struct {
	RepetitionTime float64 `json:"RepetitionTime"`
}

// sidecarPath maps an imaging file to its JSON sidecar.
func sidecarPath(imagePath string) string {
	e := ParseEntities(imagePath)
	return strings.TrimSuffix(imagePath, e.Ext) + ".json"
}

// readRepetitionTime returns the RepetitionTime from the first readable
// sidecar among candidates, walking the BIDS inheritance chain the caller
// assembled. Zero means no sidecar declared it; the builder falls back to
// the NIfTI header.
func readRepetitionTime(candidates ...string) float64 {
	for _, path := range candidates {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var sidecar boldSidecar
		if err := json.Unmarshal(data, &sidecar); err != nil {
			continue
		}
		if sidecar.RepetitionTime > 0 {
			return sidecar.RepetitionTime
		}
	}
	return 0
}
