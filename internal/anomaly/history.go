// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package anomaly

import "github.com/azzuwayed/serversentry/internal/history"

// DetectFromHistory classifies the most recently recorded point of key
// against the points preceding it. It is the seam between the History
// Store's recording order (spec.md §5 data flow: a Reading is recorded
// before it is classified) and Detect's pure contract (a baseline that
// excludes the value under test): it fetches one extra point and splits
// the tail off as value.
func DetectFromHistory(h *history.Store, key history.SeriesKey, cfg Config) Verdict {
	points := h.Window(key, cfg.Window+1)
	if len(points) == 0 {
		return Verdict{}
	}
	value := points[len(points)-1].Value
	prior := points[:len(points)-1]

	priorValues := make([]float64, len(prior))
	for i, p := range prior {
		priorValues[i] = p.Value
	}
	return Detect(priorValues, value, cfg)
}
