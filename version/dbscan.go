// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package version

// Noise is the DBSCAN label of points in no cluster
const Noise = -1

// DBSCAN clusters points by density. A point with at least
// minSamples points, itself included, within eps is a core point;
// clusters are the points reachable from core points. Labels
// count up from 0 in the order clusters are found, and points in
// no cluster are labelled Noise.
func DBSCAN(points []Vector, eps float64, minSamples int) []int {
	neighbours := make([][]int, len(points))
	for i := range points {
		for j := range points {
			if Distance(points[i], points[j]) <= eps {
				neighbours[i] = append(neighbours[i], j)
			}
		}
	}

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = Noise
	}

	cluster := 0
	for i := range points {
		if labels[i] != Noise || len(neighbours[i]) < minSamples {
			continue
		}
		labels[i] = cluster
		queue := []int{i}
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if len(neighbours[p]) < minSamples {
				continue
			}
			for _, q := range neighbours[p] {
				if labels[q] != Noise {
					continue
				}
				labels[q] = cluster
				queue = append(queue, q)
			}
		}
		cluster++
	}
	return labels
}
