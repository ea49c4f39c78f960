package types

import "fmt"

// DistanceMetric is the vector distance used by the store
type DistanceMetric string

const (
	DistanceEuclidean  DistanceMetric = "EUCLIDEAN"
	DistanceCosine     DistanceMetric = "COSINE"
	DistanceDotProduct DistanceMetric = "DOT_PRODUCT"
)

// IsValid checks if the metric is valid
func (m DistanceMetric) IsValid() bool {
	switch m {
	case DistanceEuclidean, DistanceCosine, DistanceDotProduct:
		return true
	default:
		return false
	}
}

func (m DistanceMetric) String() string {
	return string(m)
}

// Relevance maps a distance to [0, 1]. The mapping is monotonic decreasing: a smaller distance
// never yields a lower score. Cosine and dot product distances are expected in [0, 2].
func (m DistanceMetric) Relevance(distance float64) float64 {
	var score float64
	switch m {
	case DistanceCosine, DistanceDotProduct:
		score = 1 - distance/2
	default:
		if distance < 0 {
			distance = 0
		}
		score = 1 / (1 + distance)
	}
	return min(max(score, 0), 1)
}

// ParseDistanceMetric parses a metric name
func ParseDistanceMetric(s string) (DistanceMetric, error) {
	m := DistanceMetric(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid distance metric: %s", s)
	}
	return m, nil
}
