package tracker

import "math"

const unassigned = -1

// distanceScore implements the §4.3.2 piecewise distance score: 1.0 inside
// distanceThresh, linearly decaying to 0.5 by 2*distanceThresh, then
// exponential decay beyond that. Continuous at d=D (value 1, from the left)
// and at d=2D (value 0.5, matching both the linear and exponential
// branches).
func distanceScore(d, distanceThresh float64) float64 {
	D := distanceThresh
	switch {
	case d < D:
		return 1
	case d < 2*D:
		return 1.5 - d/(2*D)
	default:
		return 0.5 * math.Exp(2-d/D)
	}
}

// featureScore implements the §4.3.2 cosine-similarity feature score,
// rescaled from [-1,1] to [0,1]. Vectors of different dimension are a
// programming error and panic.
func featureScore(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("tracker: featureScore: feature vectors differ in dimension")
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0.5 // cos undefined; treat as neutral
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return (cos + 1) / 2
}

// matchWeights bundles the scoring configuration §4.3.2 needs.
type matchWeights struct {
	distanceWeight float64
	featureWeight  float64
	distanceThresh float64
}

// cost computes the (track, robot) utility for one pair: 0 if the robot is
// neither located nor detected, otherwise the weighted sum of the distance
// and feature scores. Higher is better.
func (w matchWeights) cost(located bool, detected bool, distance float64, trackFeature, robotFeature []float64) float64 {
	if !located && !detected {
		return 0
	}
	sd := 0.0
	if located {
		sd = distanceScore(distance, w.distanceThresh)
	}
	sf := featureScore(robotFeature, trackFeature)
	return w.distanceWeight*sd + w.featureWeight*sf
}

// assign solves the max-utility one-to-one assignment between nTracks and
// nRobots given a dense utility matrix (row = track, col = robot), capped at
// maxIter iterations. It returns, for each track row, the matched robot
// column index or unassigned.
//
// Implemented as an iteration-capped Hungarian/Jonker-Volgenant-style
// min-cost solve on the negated utility matrix (so "max utility" becomes
// "min cost"), using successive-shortest-augmenting-path with potentials —
// the spec treats the auction algorithm and Hungarian/Jonker-Volgenant as
// equally valid substitutes as long as the iteration cap and partial-match
// behavior are honored.
func assign(utility [][]float64, maxIter int) []int {
	nTracks := len(utility)
	if nTracks == 0 {
		return nil
	}
	nRobots := len(utility[0])

	n := nTracks
	if nRobots > n {
		n = nRobots
	}

	const inf = 1e18
	cost := make([][]float64, n+1)
	for i := range cost {
		cost[i] = make([]float64, n+1)
	}
	for i := 0; i < nTracks; i++ {
		for j := 0; j < nRobots; j++ {
			cost[i+1][j+1] = -utility[i][j]
		}
		for j := nRobots; j < n; j++ {
			cost[i+1][j+1] = inf
		}
	}
	for i := nTracks; i < n; i++ {
		for j := 0; j <= n; j++ {
			cost[i+1][j] = inf
		}
	}

	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	iter := 0
	for i := 1; i <= n && iter < maxIter; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}

		for {
			iter++
			if iter >= maxIter {
				break
			}
			used[j0] = true
			i0, delta, j1 := p[j0], math.Inf(1), -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0][j] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta, j1 = minv[j], j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 || j1 == -1 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	result := make([]int, nTracks)
	for i := range result {
		result[i] = unassigned
	}
	for j := 1; j <= n; j++ {
		track := p[j] - 1
		robotCol := j - 1
		if track >= 0 && track < nTracks && robotCol < nRobots && cost[p[j]][j] < inf {
			result[track] = robotCol
		}
	}
	return result
}
