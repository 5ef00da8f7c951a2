// utils/cluster.go
package utils

import "github.com/jobatlas/jobatlas_backend/models"

// Cluster label for points not reachable from any dense region, and for all
// points when the input is too small to cluster.
const (
	ClusterNoise      = -1
	ClusterUnassigned = -2 // internal: not yet visited
	DefaultClusterEps = 0.1
	DefaultMinSamples = 2
)

// ClusterJobs runs density-based clustering (DBSCAN) over the postings'
// (lat, lng) pairs and returns one cluster id per posting, in input order.
// The neighborhood radius eps is in degree space, not geodesic distance - an
// approximation that matches how the dashboard draws clusters. Fewer than 2
// postings pass through with every id set to the noise sentinel. Cluster ids
// are stable only within a single call and must not be persisted.
func ClusterJobs(jobs []models.JobPosting, eps float64, minSamples int) []int {
	labels := make([]int, len(jobs))
	if len(jobs) < 2 {
		for i := range labels {
			labels[i] = ClusterNoise
		}
		return labels
	}

	for i := range labels {
		labels[i] = ClusterUnassigned
	}

	nextCluster := 0
	for i := range jobs {
		if labels[i] != ClusterUnassigned {
			continue
		}
		neighbors := regionQuery(jobs, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = ClusterNoise
			continue
		}
		labels[i] = nextCluster
		expandCluster(jobs, labels, neighbors, nextCluster, eps, minSamples)
		nextCluster++
	}

	return labels
}

// expandCluster grows a cluster from a core point's neighborhood, absorbing
// noise points that turn out to be density-reachable.
func expandCluster(jobs []models.JobPosting, labels, seeds []int, cluster int, eps float64, minSamples int) {
	for k := 0; k < len(seeds); k++ {
		idx := seeds[k]
		if labels[idx] == ClusterNoise {
			labels[idx] = cluster
		}
		if labels[idx] != ClusterUnassigned {
			continue
		}
		labels[idx] = cluster
		neighbors := regionQuery(jobs, idx, eps)
		if len(neighbors) >= minSamples {
			seeds = append(seeds, neighbors...)
		}
	}
}

// regionQuery returns the indexes of every posting within eps degrees of
// jobs[i], including i itself.
func regionQuery(jobs []models.JobPosting, i int, eps float64) []int {
	var neighbors []int
	for j := range jobs {
		dlat := jobs[i].Lat() - jobs[j].Lat()
		dlng := jobs[i].Lng() - jobs[j].Lng()
		if dlat*dlat+dlng*dlng <= eps*eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
