package observability

import "testing"

// NewMetrics registers against the process-wide default registry, so a
// second call within the same test binary would panic on duplicate
// registration. Both checks below share one Metrics instance for that
// reason.
func TestMetricsInitializedAndRecordsObservations(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if m.BuildVectorsAdded == nil {
		t.Error("BuildVectorsAdded not initialized")
	}
	if m.BuildClusterSplits == nil {
		t.Error("BuildClusterSplits not initialized")
	}
	if m.SearchLatency == nil {
		t.Error("SearchLatency not initialized")
	}
	if m.SearchCandidatesExamined == nil {
		t.Error("SearchCandidatesExamined not initialized")
	}
	if m.SearchResultsPadded == nil {
		t.Error("SearchResultsPadded not initialized")
	}
	if m.IndexMemoryBytes == nil {
		t.Error("IndexMemoryBytes not initialized")
	}

	m.BuildVectorsAdded.Add(100)
	m.BuildClusterSplits.Inc()
	m.SearchLatency.Observe(0.002)
	m.SearchCandidatesExamined.Observe(4200)
	m.SearchResultsPadded.Inc()
	m.IndexMemoryBytes.Set(1 << 20)
}
