package metrics

// HTTPDurationBuckets defines latency buckets for HTTP request duration metrics.
var HTTPDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// QueryDurationBuckets covers result-backend round trips, which can include a full key scan.
var QueryDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// ResultCountBuckets buckets the number of task results returned by a query.
var ResultCountBuckets = []float64{0, 1, 5, 10, 50, 100, 250, 500, 1000}
