package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MLedgerPartialFailures   MetricKey = "ledger_partial_failures_total"
	MStockDepleted           MetricKey = "inventory_stock_depleted_total"
)

// MetricSpec describes how an instrument is registered with the metrics backend.
type MetricSpec struct {
	Key     MetricKey
	Help    string
	Labels  []string
	Buckets []float64
}

// Counters lists every counter the service emits.
var Counters = []MetricSpec{
	{Key: MUsecaseRequests, Help: "Total number of use case invocations.", Labels: []string{"use_case", "outcome"}},
	{Key: MHTTPRequests, Help: "Total number of HTTP requests.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequests, Help: "Calls made to external peers (stores, brokers, caches).", Labels: []string{"peer", "endpoint", "outcome"}},
	{Key: MLedgerPartialFailures, Help: "Purchases whose stock was debited but whose order was not recorded.", Labels: []string{"reason"}},
	{Key: MStockDepleted, Help: "Food items whose stock reached zero through a purchase.", Labels: []string{"category"}},
}

// Histograms lists every histogram the service emits. Nil buckets mean backend defaults.
var Histograms = []MetricSpec{
	{Key: MUsecaseDuration, Help: "Duration of use case execution in seconds.", Labels: []string{"use_case"}},
	{Key: MHTTPRequestDuration, Help: "Duration of HTTP requests in seconds.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequestDuration, Help: "Duration of external calls in seconds.", Labels: []string{"peer", "endpoint"}},
}
