package dataref

import "github.com/prometheus/client_golang/prometheus"

var (
	handlesOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataref_file_handles_opened_total",
		Help: "Total number of file handles opened.",
	})
	handlesClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataref_file_handles_closed_total",
		Help: "Total number of file handles closed by their last release.",
	})
	openHandles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dataref_file_handles_open",
		Help: "Number of file handles currently open.",
	})
	filesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataref_files_deleted_total",
		Help: "Total number of files removed on the last release of a handle marked for deletion.",
	})
	bytesTransferred = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataref_bytes_transferred_total",
		Help: "Total number of bytes moved between files, by transfer method.",
	}, []string{"method"})
	shortTransfers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataref_short_transfers_total",
		Help: "Total number of transfers or streaming passes that moved fewer bytes than requested.",
	})
)

// Collectors are the package's metrics.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		handlesOpened,
		handlesClosed,
		openHandles,
		filesDeleted,
		bytesTransferred,
		shortTransfers,
	}
}

// RegisterMetrics registers the package's metrics with reg.
// Registering more than once is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
