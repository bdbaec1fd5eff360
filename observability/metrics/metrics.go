package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics tracks marketplace activity for the /metrics endpoint.
type MarketMetrics struct {
	Listings          prometheus.Counter
	Sales             prometheus.Counter
	ListingsCancelled prometheus.Counter
	Auctions          prometheus.Counter
	Bids              prometheus.Counter
	AuctionsFinished  prometheus.Counter
	AuctionsCancelled prometheus.Counter
	RPCErrors         *prometheus.CounterVec
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the lazily-initialised marketplace metrics, registered with
// the default Prometheus registry.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			Listings: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "listings_total",
				Help:      "Total fixed-price listings created.",
			}),
			Sales: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "sales_total",
				Help:      "Total fixed-price purchases settled.",
			}),
			ListingsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "listings_cancelled_total",
				Help:      "Total fixed-price listings cancelled by their seller.",
			}),
			Auctions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "auctions_total",
				Help:      "Total auctions opened.",
			}),
			Bids: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "bids_total",
				Help:      "Total accepted bids.",
			}),
			AuctionsFinished: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "auctions_finished_total",
				Help:      "Total auctions settled after their window elapsed.",
			}),
			AuctionsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "auctions_cancelled_total",
				Help:      "Total auctions cancelled by their seller.",
			}),
			RPCErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "rpc_errors_total",
				Help:      "Total JSON-RPC errors segmented by method.",
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			marketRegistry.Listings,
			marketRegistry.Sales,
			marketRegistry.ListingsCancelled,
			marketRegistry.Auctions,
			marketRegistry.Bids,
			marketRegistry.AuctionsFinished,
			marketRegistry.AuctionsCancelled,
			marketRegistry.RPCErrors,
		)
	})
	return marketRegistry
}
