package live

import "github.com/prometheus/client_golang/prometheus"

var (
	chunksAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_chunks_appended_total",
		Help: "Chunks admitted by live sources in this process.",
	})
	munrosSigned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_munros_signed_total",
		Help: "Epoch munros signed by live sources.",
	})
	treePrunes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_tree_prunes_total",
		Help: "Subtrees pruned after falling outside the discard window.",
	})
)

func init() {
	prometheus.MustRegister(chunksAppended, munrosSigned, treePrunes)
}
