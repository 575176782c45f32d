package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var remoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "drive_mirror_remote_requests_total",
	Help: "Remote Drive API calls by operation and outcome.",
}, []string{"op", "outcome"})
