package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "drive_mirror_cache_lookups_total",
	Help: "File cache lookups by result.",
}, []string{"result"})
