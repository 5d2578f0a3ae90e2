package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency     = metric.NewHistogram("1m1s")
	HandlerLatency      = metric.NewHistogram("1m1s")
	FloodFanout         = metric.NewHistogram("10s1s")
	HellosSent          = metric.NewCounter("10s1s")
	UpdatesSent         = metric.NewCounter("10s1s")
	UpdatesRelayed      = metric.NewCounter("10s1s")
	StaleLsas           = metric.NewCounter("10s1s")
	SentPacketPerSecond = metric.NewCounter("10s1s")
	RecvPacketPerSecond = metric.NewCounter("10s1s")
	SentBytesPerSecond  = metric.NewCounter("10s1s")
	RecvBytesPerSecond  = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("sospf:FloodFanout", FloodFanout)
	expvar.Publish("sospf:Hellos/s", HellosSent)
	expvar.Publish("sospf:Updates/s", UpdatesSent)
	expvar.Publish("sospf:Relayed/s", UpdatesRelayed)
	expvar.Publish("sospf:StaleLsas/s", StaleLsas)

	expvar.Publish("sospf:SentPacket/s", SentPacketPerSecond)
	expvar.Publish("sospf:RecvPacket/s", RecvPacketPerSecond)
	expvar.Publish("sospf:SentBytes/s", SentBytesPerSecond)
	expvar.Publish("sospf:RecvBytes/s", RecvBytesPerSecond)
	expvar.Publish("sospf:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("sospf:HandlerLatency (µs)", HandlerLatency)
}
