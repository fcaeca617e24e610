package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tunedeck/tunedeck/internal/playback"
)

var states = []playback.State{
	playback.StateIdle,
	playback.StateReady,
	playback.StatePlaying,
	playback.StatePaused,
	playback.StateEnded,
}

// Playback exports engine notifications as Prometheus series. Labels never
// carry track ids.
type Playback struct {
	playback.NopObserver

	attempts  prometheus.Counter
	recovered prometheus.Counter
	rebuilds  *prometheus.CounterVec
	exhausted prometheus.Counter
	creations prometheus.Counter
	state     *prometheus.GaugeVec
	buffering prometheus.Gauge
	position  prometheus.Gauge
	lastState playback.State
}

func NewPlayback(reg prometheus.Registerer) *Playback {
	f := promauto.With(reg)
	p := &Playback{
		attempts: f.NewCounter(prometheus.CounterOpts{
			Name: "tunedeck_playback_recovery_attempts_total",
			Help: "Bounded recovery attempts started by the playback engine",
		}),
		recovered: f.NewCounter(prometheus.CounterOpts{
			Name: "tunedeck_playback_recoveries_total",
			Help: "Recovery cycles that ended with the track playing",
		}),
		rebuilds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tunedeck_playback_rebuilds_total",
			Help: "Player handles destroyed and rebuilt, by reason",
		}, []string{"reason"}),
		exhausted: f.NewCounter(prometheus.CounterOpts{
			Name: "tunedeck_playback_recovery_exhausted_total",
			Help: "Recovery cycles that hit the attempt ceiling",
		}),
		creations: f.NewCounter(prometheus.CounterOpts{
			Name: "tunedeck_playback_handle_creations_total",
			Help: "Player handles created",
		}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tunedeck_playback_state",
			Help: "1 for the current session state, 0 otherwise",
		}, []string{"state"}),
		buffering: f.NewGauge(prometheus.GaugeOpts{
			Name: "tunedeck_playback_buffering",
			Help: "1 while the player reports buffering",
		}),
		position: f.NewGauge(prometheus.GaugeOpts{
			Name: "tunedeck_playback_position_seconds",
			Help: "Elapsed time of the current track",
		}),
	}
	for _, s := range states {
		p.state.WithLabelValues(s.String()).Set(0)
	}
	p.state.WithLabelValues(playback.StateIdle.String()).Set(1)
	p.lastState = playback.StateIdle
	return p
}

func (p *Playback) SessionChanged(s playback.Snapshot) {
	if s.State != p.lastState {
		p.state.WithLabelValues(p.lastState.String()).Set(0)
		p.state.WithLabelValues(s.State.String()).Set(1)
		p.lastState = s.State
	}
	if s.Buffering {
		p.buffering.Set(1)
	} else {
		p.buffering.Set(0)
	}
	p.position.Set(s.Position)
}

func (p *Playback) HandleCreated(playback.Track) {
	p.creations.Inc()
}

func (p *Playback) RecoveryAttempted(playback.Track, int) {
	p.attempts.Inc()
}

func (p *Playback) RecoverySucceeded(playback.Track, int) {
	p.recovered.Inc()
}

func (p *Playback) HandleRebuilt(_ playback.Track, reason playback.RebuildReason) {
	p.rebuilds.WithLabelValues(string(reason)).Inc()
}

func (p *Playback) RecoveryExhausted(playback.Track, int) {
	p.exhausted.Inc()
}

// Handler serves the series registered in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
