package api

import (
	"sort"
	"sync"
	"time"
)

// RequestTrace is the timing of a single request
type RequestTrace struct {
	RequestID string        `json:"requestId"`
	Method    string        `json:"method"`
	Route     string        `json:"route"`
	Status    int           `json:"status"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
}

// RouteMetrics aggregates the traces of one route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Route       string        `json:"route"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"-"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	LastRequest time.Time     `json:"lastRequest"`
}

// Summary is the process wide view served to the back office
type Summary struct {
	Since         time.Time      `json:"since"`
	TotalRequests int64          `json:"totalRequests"`
	TotalErrors   int64          `json:"totalErrors"`
	Slowest       []RouteMetrics `json:"slowest"`
}

// Metrics collects request traces in the background. Recording never blocks:
// when the queue is full the trace is dropped.
type Metrics struct {
	mu            sync.RWMutex
	routes        map[string]*RouteMetrics
	since         time.Time
	totalRequests int64
	totalErrors   int64

	traces chan RequestTrace
	stop   chan struct{}
	once   sync.Once
}

// NewMetrics starts a collector with room for queueSize pending traces
func NewMetrics(queueSize int) *Metrics {
	if queueSize <= 0 {
		queueSize = 1000
	}
	m := &Metrics{
		routes: map[string]*RouteMetrics{},
		since:  time.Now(),
		traces: make(chan RequestTrace, queueSize),
		stop:   make(chan struct{}),
	}
	go m.process()
	return m
}

// Record queues a trace
func (m *Metrics) Record(t RequestTrace) {
	select {
	case m.traces <- t:
	default:
	}
}

// Stop ends background processing
func (m *Metrics) Stop() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Metrics) process() {
	for {
		select {
		case t := <-m.traces:
			m.add(t)
		case <-m.stop:
			return
		}
	}
}

func (m *Metrics) add(t RequestTrace) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := t.Method + " " + t.Route
	rm, ok := m.routes[key]
	if !ok {
		rm = &RouteMetrics{Method: t.Method, Route: t.Route, MinTime: t.Duration}
		m.routes[key] = rm
	}
	rm.Count++
	rm.TotalTime += t.Duration
	rm.AvgTime = rm.TotalTime / time.Duration(rm.Count)
	rm.LastRequest = t.StartTime
	if t.Duration < rm.MinTime {
		rm.MinTime = t.Duration
	}
	if t.Duration > rm.MaxTime {
		rm.MaxTime = t.Duration
	}
	m.totalRequests++
	if t.Status >= 400 {
		rm.ErrorCount++
		m.totalErrors++
	}
}

// Routes returns a copy of every route's metrics, slowest average first
func (m *Metrics) Routes() []RouteMetrics {
	m.mu.RLock()
	out := make([]RouteMetrics, 0, len(m.routes))
	for _, rm := range m.routes {
		out = append(out, *rm)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgTime != out[j].AvgTime {
			return out[i].AvgTime > out[j].AvgTime
		}
		return out[i].Method+out[i].Route < out[j].Method+out[j].Route
	})
	return out
}

// Summary reports the totals and the limit slowest routes
func (m *Metrics) Summary(limit int) Summary {
	routes := m.Routes()
	if limit > 0 && len(routes) > limit {
		routes = routes[:limit]
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Summary{
		Since:         m.since,
		TotalRequests: m.totalRequests,
		TotalErrors:   m.totalErrors,
		Slowest:       routes,
	}
}
