package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"onion-watch/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------

const (
	HistoryPoints  = 60
	historySpacing = time.Minute

	minThreats = 3
	maxThreats = 5
	topTalkers = 5
)

// -----------------------------------------------------------------------------

type protocolLabel struct {
	name  string
	color string
}

var protocols = []protocolLabel{
	{"HTTPS", "#4caf50"},
	{"Tor", "#7e57c2"},
	{"SSH", "#2196f3"},
	{"DNS", "#ff9800"},
	{"Other", "#9e9e9e"},
}

var countries = []string{
	"Germany", "United States", "Netherlands", "France", "Sweden",
	"Switzerland", "Canada", "Finland", "Romania", "Japan",
}

var deviceCategories = []string{"desktop", "mobile", "server", "iot"}

var threatTypes = []string{
	"DDoS", "Port Scan", "Brute Force", "Malware C2", "Exit Node Abuse", "Sybil Relay",
}

var severities = []string{"low", "medium", "high", "critical"}

// -----------------------------------------------------------------------------
// Generator produces synthetic traffic snapshots.
// It holds no mutable state; every method is safe for concurrent use.
// -----------------------------------------------------------------------------

type Generator struct {
	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// -----------------------------------------------------------------------------

// Snapshot returns one freshly generated metrics sample
func (g *Generator) Snapshot() models.MTrafficSnapshot {
	now := g.now()

	return models.MTrafficSnapshot{
		ID:                uuid.NewString(),
		Timestamp:         now,
		TotalRequests:     between(10000, 60000),
		ActiveConnections: between(500, 2500),
		Bandwidth:         round2(1 + rand.Float64()*5),
		PacketLoss:        round2(rand.Float64() * 0.99),
		ResponseTime:      between(20, 70),
		ThreatsBlocked:    rand.IntN(50),
		EncryptedTraffic:  round1(85 + rand.Float64()*14.9),
		Protocols:         g.Protocols(),
		TopCountries:      g.topTalkers(topTalkers),
		Threats:           g.Threats(between(minThreats, maxThreats)),
		DeviceTypes:       g.deviceTypes(),
	}
}

// -----------------------------------------------------------------------------

// History returns HistoryPoints minute-spaced samples, oldest first
func (g *Generator) History() []models.MHistoryPoint {
	now := g.now().Truncate(historySpacing)
	points := make([]models.MHistoryPoint, HistoryPoints)

	for i := range points {
		at := now.Add(-time.Duration(HistoryPoints-1-i) * historySpacing)
		points[i] = models.MHistoryPoint{
			Time:        at.Format("15:04"),
			Traffic:     between(1000, 6000),
			Connections: between(500, 2500),
			Threats:     rand.IntN(20),
		}
	}
	return points
}

// -----------------------------------------------------------------------------

// Threats returns n threat records detected within the last hour
func (g *Generator) Threats(n int) []models.MThreat {
	if n < 0 {
		n = 0
	}
	now := g.now()
	threats := make([]models.MThreat, n)

	for i := range threats {
		threats[i] = models.MThreat{
			ID:         uuid.NewString(),
			Type:       pick(threatTypes),
			Severity:   pick(severities),
			Source:     randomIPv4(),
			DetectedAt: now.Add(-time.Duration(rand.IntN(3600)) * time.Second),
		}
	}
	return threats
}

// -----------------------------------------------------------------------------

// Countries returns traffic for every known country, heaviest first
func (g *Generator) Countries() []models.MTopTalker {
	return g.topTalkers(len(countries))
}

// -----------------------------------------------------------------------------

// Protocols returns the protocol distribution; percentages sum to exactly 100
func (g *Generator) Protocols() []models.MProtocolShare {
	weights := make([]float64, len(protocols))
	for i := range weights {
		weights[i] = 1 + rand.Float64()*99
	}
	shares := Normalize(weights)

	out := make([]models.MProtocolShare, len(protocols))
	for i, p := range protocols {
		out[i] = models.MProtocolShare{Name: p.name, Percentage: shares[i], Color: p.color}
	}
	return out
}

// -----------------------------------------------------------------------------

// Normalize scales weights to integer percentages summing to 100.
// The rounding residual is carried by the largest entry.
func Normalize(weights []float64) []int {
	out := make([]int, len(weights))
	if len(weights) == 0 {
		return out
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		out[0] = 100
		return out
	}

	sum, largest := 0, 0
	for i, w := range weights {
		out[i] = int(math.Round(w / total * 100))
		sum += out[i]
		if w > weights[largest] {
			largest = i
		}
	}
	out[largest] += 100 - sum
	return out
}

// -----------------------------------------------------------------------------

func (g *Generator) topTalkers(n int) []models.MTopTalker {
	if n > len(countries) {
		n = len(countries)
	}
	order := rand.Perm(len(countries))[:n]

	talkers := make([]models.MTopTalker, n)
	for i, idx := range order {
		talkers[i] = models.MTopTalker{
			Country:     countries[idx],
			Traffic:     round1(10 + rand.Float64()*490),
			Connections: between(50, 1500),
		}
	}

	// heaviest first
	for i := 1; i < len(talkers); i++ {
		for j := i; j > 0 && talkers[j].Traffic > talkers[j-1].Traffic; j-- {
			talkers[j], talkers[j-1] = talkers[j-1], talkers[j]
		}
	}
	return talkers
}

// -----------------------------------------------------------------------------

func (g *Generator) deviceTypes() map[string]int {
	weights := make([]float64, len(deviceCategories))
	for i := range weights {
		weights[i] = 1 + rand.Float64()*99
	}
	shares := Normalize(weights)

	out := make(map[string]int, len(deviceCategories))
	for i, name := range deviceCategories {
		out[name] = shares[i]
	}
	return out
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// between returns a uniform int in [lo, hi]
func between(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

func pick(values []string) string {
	return values[rand.IntN(len(values))]
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func randomIPv4() string {
	return fmt.Sprintf("%d.%d.%d.%d", between(1, 223), rand.IntN(256), rand.IntN(256), between(1, 254))
}
