// Package classifier labels browsing destinations as productive, neutral or
// distracting. Classification is a pure function of its inputs and is safe
// to call concurrently.
package classifier

import (
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/flowpulse/flowpulse/internal/core/model"
)

// Result is the outcome of classifying one destination.
// LearningProbability is only set for video-hosting destinations, where the
// category is derived from title/channel keyword scoring.
type Result struct {
	Category            model.Category
	LearningProbability *int
}

// keyword weights: longer keywords are more specific and less likely to
// produce false matches, so they count for more.
const (
	longKeywordLen    = 8
	longKeywordWeight = 15
	keywordWeight     = 10

	learningThreshold = 60
)

// ExtractDomain returns the lowercase registrable domain of a URL, without
// a leading "www.". Malformed URLs yield an empty string.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Classify labels a destination. Blocked domains are forced to distraction
// ahead of every other rule; video hosts are scored by title and channel
// keywords; everything else goes through the static domain sets and
// defaults to neutral.
func Classify(rawURL, title, channelName string, blockedDomains []string) Result {
	domain := ExtractDomain(rawURL)

	if _, ok := videoDomains[domain]; ok && !isBlocked(domain, blockedDomains) {
		return classifyVideo(title, channelName)
	}

	return Result{Category: classifyDomain(domain, blockedDomains)}
}

func classifyDomain(domain string, blockedDomains []string) model.Category {
	if isBlocked(domain, blockedDomains) {
		return model.CategoryDistraction
	}

	if _, ok := productiveDomains[domain]; ok {
		return model.CategoryProductive
	}
	if _, ok := distractionDomains[domain]; ok {
		return model.CategoryDistraction
	}
	if _, ok := neutralDomains[domain]; ok {
		return model.CategoryNeutral
	}

	for known := range productiveDomains {
		if strings.HasSuffix(domain, "."+known) {
			return model.CategoryProductive
		}
	}
	for known := range distractionDomains {
		if strings.HasSuffix(domain, "."+known) {
			return model.CategoryDistraction
		}
	}

	return model.CategoryNeutral
}

func isBlocked(domain string, blockedDomains []string) bool {
	for _, blocked := range blockedDomains {
		if domain == strings.ToLower(blocked) {
			return true
		}
	}
	return false
}

// classifyVideo scores the combined title and channel name against the
// education and entertainment keyword lists.
func classifyVideo(title, channelName string) Result {
	text := strings.ToLower(title + " " + channelName)

	eduScore := 0
	entertainScore := 0
	for _, keyword := range eduKeywords {
		if strings.Contains(text, keyword) {
			eduScore += weightFor(keyword)
		}
	}
	for _, keyword := range entertainKeywords {
		if strings.Contains(text, keyword) {
			entertainScore += weightFor(keyword)
		}
	}

	total := eduScore + entertainScore
	probability := 50 // no evidence either way
	if total > 0 {
		probability = int(math.Round(float64(eduScore) / float64(total) * 100))
	}

	category := model.CategoryDistraction
	if probability >= learningThreshold {
		category = model.CategoryProductive
	}

	return Result{Category: category, LearningProbability: &probability}
}

func weightFor(keyword string) int {
	if len(keyword) > longKeywordLen {
		return longKeywordWeight
	}
	return keywordWeight
}

// ChannelMemory remembers the category last assigned to a video channel so
// repeat visits can be pre-tagged without re-scoring.
type ChannelMemory struct {
	mu       sync.RWMutex
	channels map[string]model.Category
}

// NewChannelMemory creates an empty channel memory.
func NewChannelMemory() *ChannelMemory {
	return &ChannelMemory{channels: make(map[string]model.Category)}
}

// Remember records the category for a channel. Empty channel names are ignored.
func (m *ChannelMemory) Remember(channelName string, category model.Category) {
	if channelName == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[strings.ToLower(channelName)] = category
}

// Lookup returns the remembered category for a channel, if any.
func (m *ChannelMemory) Lookup(channelName string) (model.Category, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	category, ok := m.channels[strings.ToLower(channelName)]
	return category, ok
}
