package safecheck

import (
	"container/ring"
	"sync"
)

// Detection is a detection result with the text it was produced for,
// kept by consumers interested in recent verdicts.
type Detection struct {
	Text   string `json:"text"`
	Result Result `json:"result"`
}

// LastDetections keeps track of last N detections, thread-safe.
type LastDetections struct {
	detections *ring.Ring
	size       int
	lock       sync.RWMutex
}

// NewLastDetections creates new detections tracker
func NewLastDetections(size int) *LastDetections {
	// minimum size is 1
	if size < 1 {
		size = 1
	}
	return &LastDetections{
		detections: ring.New(size),
		size:       size,
	}
}

// Push adds new detection to the history
func (h *LastDetections) Push(d Detection) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.detections.Value = d
	h.detections = h.detections.Next()
}

// Last returns up to n last detections in chronological order (oldest to newest)
func (h *LastDetections) Last(n int) []Detection {
	if n < 1 {
		return []Detection{}
	}

	h.lock.RLock()
	defer h.lock.RUnlock()

	if n > h.size {
		n = h.size
	}

	result := make([]Detection, 0, n)
	h.detections.Do(func(v interface{}) {
		if v != nil {
			if d, ok := v.(Detection); ok {
				result = append(result, d)
			}
		}
	})

	if len(result) > n {
		result = result[:n]
	}
	return result
}

// Size returns the size of detection history
func (h *LastDetections) Size() int {
	return h.size
}
