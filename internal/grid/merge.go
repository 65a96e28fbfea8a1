package grid

import (
	"sync"

	"github.com/scanlab/mathfind/internal/geometry"
)

// MergeGroup describes one merged segment: a group of blobs an earlier
// segmentation stage decided belong to the same logical symbol.
type MergeGroup struct {
	// SegmentID identifies the merged segment within its page.
	SegmentID int `json:"segment_id"`

	// Box is the union bounding box of the merged segment.
	Box geometry.Rect `json:"box"`
}

// MergeSlot is the shared indirection cell through which every blob in a
// merge group reaches the same MergeGroup descriptor.
//
// Whichever member blob releases first frees the descriptor; the slot
// guarantees exactly-once release no matter the order, and remains safe if
// a future caller releases members concurrently.
type MergeSlot struct {
	mu   sync.Mutex
	once sync.Once
	desc *MergeGroup

	// OnRelease, when set, runs exactly once at descriptor release. Used to
	// free resources tied to the descriptor's lifetime.
	OnRelease func()
}

func newMergeSlot(desc *MergeGroup) *MergeSlot {
	return &MergeSlot{desc: desc}
}

// Get returns the shared descriptor, or nil once it has been released.
func (s *MergeSlot) Get() *MergeGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// release frees the descriptor exactly once across all member blobs.
func (s *MergeSlot) release() {
	s.once.Do(func() {
		s.mu.Lock()
		s.desc = nil
		hook := s.OnRelease
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
	})
}
