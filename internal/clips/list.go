package clips

import (
	"strings"

	"github.com/kikiluvv/clipseq/pkg/ordered"
	"github.com/samber/lo"
)

// List holds the clips of a sequence ordered by timeline start
type List struct {
	*ordered.List[*Clip]
}

// NewList creates an empty list. Delete and Clear free the clips they remove.
func NewList() *List {
	return &List{
		List: ordered.New(Compare, func(c *Clip) { _ = c.Free() }),
	}
}

// FormatClip describes a clip's source, trim boundary and timeline position
func FormatClip(c *Clip) string {
	return c.String()
}

// Strings formats every clip in timeline order
func (l *List) Strings() []string {
	return lo.Map(l.Slice(), func(c *Clip, _ int) string {
		return FormatClip(c)
	})
}

func (l *List) String() string {
	return strings.Join(l.Strings(), "\n")
}

// Find looks a clip up by ID
func (l *List) Find(id string) (*Clip, bool) {
	return lo.Find(l.Slice(), func(c *Clip) bool {
		return c.ID == id
	})
}

// TimelineEnd is the largest timeline end of any clip, or -1 when empty
func (l *List) TimelineEnd() int64 {
	return lo.Reduce(l.Slice(), func(end int64, c *Clip, _ int) int64 {
		return max(end, c.EndPTS())
	}, -1)
}
