package tracker

import (
	"fmt"

	"github.com/trackkit/trackkit"
)

// ValidateGroundTruth rejects a ground-truth map that assigns the same
// entity to two different groups at one frame (spec.md §9's named open
// question), so an ambiguous anchor fails loudly at load time rather
// than silently picking whichever group's map iteration happened to
// win.
func ValidateGroundTruth(gt GroundTruth) error {
	for t, byGroup := range gt {
		seen := make(map[trackkit.EntityID]trackkit.GroupID, len(byGroup))
		for g, e := range byGroup {
			if prior, ok := seen[e]; ok {
				return fmt.Errorf("tracker: ground truth at frame %v assigns entity %v to both group %v and group %v", t, e, prior, g)
			}
			seen[e] = g
		}
	}
	return nil
}
