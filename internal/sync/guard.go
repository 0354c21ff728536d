package sync

// Safety guard thresholds. The duplicate and shrink rules are heuristic
// corruption signatures; they are kept as named predicates so a future
// transactional diff against the remote store replaces them in one place.
const (
	// MaxChildCollectionSize caps the exercise list of a template or
	// session. A larger local list signals corrupted state, not a workout.
	MaxChildCollectionSize = 50

	// MaxDuplicateExerciseCount caps how often one exercise id may repeat
	// within a single exercise list.
	MaxDuplicateExerciseCount = 3

	// suspiciousShrinkRatio blocks session updates whose local child count
	// fell below this fraction of the remote count.
	suspiciousShrinkRatio = 0.5
)

// BlockReason names the guard rule that refused a remote write.
type BlockReason string

const (
	ReasonEmptyLocalOverwrite BlockReason = "empty_local_overwrite"
	ReasonOversizedCollection BlockReason = "oversized_collection"
	ReasonDuplicateCorruption BlockReason = "duplicate_corruption"
	ReasonSuspiciousShrink    BlockReason = "suspicious_shrink"
)

// Assessment is the guard's verdict on a pending remote write.
//
// Allow false means no remote mutation at all. Allow true with ChildSync
// false means the scalar metadata update may proceed but the child
// collection must be left untouched.
type Assessment struct {
	Allow     bool
	ChildSync bool
	Reason    BlockReason
}

// AssessUpdate applies the guard rules, in order, to a pending update.
//
// The first matching rule wins. An empty local list over a populated remote
// one degrades the update to metadata-only rather than blocking it: the
// remote children are simply never touched, which is what rule one exists
// to guarantee. The oversize, duplicate and shrink rules block the update
// entirely, metadata included. The shrink rule applies to sessions only,
// since legitimate template edits often remove more than half the exercises
// at once.
func AssessUpdate(kind Kind, localCount, remoteCount int, exerciseIDs []string) Assessment {
	if emptyLocalOverwrite(localCount, remoteCount) {
		return Assessment{Allow: true, ChildSync: false, Reason: ReasonEmptyLocalOverwrite}
	}
	if oversizedCollection(localCount) {
		return Assessment{Reason: ReasonOversizedCollection}
	}
	if maxDuplicateCount(exerciseIDs) > MaxDuplicateExerciseCount {
		return Assessment{Reason: ReasonDuplicateCorruption}
	}
	if kind == KindSession && suspiciousShrink(localCount, remoteCount) {
		return Assessment{Reason: ReasonSuspiciousShrink}
	}
	return Assessment{Allow: true, ChildSync: localCount > 0}
}

// AssessInsert applies the size and duplication rules to a fresh insert.
// The empty-overwrite and shrink rules are moot when no remote row exists.
func AssessInsert(localCount int, exerciseIDs []string) Assessment {
	if oversizedCollection(localCount) {
		return Assessment{Reason: ReasonOversizedCollection}
	}
	if maxDuplicateCount(exerciseIDs) > MaxDuplicateExerciseCount {
		return Assessment{Reason: ReasonDuplicateCorruption}
	}
	return Assessment{Allow: true, ChildSync: localCount > 0}
}

// emptyLocalOverwrite reports whether syncing the local child list would
// wipe remote children that the local copy doesn't know about.
func emptyLocalOverwrite(localCount, remoteCount int) bool {
	return localCount == 0 && remoteCount > 0
}

func oversizedCollection(localCount int) bool {
	return localCount > MaxChildCollectionSize
}

// maxDuplicateCount returns the highest per-exercise-id repeat count in the
// list.
func maxDuplicateCount(exerciseIDs []string) int {
	counts := make(map[string]int, len(exerciseIDs))
	max := 0
	for _, id := range exerciseIDs {
		counts[id]++
		if counts[id] > max {
			max = counts[id]
		}
	}
	return max
}

// suspiciousShrink reports whether the local child list shrank below half
// of the remote one.
func suspiciousShrink(localCount, remoteCount int) bool {
	return float64(localCount) < float64(remoteCount)*suspiciousShrinkRatio
}
