package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/DustinBergman/workout-app-sub001/internal/document"
	"github.com/DustinBergman/workout-app-sub001/internal/remote"
)

// Row builders map local document types onto remote table rows. Variant
// fields of the other exercise type are set to nil, which the store writes
// as SQL NULL. Child rows get fresh UUID primary keys on every insert; the
// replace-children strategy never patches child rows in place, so stable
// child row ids are not needed.

func templateRow(ownerID string, t *document.Template) remote.Row {
	return remote.Row{
		"id":            t.ID,
		"owner_id":      ownerID,
		"name":          t.Name,
		"template_type": t.TemplateType,
		"in_rotation":   t.InRotation,
		"created_at":    t.CreatedAt.Format(time.RFC3339),
		"updated_at":    t.UpdatedAt.Format(time.RFC3339),
	}
}

// templateMetadataPatch carries only the scalar fields; the child
// collection is replaced separately, if at all.
func templateMetadataPatch(t *document.Template) remote.Row {
	return remote.Row{
		"name":          t.Name,
		"template_type": t.TemplateType,
		"in_rotation":   t.InRotation,
		"updated_at":    t.UpdatedAt.Format(time.RFC3339),
	}
}

func templateExerciseRows(t *document.Template) []remote.Row {
	rows := make([]remote.Row, len(t.Exercises))
	for i, ex := range t.Exercises {
		row := remote.Row{
			"id":                      uuid.NewString(),
			"template_id":             t.ID,
			"position":                i,
			"exercise_id":             ex.ExerciseID,
			"type":                    ex.Type,
			"target_sets":             nil,
			"target_reps":             nil,
			"cardio_category":         nil,
			"target_distance":         nil,
			"target_duration_seconds": nil,
			"rest_seconds":            ex.RestSeconds,
		}
		switch ex.Type {
		case document.TypeCardio:
			row["cardio_category"] = ex.CardioCategory
			if ex.TargetDistance > 0 {
				row["target_distance"] = ex.TargetDistance
			}
			if ex.TargetDurationSeconds > 0 {
				row["target_duration_seconds"] = ex.TargetDurationSeconds
			}
		default:
			row["target_sets"] = ex.TargetSets
			row["target_reps"] = ex.TargetReps
		}
		rows[i] = row
	}
	return rows
}

func sessionRow(ownerID string, s *document.Session) remote.Row {
	return remote.Row{
		"id":           s.ID,
		"owner_id":     ownerID,
		"template_id":  nullableString(s.TemplateID),
		"name":         s.Name,
		"custom_title": nullableString(s.CustomTitle),
		"mood":         nullableString(s.Mood),
		"started_at":   s.StartedAt.Format(time.RFC3339),
		"completed_at": nullableTime(s.CompletedAt),
	}
}

func sessionMetadataPatch(s *document.Session) remote.Row {
	return remote.Row{
		"name":         s.Name,
		"custom_title": nullableString(s.CustomTitle),
		"mood":         nullableString(s.Mood),
		"completed_at": nullableTime(s.CompletedAt),
	}
}

// sessionChildSets builds the full child tree of a session: its exercises
// and, per exercise, the completed sets. Set rows carry a denormalized
// session id so both tables replace and count by the same parent column.
func sessionChildSets(s *document.Session) []remote.ChildSet {
	exRows := make([]remote.Row, len(s.Exercises))
	var setRows []remote.Row

	for i, ex := range s.Exercises {
		exID := uuid.NewString()
		exRows[i] = remote.Row{
			"id":          exID,
			"session_id":  s.ID,
			"position":    i,
			"exercise_id": ex.ExerciseID,
			"type":        ex.Type,
			"target_sets": zeroAsNull(ex.TargetSets),
			"target_reps": zeroAsNull(ex.TargetReps),
		}
		for j, set := range ex.Sets {
			setRows = append(setRows, completedSetRow(s.ID, exID, j, set))
		}
	}

	return []remote.ChildSet{
		{Table: remote.TableSessionExercises, ParentCol: remote.ColSessionID, Rows: exRows},
		{Table: remote.TableSessionSets, ParentCol: remote.ColSessionID, Rows: setRows},
	}
}

// completedSetRow derives the per-variant nullable columns: a cardio set
// fills distance/duration and leaves reps/weight null, and vice versa.
func completedSetRow(sessionID, sessionExerciseID string, position int, set document.CompletedSet) remote.Row {
	row := remote.Row{
		"id":                  uuid.NewString(),
		"session_id":          sessionID,
		"session_exercise_id": sessionExerciseID,
		"position":            position,
		"type":                set.Type,
		"reps":                nil,
		"weight":              nil,
		"weight_unit":         nil,
		"distance":            nil,
		"distance_unit":       nil,
		"duration_seconds":    nil,
		"completed_at":        set.CompletedAt.Format(time.RFC3339),
	}
	switch set.Type {
	case document.TypeCardio:
		if set.Distance != nil {
			row["distance"] = *set.Distance
			row["distance_unit"] = nullableString(set.DistanceUnit)
		}
		row["duration_seconds"] = set.DurationSeconds
	default:
		row["reps"] = set.Reps
		row["weight"] = set.Weight
		row["weight_unit"] = nullableString(set.WeightUnit)
	}
	return row
}

func exerciseRow(ownerID string, e *document.Exercise) remote.Row {
	return remote.Row{
		"id":         e.ID,
		"owner_id":   ownerID,
		"name":       e.Name,
		"type":       e.Type,
		"body_part":  nullableString(e.BodyPart),
		"created_at": e.CreatedAt.Format(time.RFC3339),
	}
}

func weightEntryRow(ownerID string, w *document.WeightEntry) remote.Row {
	return remote.Row{
		"id":          w.ID,
		"owner_id":    ownerID,
		"weight":      w.Weight,
		"unit":        w.Unit,
		"recorded_at": w.RecordedAt.Format(time.RFC3339),
	}
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func zeroAsNull(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
