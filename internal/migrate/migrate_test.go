package migrate

import (
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DustinBergman/workout-app-sub001/internal/document"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestMigrate_UpgradesToCurrentVersion(t *testing.T) {
	doc := &document.Document{}

	Migrate(doc, testLogger())

	if doc.Version != CurrentVersion {
		t.Errorf("expected version %d, got %d", CurrentVersion, doc.Version)
	}
	if doc.Preferences.WeightUnit != "kg" {
		t.Errorf("expected default weight unit kg, got %q", doc.Preferences.WeightUnit)
	}
	if doc.Preferences.DistanceUnit != "km" {
		t.Errorf("expected default distance unit km, got %q", doc.Preferences.DistanceUnit)
	}
}

func TestMigrate_AlreadyCurrentIsUntouched(t *testing.T) {
	doc := &document.Document{
		Version:     CurrentVersion,
		Preferences: document.Preferences{WeightUnit: "lb", DistanceUnit: "mi"},
	}

	Migrate(doc, testLogger())

	if doc.Preferences.WeightUnit != "lb" {
		t.Errorf("current document should not be touched, weight unit became %q", doc.Preferences.WeightUnit)
	}
}

func TestMigrate_InfersCardioTemplateType(t *testing.T) {
	doc := &document.Document{
		Templates: []document.Template{{
			ID:   uuid.NewString(),
			Name: "Morning Run",
			Exercises: []document.TemplateExercise{
				{ExerciseID: uuid.NewString(), Type: document.TypeCardio},
				{ExerciseID: uuid.NewString(), Type: document.TypeCardio},
			},
		}},
	}

	Migrate(doc, testLogger())

	tmpl := &doc.Templates[0]
	if tmpl.TemplateType != document.TypeCardio {
		t.Errorf("all-cardio template should infer type cardio, got %q", tmpl.TemplateType)
	}
	if !tmpl.InRotation {
		t.Error("pre-v2 template should be opted into the rotation")
	}
	for _, ex := range tmpl.Exercises {
		if ex.CardioCategory != document.CardioCategoryDistance {
			t.Errorf("cardio exercise should default to distance category, got %q", ex.CardioCategory)
		}
	}
}

func TestMigrate_MixedTemplateBecomesStrengthAndDropsCardio(t *testing.T) {
	strengthID := uuid.NewString()
	doc := &document.Document{
		Templates: []document.Template{{
			ID:   uuid.NewString(),
			Name: "Mixed Day",
			Exercises: []document.TemplateExercise{
				{ExerciseID: strengthID, Type: document.TypeStrength},
				{ExerciseID: uuid.NewString(), Type: document.TypeCardio},
			},
		}},
	}

	Migrate(doc, testLogger())

	tmpl := &doc.Templates[0]
	if tmpl.TemplateType != document.TypeStrength {
		t.Errorf("mixed template should infer type strength, got %q", tmpl.TemplateType)
	}
	if len(tmpl.Exercises) != 1 || tmpl.Exercises[0].ExerciseID != strengthID {
		t.Errorf("cardio exercise should be filtered from a strength template, got %+v", tmpl.Exercises)
	}
}

func TestMigrate_EmptyTemplateDefaultsToStrength(t *testing.T) {
	doc := &document.Document{
		Templates: []document.Template{{ID: uuid.NewString(), Name: "Blank"}},
	}

	Migrate(doc, testLogger())

	if doc.Templates[0].TemplateType != document.TypeStrength {
		t.Errorf("template without exercises should default to strength, got %q", doc.Templates[0].TemplateType)
	}
}

func TestMigrate_RepairsIdentifiersAndReferences(t *testing.T) {
	completed := time.Now()
	doc := &document.Document{
		Templates: []document.Template{{
			ID:           "template-1",
			Name:         "Push Day",
			TemplateType: document.TypeStrength,
			Exercises: []document.TemplateExercise{
				{ExerciseID: "my-exercise", Type: document.TypeStrength},
			},
		}},
		CustomExercises: []document.Exercise{{
			ID: "my-exercise", Name: "Hack Squat", Type: document.TypeStrength,
		}},
		Sessions: []document.Session{{
			ID:          "session-1",
			TemplateID:  "template-1",
			StartedAt:   completed.Add(-time.Hour),
			CompletedAt: &completed,
			Exercises: []document.SessionExercise{{
				ID:         "se-1",
				ExerciseID: "my-exercise",
				Type:       document.TypeStrength,
			}},
		}},
		WeightEntries: []document.WeightEntry{{ID: "w-1", Weight: 80, Unit: "kg"}},
	}

	Migrate(doc, testLogger())

	tmpl := &doc.Templates[0]
	ex := &doc.CustomExercises[0]
	sess := &doc.Sessions[0]

	if uuid.Validate(tmpl.ID) != nil {
		t.Errorf("template id should be a UUID, got %q", tmpl.ID)
	}
	if uuid.Validate(ex.ID) != nil {
		t.Errorf("custom exercise id should be a UUID, got %q", ex.ID)
	}
	if uuid.Validate(sess.ID) != nil {
		t.Errorf("session id should be a UUID, got %q", sess.ID)
	}
	if uuid.Validate(doc.WeightEntries[0].ID) != nil {
		t.Errorf("weight entry id should be a UUID, got %q", doc.WeightEntries[0].ID)
	}

	// References must follow the renamed ids.
	if sess.TemplateID != tmpl.ID {
		t.Errorf("session template reference not rewritten: %q != %q", sess.TemplateID, tmpl.ID)
	}
	if tmpl.Exercises[0].ExerciseID != ex.ID {
		t.Errorf("template exercise reference not rewritten: %q != %q", tmpl.Exercises[0].ExerciseID, ex.ID)
	}
	if sess.Exercises[0].ExerciseID != ex.ID {
		t.Errorf("session exercise reference not rewritten: %q != %q", sess.Exercises[0].ExerciseID, ex.ID)
	}
}

func TestMigrate_ValidUUIDsAreStable(t *testing.T) {
	id := uuid.NewString()
	doc := &document.Document{
		Templates: []document.Template{{ID: id, Name: "Stable", TemplateType: document.TypeStrength}},
	}

	Migrate(doc, testLogger())

	if doc.Templates[0].ID != id {
		t.Errorf("valid UUID should not be regenerated: %q became %q", id, doc.Templates[0].ID)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	completed := time.Now().UTC().Truncate(time.Second)
	doc := &document.Document{
		Templates: []document.Template{{
			ID:   "old-template",
			Name: "Push Day",
			Exercises: []document.TemplateExercise{
				{ExerciseID: "bench", Type: document.TypeStrength},
			},
		}},
		Sessions: []document.Session{{
			ID:          "old-session",
			TemplateID:  "old-template",
			StartedAt:   completed.Add(-time.Hour),
			CompletedAt: &completed,
		}},
	}

	Migrate(doc, testLogger())
	first, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	Migrate(doc, testLogger())
	Normalize(doc)
	second, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("second migrate changed the document:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestNormalize_RepairsWithoutTouchingVersion(t *testing.T) {
	doc := &document.Document{
		Version: CurrentVersion,
		Templates: []document.Template{{
			ID:   "legacy-id",
			Name: "Legacy",
			Exercises: []document.TemplateExercise{
				{ExerciseID: uuid.NewString(), Type: document.TypeCardio},
			},
		}},
	}

	Normalize(doc)

	if doc.Version != CurrentVersion {
		t.Errorf("Normalize must not change the version, got %d", doc.Version)
	}
	if doc.Templates[0].TemplateType != document.TypeCardio {
		t.Errorf("Normalize should backfill template type, got %q", doc.Templates[0].TemplateType)
	}
	if uuid.Validate(doc.Templates[0].ID) != nil {
		t.Errorf("Normalize should repair non-UUID id, got %q", doc.Templates[0].ID)
	}
}

func TestNormalize_ReportsWhetherItChangedAnything(t *testing.T) {
	doc := &document.Document{
		Version: CurrentVersion,
		Templates: []document.Template{{
			ID:   "legacy-id",
			Name: "Legacy",
			Exercises: []document.TemplateExercise{
				{ExerciseID: uuid.NewString(), Type: document.TypeStrength},
			},
		}},
	}

	if !Normalize(doc) {
		t.Error("repairing a legacy document should report a change")
	}

	// The document is fully repaired now; a second pass must be a no-op.
	if Normalize(doc) {
		t.Error("normalizing an already repaired document should report no change")
	}
}

func TestMigrate_RepairsActiveSession(t *testing.T) {
	doc := &document.Document{
		ActiveSession: &document.Session{
			ID:        "in-progress",
			StartedAt: time.Now(),
			Exercises: []document.SessionExercise{{ID: "se-1", ExerciseID: uuid.NewString()}},
		},
	}

	Migrate(doc, testLogger())

	if uuid.Validate(doc.ActiveSession.ID) != nil {
		t.Errorf("active session id should be repaired, got %q", doc.ActiveSession.ID)
	}
	if uuid.Validate(doc.ActiveSession.Exercises[0].ID) != nil {
		t.Errorf("active session exercise id should be repaired, got %q", doc.ActiveSession.Exercises[0].ID)
	}
}
