// Package migrate upgrades persisted workout documents across schema
// versions.
//
// Two entry points exist. Migrate runs the ordered, version-gated steps on
// load whenever the stored version is behind CurrentVersion. Normalize is
// the opportunistic runtime pass: it re-applies the structural repairs
// (missing template types, missing cardio categories, non-UUID
// identifiers) to data shapes that predate the version field. Every step is
// idempotent, so Normalize is safe to run against documents that were
// already upgraded at load time.
//
// Migration runs entirely in memory against the local document and never
// touches the remote store.
package migrate

import (
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/DustinBergman/workout-app-sub001/internal/document"
)

// CurrentVersion is the schema version this build writes.
//
// History:
//
//	v1: version field and unit preferences introduced
//	v2: template_type and in_rotation introduced
//	v3: cardio_category and cardio target fields introduced
//	v4: globally unique (UUID) identifiers enforced
const CurrentVersion = 4

// step is a single ordered migration. apply must be idempotent and report
// whether it changed the document.
type step struct {
	version int
	name    string
	apply   func(doc *document.Document) bool
}

func steps() []step {
	return []step{
		{1, "default-unit-preferences", defaultUnitPreferences},
		{2, "template-rotation-and-type", templateRotationAndType},
		{3, "cardio-categories", repairCardioCategories},
		{4, "uuid-identifiers", repairIdentifiers},
	}
}

// Migrate upgrades the document to CurrentVersion, applying each pending
// step in order. Documents already at CurrentVersion are returned
// unchanged. A nil logger defaults to stderr.
func Migrate(doc *document.Document, logger *log.Logger) *document.Document {
	if logger == nil {
		logger = log.New(os.Stderr, "[migrate] ", log.LstdFlags)
	}

	if doc.Version >= CurrentVersion {
		return doc
	}

	from := doc.Version
	for _, st := range steps() {
		if doc.Version >= st.version {
			continue
		}
		st.apply(doc)
		doc.Version = st.version
		logger.Printf("applied migration %d (%s)", st.version, st.name)
	}

	logger.Printf("document migrated: v%d -> v%d", from, doc.Version)
	return doc
}

// Normalize re-applies the structural repairs without touching the version,
// and reports whether any repair changed the document. Callers that hold a
// persisted copy should re-save when it did, so repaired identifiers stay
// stable across loads.
//
// This covers resources created by code paths that predate the version
// field, such as templates missing a template_type or carrying non-UUID
// identifiers. All repairs are idempotent.
func Normalize(doc *document.Document) bool {
	changed := repairTemplateTypes(doc)
	changed = repairCardioCategories(doc) || changed
	changed = repairIdentifiers(doc) || changed
	return changed
}

func defaultUnitPreferences(doc *document.Document) bool {
	changed := false
	if doc.Preferences.WeightUnit == "" {
		doc.Preferences.WeightUnit = "kg"
		changed = true
	}
	if doc.Preferences.DistanceUnit == "" {
		doc.Preferences.DistanceUnit = "km"
		changed = true
	}
	return changed
}

// templateRotationAndType opts every pre-v2 template into the rotation and
// backfills the declared template type.
func templateRotationAndType(doc *document.Document) bool {
	changed := false
	for i := range doc.Templates {
		if !doc.Templates[i].InRotation {
			doc.Templates[i].InRotation = true
			changed = true
		}
	}
	return repairTemplateTypes(doc) || changed
}

// repairTemplateTypes backfills a missing template_type and drops exercises
// whose variant doesn't match the template's declared type.
//
// A template with at least one exercise, all of them cardio, becomes a
// cardio template; everything else becomes strength. Exercises of the other
// variant are then filtered out, since a template's exercise list must be
// homogeneous with its declared type.
func repairTemplateTypes(doc *document.Document) bool {
	changed := false
	for i := range doc.Templates {
		t := &doc.Templates[i]

		for j := range t.Exercises {
			if t.Exercises[j].Type == "" {
				t.Exercises[j].Type = document.TypeStrength
				changed = true
			}
		}

		if t.TemplateType == "" {
			t.TemplateType = inferTemplateType(t)
			changed = true
		}

		kept := t.Exercises[:0]
		for _, ex := range t.Exercises {
			if ex.Type == t.TemplateType {
				kept = append(kept, ex)
			}
		}
		if len(kept) != len(t.Exercises) {
			changed = true
		}
		t.Exercises = kept
	}
	return changed
}

func inferTemplateType(t *document.Template) string {
	if len(t.Exercises) == 0 {
		return document.TypeStrength
	}
	for _, ex := range t.Exercises {
		if ex.Type != document.TypeCardio {
			return document.TypeStrength
		}
	}
	return document.TypeCardio
}

// repairCardioCategories backfills the cardio category on cardio exercises
// that predate it. Distance is the v3 default since pre-v3 cardio targets
// were distance based.
func repairCardioCategories(doc *document.Document) bool {
	changed := false
	for i := range doc.Templates {
		for j := range doc.Templates[i].Exercises {
			ex := &doc.Templates[i].Exercises[j]
			if ex.Type == document.TypeCardio && ex.CardioCategory == "" {
				ex.CardioCategory = document.CardioCategoryDistance
				changed = true
			}
		}
	}
	return changed
}

// repairIdentifiers replaces every non-UUID resource id with a freshly
// generated UUID and rewrites all references to the old id within the same
// document. There is no cross-document id sharing to reconcile.
func repairIdentifiers(doc *document.Document) bool {
	changed := false

	// Templates are renamed first so session template references can be
	// rewritten in the same pass.
	renamed := make(map[string]string)
	for i := range doc.Templates {
		if old := doc.Templates[i].ID; !validUUID(old) {
			id := uuid.NewString()
			if old != "" {
				renamed[old] = id
			}
			doc.Templates[i].ID = id
			changed = true
		}
	}
	for i := range doc.CustomExercises {
		if old := doc.CustomExercises[i].ID; !validUUID(old) {
			id := uuid.NewString()
			if old != "" {
				renamed[old] = id
			}
			doc.CustomExercises[i].ID = id
			changed = true
		}
	}

	for i := range doc.Sessions {
		if repairSessionIdentifiers(&doc.Sessions[i], renamed) {
			changed = true
		}
	}
	if doc.ActiveSession != nil && repairSessionIdentifiers(doc.ActiveSession, renamed) {
		changed = true
	}
	for i := range doc.WeightEntries {
		if !validUUID(doc.WeightEntries[i].ID) {
			doc.WeightEntries[i].ID = uuid.NewString()
			changed = true
		}
	}

	if len(renamed) == 0 {
		return changed
	}

	// Rewrite template-exercise references to renamed custom exercises.
	for i := range doc.Templates {
		for j := range doc.Templates[i].Exercises {
			if id, ok := renamed[doc.Templates[i].Exercises[j].ExerciseID]; ok {
				doc.Templates[i].Exercises[j].ExerciseID = id
				changed = true
			}
		}
	}
	return changed
}

func repairSessionIdentifiers(s *document.Session, renamed map[string]string) bool {
	changed := false
	if !validUUID(s.ID) {
		s.ID = uuid.NewString()
		changed = true
	}
	if id, ok := renamed[s.TemplateID]; ok {
		s.TemplateID = id
		changed = true
	}
	for i := range s.Exercises {
		if !validUUID(s.Exercises[i].ID) {
			s.Exercises[i].ID = uuid.NewString()
			changed = true
		}
		if id, ok := renamed[s.Exercises[i].ExerciseID]; ok {
			s.Exercises[i].ExerciseID = id
			changed = true
		}
	}
	return changed
}

func validUUID(id string) bool {
	return uuid.Validate(id) == nil
}
