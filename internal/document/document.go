// Package document provides the persisted local workout document.
//
// The document is the authoritative local copy of the user's write-heavy
// data: workout templates, completed and in-progress sessions, custom
// exercises, body-weight entries, and preferences. It is mutated
// synchronously by user actions and persisted on every mutation; the sync
// engine reads from it but never writes to it.
package document

import (
	"errors"
	"fmt"
	"time"
)

// Exercise variant discriminators. Every exercise and completed set carries
// one of these; templates additionally declare one as their overall type.
const (
	TypeStrength = "strength"
	TypeCardio   = "cardio"
)

// Cardio categories for cardio template exercises.
const (
	CardioCategoryDistance = "distance"
	CardioCategoryDuration = "duration"
	CardioCategoryInterval = "interval"
)

// ErrActiveSessionExists is returned when starting a session while another
// one is still in progress. At most one session may be active at a time.
var ErrActiveSessionExists = errors.New("a session is already in progress")

// Document is the versioned aggregate persisted on disk.
//
// Version increases monotonically and drives migration on load. The zero
// value of Version marks a document that predates versioning entirely.
type Document struct {
	Version         int           `json:"version"`
	Templates       []Template    `json:"templates"`
	Sessions        []Session     `json:"sessions"`
	ActiveSession   *Session      `json:"active_session,omitempty"`
	CustomExercises []Exercise    `json:"custom_exercises,omitempty"`
	WeightEntries   []WeightEntry `json:"weight_entries,omitempty"`
	Preferences     Preferences   `json:"preferences"`
}

// Preferences holds per-user display and unit settings.
type Preferences struct {
	WeightUnit   string `json:"weight_unit,omitempty"`   // kg, lb
	DistanceUnit string `json:"distance_unit,omitempty"` // km, mi
	FirstWeekday int    `json:"first_weekday,omitempty"` // 0 = Sunday
}

// Template is a reusable workout definition authored by the user.
type Template struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	TemplateType string             `json:"template_type,omitempty"` // strength, cardio
	Exercises    []TemplateExercise `json:"exercises"`
	InRotation   bool               `json:"in_rotation"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// TemplateExercise is one planned exercise within a template.
//
// Type selects the variant: strength exercises carry target sets/reps,
// cardio exercises carry a cardio category and its category-specific
// targets. Fields of the other variant stay zero and are omitted from JSON.
type TemplateExercise struct {
	ExerciseID            string  `json:"exercise_id"`
	Type                  string  `json:"type"`
	TargetSets            int     `json:"target_sets,omitempty"`
	TargetReps            int     `json:"target_reps,omitempty"`
	CardioCategory        string  `json:"cardio_category,omitempty"`
	TargetDistance        float64 `json:"target_distance,omitempty"`
	TargetDurationSeconds int     `json:"target_duration_seconds,omitempty"`
	RestSeconds           int     `json:"rest_seconds,omitempty"`
}

// Session is a single workout execution, possibly derived from a template.
//
// CompletedAt == nil marks the session as in progress. The owning Document
// enforces that at most one session is active at a time.
type Session struct {
	ID          string            `json:"id"`
	TemplateID  string            `json:"template_id,omitempty"`
	Name        string            `json:"name"`
	CustomTitle string            `json:"custom_title,omitempty"`
	Mood        string            `json:"mood,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Exercises   []SessionExercise `json:"exercises"`
}

// SessionExercise is one exercise performed during a session, with the sets
// logged against it.
type SessionExercise struct {
	ID         string         `json:"id"`
	ExerciseID string         `json:"exercise_id"`
	Type       string         `json:"type"`
	TargetSets int            `json:"target_sets,omitempty"`
	TargetReps int            `json:"target_reps,omitempty"`
	Sets       []CompletedSet `json:"sets"`
}

// CompletedSet is a single logged set. Strength sets carry reps/weight,
// cardio sets carry distance and/or duration. Distance is a pointer so a
// duration-only cardio set can omit it entirely.
type CompletedSet struct {
	Type            string    `json:"type"`
	Reps            int       `json:"reps,omitempty"`
	Weight          float64   `json:"weight,omitempty"`
	WeightUnit      string    `json:"weight_unit,omitempty"`
	Distance        *float64  `json:"distance,omitempty"`
	DistanceUnit    string    `json:"distance_unit,omitempty"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
}

// Exercise is a user-defined custom exercise.
type Exercise struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	BodyPart  string    `json:"body_part,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WeightEntry is a single body-weight measurement.
type WeightEntry struct {
	ID         string    `json:"id"`
	Weight     float64   `json:"weight"`
	Unit       string    `json:"unit"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ExerciseIDs returns the exercise ids of the template's exercise list, in
// order and including repeats. The sync engine uses this for duplicate
// detection.
func (t *Template) ExerciseIDs() []string {
	ids := make([]string, len(t.Exercises))
	for i, ex := range t.Exercises {
		ids[i] = ex.ExerciseID
	}
	return ids
}

// ExerciseIDs returns the exercise ids of the session's exercise list, in
// order and including repeats.
func (s *Session) ExerciseIDs() []string {
	ids := make([]string, len(s.Exercises))
	for i, ex := range s.Exercises {
		ids[i] = ex.ExerciseID
	}
	return ids
}

// IsCompleted reports whether the session has been finished.
func (s *Session) IsCompleted() bool {
	return s.CompletedAt != nil
}

// Validate checks the template's required fields.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.TemplateType != "" && t.TemplateType != TypeStrength && t.TemplateType != TypeCardio {
		return fmt.Errorf("unknown template type %q", t.TemplateType)
	}
	return nil
}

// Validate checks the session's required fields.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.StartedAt.IsZero() {
		return fmt.Errorf("started_at is required")
	}
	return nil
}

// FindTemplate returns the template with the given id, or nil.
func (d *Document) FindTemplate(id string) *Template {
	for i := range d.Templates {
		if d.Templates[i].ID == id {
			return &d.Templates[i]
		}
	}
	return nil
}

// CompletedSessions returns the sessions that have a completion timestamp.
// The in-progress session, if any, is excluded.
func (d *Document) CompletedSessions() []Session {
	var out []Session
	for _, s := range d.Sessions {
		if s.IsCompleted() {
			out = append(out, s)
		}
	}
	return out
}

// StartSession makes the given session the single in-progress session.
// Returns ErrActiveSessionExists if another session is already active.
func (d *Document) StartSession(s Session) error {
	if d.ActiveSession != nil {
		return ErrActiveSessionExists
	}
	s.CompletedAt = nil
	d.ActiveSession = &s
	return nil
}

// CompleteActiveSession stamps the in-progress session as completed at the
// given time, appends it to Sessions, and clears the active pointer.
// Returns the completed session, or nil if no session was active.
func (d *Document) CompleteActiveSession(at time.Time) *Session {
	if d.ActiveSession == nil {
		return nil
	}
	s := *d.ActiveSession
	s.CompletedAt = &at
	d.Sessions = append(d.Sessions, s)
	d.ActiveSession = nil
	return &d.Sessions[len(d.Sessions)-1]
}
