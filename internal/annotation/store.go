// Package annotation holds timed entities: detected objects and the crop
// area, each carrying per-time frame samples independent of playback.
package annotation

import (
	"encoding/json"
	"fmt"
)

// CropAreaName is the reserved entity name for the auto-detected crop region.
const CropAreaName = "crop_area"

// Frame is one bounding-box sample at an analyzed instant, in pixels.
type Frame struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Time   float64 `json:"time"`
}

// Entity is a named object with a time-bounded segment window and ordered
// frame samples. It is active only while the current playback time lies in
// [StartS, EndS].
type Entity struct {
	Name   string  `json:"name"`
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
	Frames []Frame `json:"frames"`
}

// Active reports whether the entity applies at playback time t.
func (e *Entity) Active(t float64) bool {
	return t >= e.StartS && t <= e.EndS
}

// RawFrame carries a normalized (0..1) bounding box sample.
type RawFrame struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Time   float64 `json:"time"`
}

// RawEntity is the wire shape of one annotated entity.
type RawEntity struct {
	Name   string     `json:"name"`
	StartS float64    `json:"start_s"`
	EndS   float64    `json:"end_s"`
	Frames []RawFrame `json:"frames"`
}

// ParseEntities decodes the raw annotation payload, failing fast on shape
// mismatches.
func ParseEntities(data []byte) ([]RawEntity, error) {
	var raw []RawEntity
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse annotations: %w", err)
	}
	for _, e := range raw {
		if e.Name == "" {
			return nil, fmt.Errorf("annotation entity has no name")
		}
		for i, f := range e.Frames {
			if f.Width < 0 || f.Height < 0 {
				return nil, fmt.Errorf("entity %q frame %d has negative size", e.Name, i)
			}
			if i > 0 && f.Time < e.Frames[i-1].Time {
				return nil, fmt.Errorf("entity %q frames not ordered by time at index %d", e.Name, i)
			}
		}
	}
	return raw, nil
}

// Store holds the timed entities for one editing session, keyed by name.
type Store struct {
	entities map[string]*Entity
	order    []string
}

func NewStore() *Store {
	return &Store{entities: make(map[string]*Entity)}
}

// Load denormalizes raw entities into pixel space and replaces the store's
// contents. width/height are the dimensions of the caller's render surface.
func (s *Store) Load(raw []RawEntity, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid render dimensions %dx%d", width, height)
	}

	entities := make(map[string]*Entity, len(raw))
	order := make([]string, 0, len(raw))
	for _, re := range raw {
		if _, dup := entities[re.Name]; dup {
			return fmt.Errorf("duplicate annotation entity %q", re.Name)
		}
		e := &Entity{
			Name:   re.Name,
			StartS: re.StartS,
			EndS:   re.EndS,
			Frames: make([]Frame, len(re.Frames)),
		}
		for i, rf := range re.Frames {
			e.Frames[i] = Frame{
				X:      rf.X * float64(width),
				Y:      rf.Y * float64(height),
				Width:  rf.Width * float64(width),
				Height: rf.Height * float64(height),
				Time:   rf.Time,
			}
		}
		entities[re.Name] = e
		order = append(order, re.Name)
	}

	s.entities = entities
	s.order = order
	return nil
}

// Entity returns the named entity.
func (s *Store) Entity(name string) (*Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// CropArea returns the crop-area entity, if the analysis produced one.
func (s *Store) CropArea() (*Entity, bool) {
	return s.Entity(CropAreaName)
}

// Entities returns all entities in load order.
func (s *Store) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entities[name])
	}
	return out
}

// ActiveAt returns the entities whose window contains playback time t, in
// load order.
func (s *Store) ActiveAt(t float64) []*Entity {
	var out []*Entity
	for _, name := range s.order {
		if e := s.entities[name]; e.Active(t) {
			out = append(out, e)
		}
	}
	return out
}
