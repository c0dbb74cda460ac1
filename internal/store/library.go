// Package store keeps the preset library: saved scripts, preset groups and
// dialogue settings, persisted through gdata with debounced writes.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/quasilyte/gdata/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/vnplay/internal/exchange"
	"github.com/ivlev/vnplay/internal/script"
)

// ErrNotFound is returned for unknown preset or group ids
var ErrNotFound = errors.New("not found")

// DefaultSaveDelay coalesces bursts of edits into one write
const DefaultSaveDelay = 500 * time.Millisecond

// Storage layout
const (
	presetsObject    = "presets"
	groupsObject     = "presetGroups"
	settingsObject   = "settings"
	listProperty     = "all"
	settingsProperty = "userSettings"
)

// Library is safe for concurrent use.
type Library struct {
	mu       sync.Mutex
	presets  []script.DialogueScript
	groups   []script.PresetGroup
	settings script.DialogueSettings
	current  script.DialogueScript

	gm       *gdata.Manager // nil: memory only
	saveMu   sync.Mutex
	schedule func(f func())
	now      func() time.Time
}

// Open loads the library from gm. A nil manager gives a memory-only library.
// A decode failure is returned alongside a usable library with defaults.
func Open(gm *gdata.Manager, saveDelay time.Duration) (*Library, error) {
	if saveDelay <= 0 {
		saveDelay = DefaultSaveDelay
	}
	l := &Library{
		gm:       gm,
		settings: script.DefaultSettings(),
		current:  *script.DefaultScript(),
		schedule: debounce.New(saveDelay),
		now:      time.Now,
	}

	if err := l.load(); err != nil {
		log.Warn().Err(err).Msg("preset library load failed, using defaults")
		return l, err
	}
	return l, nil
}

func (l *Library) load() error {
	if l.gm == nil {
		return nil
	}

	if err := l.loadProp(presetsObject, listProperty, &l.presets); err != nil {
		return err
	}
	if err := l.loadProp(groupsObject, listProperty, &l.groups); err != nil {
		return err
	}
	return l.loadProp(settingsObject, settingsProperty, &l.settings)
}

func (l *Library) loadProp(object, prop string, out interface{}) error {
	if !l.gm.ObjectPropExists(object, prop) {
		return nil
	}
	data, err := l.gm.LoadObjectProp(object, prop)
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", object, prop, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", object, prop, err)
	}
	return nil
}

// Flush writes everything now, bypassing the debounce.
func (l *Library) Flush() error {
	if l.gm == nil {
		return nil
	}

	l.mu.Lock()
	presets, perr := yaml.Marshal(l.presets)
	groups, gerr := yaml.Marshal(l.groups)
	settings, serr := yaml.Marshal(l.settings)
	l.mu.Unlock()

	if err := errors.Join(perr, gerr, serr); err != nil {
		return fmt.Errorf("encode library: %w", err)
	}
	return l.write(presets, groups, settings)
}

func (l *Library) write(presets, groups, settings []byte) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	if err := l.gm.SaveObjectProp(presetsObject, listProperty, presets); err != nil {
		return fmt.Errorf("save presets: %w", err)
	}
	if err := l.gm.SaveObjectProp(groupsObject, listProperty, groups); err != nil {
		return fmt.Errorf("save preset groups: %w", err)
	}
	if err := l.gm.SaveObjectProp(settingsObject, settingsProperty, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// scheduleSave must be called without holding mu
func (l *Library) scheduleSave() {
	if l.gm == nil {
		return
	}
	l.schedule(func() {
		if err := l.Flush(); err != nil {
			log.Error().Err(err).Msg("preset library save failed")
		}
	})
}

// Current returns a copy of the script being edited
func (l *Library) Current() *script.DialogueScript {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Clone()
}

// SetCurrent replaces the script being edited
func (l *Library) SetCurrent(s *script.DialogueScript) {
	l.mu.Lock()
	l.current = *s.Clone()
	l.mu.Unlock()
}

// Presets returns copies of all saved presets
func (l *Library) Presets() []script.DialogueScript {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]script.DialogueScript, len(l.presets))
	for i := range l.presets {
		out[i] = *l.presets[i].Clone()
	}
	return out
}

// Groups returns copies of all preset groups
func (l *Library) Groups() []script.PresetGroup {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]script.PresetGroup, len(l.groups))
	for i, g := range l.groups {
		out[i] = cloneGroup(g)
	}
	return out
}

func (l *Library) Settings() script.DialogueSettings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

func (l *Library) UpdateSettings(s script.DialogueSettings) {
	l.mu.Lock()
	l.settings = s
	l.mu.Unlock()
	l.scheduleSave()
}

// SaveCurrentAsPreset stores a snapshot of the current script under a new id.
func (l *Library) SaveCurrentAsPreset() script.DialogueScript {
	l.mu.Lock()
	now := l.now()
	p := *l.current.Clone()
	p.ID = l.uniquePresetID(now)
	p.UpdatedAt = now.UnixMilli()
	l.presets = append(l.presets, p)
	l.mu.Unlock()

	l.scheduleSave()
	return *p.Clone()
}

// LoadPreset makes preset id the current script, keeping the player's name.
func (l *Library) LoadPreset(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.presetIndex(id)
	if i < 0 {
		return fmt.Errorf("preset %s: %w", id, ErrNotFound)
	}
	next := *l.presets[i].Clone()
	next.PlayerName = l.current.PlayerName
	l.current = next
	return nil
}

// DeletePreset removes a preset. Groups keep their own snapshot.
func (l *Library) DeletePreset(id string) error {
	l.mu.Lock()
	i := l.presetIndex(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("preset %s: %w", id, ErrNotFound)
	}
	l.presets = append(l.presets[:i], l.presets[i+1:]...)
	l.mu.Unlock()

	l.scheduleSave()
	return nil
}

// CreatePresetGroup snapshots the listed presets into a new group. Unknown ids are skipped.
func (l *Library) CreatePresetGroup(name string, ids []string) script.PresetGroup {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	l.mu.Lock()
	now := l.now()
	g := script.PresetGroup{
		ID:        l.uniqueGroupID(now),
		Name:      name,
		CreatedAt: now.UnixMilli(),
		Presets:   []script.DialogueScript{},
	}
	for _, p := range l.presets {
		if want[p.ID] {
			g.Presets = append(g.Presets, *p.Clone())
		}
	}
	l.groups = append(l.groups, g)
	out := cloneGroup(g)
	l.mu.Unlock()

	l.scheduleSave()
	return out
}

// LoadPresetGroup copies a group's presets into the library, replacing presets with the same id.
func (l *Library) LoadPresetGroup(id string) error {
	l.mu.Lock()
	gi := l.groupIndex(id)
	if gi < 0 {
		l.mu.Unlock()
		return fmt.Errorf("preset group %s: %w", id, ErrNotFound)
	}
	g := l.groups[gi]

	incoming := make(map[string]bool, len(g.Presets))
	for _, p := range g.Presets {
		incoming[p.ID] = true
	}
	kept := l.presets[:0:0]
	for _, p := range l.presets {
		if !incoming[p.ID] {
			kept = append(kept, p)
		}
	}
	for _, p := range g.Presets {
		kept = append(kept, *p.Clone())
	}
	l.presets = kept
	l.mu.Unlock()

	l.scheduleSave()
	return nil
}

func (l *Library) DeletePresetGroup(id string) error {
	l.mu.Lock()
	i := l.groupIndex(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("preset group %s: %w", id, ErrNotFound)
	}
	l.groups = append(l.groups[:i], l.groups[i+1:]...)
	l.mu.Unlock()

	l.scheduleSave()
	return nil
}

// ExportPreset encodes preset id as JSON
func (l *Library) ExportPreset(id string) ([]byte, error) {
	l.mu.Lock()
	i := l.presetIndex(id)
	if i < 0 {
		l.mu.Unlock()
		return nil, fmt.Errorf("preset %s: %w", id, ErrNotFound)
	}
	p := *l.presets[i].Clone()
	l.mu.Unlock()

	return exchange.ExportPreset(p)
}

// ExportPresetGroup encodes group id as JSON
func (l *Library) ExportPresetGroup(id string) ([]byte, error) {
	l.mu.Lock()
	i := l.groupIndex(id)
	if i < 0 {
		l.mu.Unlock()
		return nil, fmt.Errorf("preset group %s: %w", id, ErrNotFound)
	}
	g := cloneGroup(l.groups[i])
	l.mu.Unlock()

	return exchange.ExportGroup(g)
}

// ImportJSON adds an exported preset or group with fresh ids that do not
// collide with anything already in the library. On error the library is left untouched.
func (l *Library) ImportJSON(data []byte) (*exchange.Result, error) {
	l.mu.Lock()
	now := l.now()
	l.mu.Unlock()

	res, err := exchange.Import(data, now)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	l.mu.Lock()
	for i := range res.Presets {
		p := &res.Presets[i]
		if res.Kind == exchange.KindPreset {
			p.ID = l.uniquePresetID(now)
		} else {
			p.ID = l.uniqueSuffixed(p.ID)
		}
		l.presets = append(l.presets, *p.Clone())
	}
	if res.Group != nil {
		res.Group.ID = l.uniqueGroupID(now)
		res.Group.Presets = make([]script.DialogueScript, len(res.Presets))
		copy(res.Group.Presets, res.Presets)
		l.groups = append(l.groups, cloneGroup(*res.Group))
	}
	l.mu.Unlock()

	l.scheduleSave()
	return res, nil
}

func (l *Library) presetIndex(id string) int {
	for i := range l.presets {
		if l.presets[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Library) groupIndex(id string) int {
	for i := range l.groups {
		if l.groups[i].ID == id {
			return i
		}
	}
	return -1
}

// uniquePresetID bumps the timestamp until the id is free
func (l *Library) uniquePresetID(t time.Time) string {
	for l.presetIndex(script.PresetID(t)) >= 0 {
		t = t.Add(time.Millisecond)
	}
	return script.PresetID(t)
}

func (l *Library) uniqueGroupID(t time.Time) string {
	for l.groupIndex(script.GroupID(t)) >= 0 {
		t = t.Add(time.Millisecond)
	}
	return script.GroupID(t)
}

// uniqueSuffixed appends _2, _3, ... until id is free
func (l *Library) uniqueSuffixed(id string) string {
	if l.presetIndex(id) < 0 {
		return id
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", id, n)
		if l.presetIndex(candidate) < 0 {
			return candidate
		}
	}
}

func cloneGroup(g script.PresetGroup) script.PresetGroup {
	out := g
	out.Presets = make([]script.DialogueScript, len(g.Presets))
	for i := range g.Presets {
		out.Presets[i] = *g.Presets[i].Clone()
	}
	return out
}
