package script

// Curve selects the interpolation function used between two keyframes.
type Curve string

const (
	Uniform      Curve = "uniform"
	BackAndForth Curve = "backAndForth"
	Accelerate   Curve = "accelerate"
	Decelerate   Curve = "decelerate"
	Elastic      Curve = "elastic" // position only
)

// DialogueScript is the root authored document
type DialogueScript struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	PlayerName string      `json:"playerName" yaml:"playerName"`
	Paragraphs []Paragraph `json:"paragraphs" yaml:"paragraphs"`
	CreatedAt  int64       `json:"createdAt" yaml:"createdAt"` // Unix milliseconds
	UpdatedAt  int64       `json:"updatedAt" yaml:"updatedAt"` // Unix milliseconds
}

// Paragraph binds a background video to an ordered run of dialogue lines
type Paragraph struct {
	ID             string     `json:"id" yaml:"id"`
	VideoURL       string     `json:"videoUrl" yaml:"videoUrl"`
	VideoTimeRange *TimeRange `json:"videoTimeRange,omitempty" yaml:"videoTimeRange,omitempty"`
	VideoMuted     bool       `json:"videoMuted" yaml:"videoMuted"`
	VideoLoop      bool       `json:"videoLoop" yaml:"videoLoop"`
	Dialogues      []Dialogue `json:"dialogues" yaml:"dialogues"`
}

// TimeRange is a playback window in seconds
type TimeRange struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Dialogue is a single line: the smallest navigable unit of playback
type Dialogue struct {
	ID        string     `json:"id" yaml:"id"`
	Speaker   string     `json:"speaker" yaml:"speaker"`
	Content   string     `json:"content" yaml:"content"`
	VoiceURL  string     `json:"voiceUrl,omitempty" yaml:"voiceUrl,omitempty"`
	Animation *Animation `json:"animation,omitempty" yaml:"animation,omitempty"`
}

// Animation is a keyframe timeline played repeatCount times
type Animation struct {
	StartTime   float64    `json:"startTime" yaml:"startTime"`     // Delay before the clock starts (seconds)
	Duration    float64    `json:"duration" yaml:"duration"`       // Seconds per cycle
	RepeatCount int        `json:"repeatCount" yaml:"repeatCount"` // Cycles, >= 1
	Keyframes   []KeyFrame `json:"keyframes" yaml:"keyframes"`
}

// KeyFrame holds target values at a percentage of the cycle.
// Nil fields are "not specified" and are never defaulted.
type KeyFrame struct {
	Percentage   float64   `json:"percentage" yaml:"percentage"`
	Scale        *float64  `json:"scale,omitempty" yaml:"scale,omitempty"`
	Rotation     *float64  `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	RotationType Curve     `json:"rotationType,omitempty" yaml:"rotationType,omitempty"`
	Position     *Position `json:"position,omitempty" yaml:"position,omitempty"`
	MovementType Curve     `json:"movementType,omitempty" yaml:"movementType,omitempty"`
	ScreenColor  string    `json:"screenColor,omitempty" yaml:"screenColor,omitempty"`
	CameraShake  *bool     `json:"cameraShake,omitempty" yaml:"cameraShake,omitempty"`
	Vibration    *bool     `json:"vibration,omitempty" yaml:"vibration,omitempty"`
}

// Position is a percentage offset, each axis in [-100, 100]
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// VisualState is one sampled frame of an animation. A nil or empty field
// means "leave this visual property alone".
type VisualState struct {
	Scale       *float64  `json:"scale,omitempty"`
	Rotation    *float64  `json:"rotation,omitempty"`
	Position    *Position `json:"position,omitempty"`
	ScreenColor string    `json:"screenColor,omitempty"`
	CameraShake *bool     `json:"cameraShake,omitempty"`
	Vibration   *bool     `json:"vibration,omitempty"`
}

// PresetGroup stores full preset snapshots, not references
type PresetGroup struct {
	ID        string           `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	Presets   []DialogueScript `json:"presets" yaml:"presets"`
	CreatedAt int64            `json:"createdAt" yaml:"createdAt"`
}

// DialogueSettings is passed through to the presentation layer untouched
type DialogueSettings struct {
	DialogueBox BoxSettings  `json:"dialogueBox" yaml:"dialogueBox"`
	Text        TextSettings `json:"text" yaml:"text"`
}

type BoxSettings struct {
	Style        string  `json:"style" yaml:"style"`
	Color        string  `json:"color" yaml:"color"`
	Height       int     `json:"height" yaml:"height"`
	Width        int     `json:"width" yaml:"width"`
	BorderRadius int     `json:"borderRadius" yaml:"borderRadius"`
	Opacity      float64 `json:"opacity" yaml:"opacity"`
}

type TextSettings struct {
	FontFamily     string `json:"fontFamily" yaml:"fontFamily"`
	FontSize       int    `json:"fontSize" yaml:"fontSize"`
	FontWeight     string `json:"fontWeight" yaml:"fontWeight"`
	FontStyle      string `json:"fontStyle" yaml:"fontStyle"`
	TextDecoration string `json:"textDecoration" yaml:"textDecoration"`
	Color          string `json:"color" yaml:"color"`
}

// Float and Bool build optional keyframe fields.
func Float(v float64) *float64 { return &v }
func Bool(v bool) *bool        { return &v }

// Unit returns the dialogue at (p, d) or false when out of range.
func (s *DialogueScript) Unit(p, d int) (Dialogue, bool) {
	if p < 0 || p >= len(s.Paragraphs) {
		return Dialogue{}, false
	}
	dialogues := s.Paragraphs[p].Dialogues
	if d < 0 || d >= len(dialogues) {
		return Dialogue{}, false
	}
	return dialogues[d], true
}

// Clone returns a deep copy so a play session can own its snapshot.
func (s *DialogueScript) Clone() *DialogueScript {
	out := *s
	out.Paragraphs = make([]Paragraph, len(s.Paragraphs))
	for i, p := range s.Paragraphs {
		cp := p
		if p.VideoTimeRange != nil {
			r := *p.VideoTimeRange
			cp.VideoTimeRange = &r
		}
		cp.Dialogues = make([]Dialogue, len(p.Dialogues))
		for j, d := range p.Dialogues {
			cd := d
			if d.Animation != nil {
				cd.Animation = d.Animation.Clone()
			}
			cp.Dialogues[j] = cd
		}
		out.Paragraphs[i] = cp
	}
	return &out
}

// Clone deep-copies the animation including optional keyframe fields.
func (a *Animation) Clone() *Animation {
	out := *a
	out.Keyframes = make([]KeyFrame, len(a.Keyframes))
	for i, kf := range a.Keyframes {
		out.Keyframes[i] = kf.Clone()
	}
	return &out
}

func (k KeyFrame) Clone() KeyFrame {
	out := k
	if k.Scale != nil {
		out.Scale = Float(*k.Scale)
	}
	if k.Rotation != nil {
		out.Rotation = Float(*k.Rotation)
	}
	if k.Position != nil {
		p := *k.Position
		out.Position = &p
	}
	if k.CameraShake != nil {
		out.CameraShake = Bool(*k.CameraShake)
	}
	if k.Vibration != nil {
		out.Vibration = Bool(*k.Vibration)
	}
	return out
}
