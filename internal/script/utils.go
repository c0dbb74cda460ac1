package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateScriptPath creates a timestamped script filename in dir
func GenerateScriptPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("script_%s.yaml", timestamp))
}

// FindLatestScript finds the most recent script file in dir
func FindLatestScript(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read scripts directory: %w", err)
	}

	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			scripts = append(scripts, filepath.Join(dir, entry.Name()))
		}
	}

	if len(scripts) == 0 {
		return "", fmt.Errorf("no script files found in %s", dir)
	}

	// Sort by modification time (newest first)
	sort.Slice(scripts, func(i, j int) bool {
		infoI, _ := os.Stat(scripts[i])
		infoJ, _ := os.Stat(scripts[j])
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return scripts[0], nil
}

// NewID returns a short random id for editor-created paragraphs and dialogues
func NewID() string {
	return uuid.NewString()[:8]
}

// PresetID and GroupID follow the "<kind>_<unix ms>" scheme of stored entries.
func PresetID(t time.Time) string { return fmt.Sprintf("preset_%d", t.UnixMilli()) }
func GroupID(t time.Time) string  { return fmt.Sprintf("group_%d", t.UnixMilli()) }

// DefaultScript is the starter document shown before anything is loaded
func DefaultScript() *DialogueScript {
	now := time.Now().UnixMilli()
	return &DialogueScript{
		ID:         "default",
		Name:       "New script",
		PlayerName: "Player",
		Paragraphs: []Paragraph{
			{
				ID:         "p1",
				VideoMuted: true,
				VideoLoop:  true,
				Dialogues: []Dialogue{
					{ID: "d1", Speaker: "NPC", Content: "Hello, @player! Welcome to the dialogue simulator."},
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DefaultSettings mirrors the stock dialogue box look
func DefaultSettings() DialogueSettings {
	return DialogueSettings{
		DialogueBox: BoxSettings{
			Style:        "default",
			Color:        "#000000",
			Height:       200,
			Width:        80,
			BorderRadius: 10,
			Opacity:      0.8,
		},
		Text: TextSettings{
			FontFamily:     "sans-serif",
			FontSize:       16,
			FontWeight:     "normal",
			FontStyle:      "normal",
			TextDecoration: "none",
			Color:          "#ffffff",
		},
	}
}
