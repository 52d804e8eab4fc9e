package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// check
	"check.started":   {},
	"check.completed": {},
	"stage.completed": {},

	// panel
	"panel.snapshot":     {},
	"panel.hidden":       {},
	"drawer.opened":      {},
	"profile.applied":    {},
	"profile.randomized": {},
	"theme.changed":      {},

	// log pane
	"log.line":  {},
	"log.reset": {},

	// audio
	"audio.cue": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
