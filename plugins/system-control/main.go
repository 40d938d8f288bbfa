// Package main provides a system control plugin. It handles volume,
// brightness and media playback through AppleScript on macOS and
// pactl, brightnessctl and playerctl elsewhere.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ayusman/keyflick/internal/plugin"
)

// StepParams sets how far the volume and brightness actions move.
type StepParams struct {
	Step int `json:"step"` // percent
}

const defaultStep = 10

// commandFunc builds the command line for an action at the given step.
type commandFunc func(step int) []string

func osascript(script string) commandFunc {
	return func(int) []string { return []string{"osascript", "-e", script} }
}

func fixed(argv ...string) commandFunc {
	return func(int) []string { return argv }
}

var darwinCommands = map[string]commandFunc{
	"volume-up": func(step int) []string {
		return []string{"osascript", "-e", fmt.Sprintf("set volume output volume ((output volume of (get volume settings)) + %d)", step)}
	},
	"volume-down": func(step int) []string {
		return []string{"osascript", "-e", fmt.Sprintf("set volume output volume ((output volume of (get volume settings)) - %d)", step)}
	},
	"volume-mute":      osascript("set volume output muted (not (output muted of (get volume settings)))"),
	"brightness-up":    osascript(`tell application "System Events" to key code 144`),
	"brightness-down":  osascript(`tell application "System Events" to key code 145`),
	"media-play-pause": osascript(`tell application "System Events" to key code 100`),
	"media-next":       osascript(`tell application "System Events" to key code 101`),
	"media-prev":       osascript(`tell application "System Events" to key code 98`),
}

var linuxCommands = map[string]commandFunc{
	"volume-up": func(step int) []string {
		return []string{"pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("+%d%%", step)}
	},
	"volume-down": func(step int) []string {
		return []string{"pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("-%d%%", step)}
	},
	"volume-mute": fixed("pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"),
	"brightness-up": func(step int) []string {
		return []string{"brightnessctl", "set", fmt.Sprintf("%d%%+", step)}
	},
	"brightness-down": func(step int) []string {
		return []string{"brightnessctl", "set", fmt.Sprintf("%d%%-", step)}
	},
	"media-play-pause": fixed("playerctl", "play-pause"),
	"media-next":       fixed("playerctl", "next"),
	"media-prev":       fixed("playerctl", "previous"),
}

func commandsFor(goos string) map[string]commandFunc {
	if goos == "darwin" {
		return darwinCommands
	}
	return linuxCommands
}

// handlers builds the action table. run executes a command line.
func handlers(commands map[string]commandFunc, run func(argv []string) error) map[string]plugin.HandlerFunc {
	hs := make(map[string]plugin.HandlerFunc, len(commands))
	for action, build := range commands {
		hs[action] = func(req *plugin.Request) (any, error) {
			p := StepParams{Step: defaultStep}
			if err := req.DecodeParams(&p); err != nil {
				return nil, err
			}
			if p.Step <= 0 || p.Step > 100 {
				return nil, fmt.Errorf("step must be between 1 and 100, got %d", p.Step)
			}
			return nil, run(build(p.Step))
		}
	}
	return hs
}

func runCommand(argv []string) error {
	output, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func main() {
	if err := plugin.Serve(os.Stdin, os.Stdout, handlers(commandsFor(runtime.GOOS), runCommand)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
