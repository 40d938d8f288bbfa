// Package main provides a keyboard plugin. It sends keystrokes and typed
// text through AppleScript on macOS and xdotool elsewhere.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ayusman/keyflick/internal/plugin"
)

// KeystrokeParams defines parameters for the keystroke action.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// TypeParams defines parameters for the type action.
type TypeParams struct {
	Text string `json:"text"`
}

// backend turns an action into the command line that performs it.
type backend interface {
	keystroke(key string, modifiers []string) []string
	typeText(text string) []string
}

// appleScript drives System Events through osascript.
type appleScript struct{}

// appleModifiers maps user-friendly modifier names to AppleScript equivalents.
var appleModifiers = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"super":   "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// appleKeyCodes covers named keys that keystroke cannot send.
var appleKeyCodes = map[string]int{
	"return":    36,
	"enter":     36,
	"tab":       48,
	"space":     49,
	"backspace": 51,
	"delete":    51,
	"escape":    53,
	"left":      123,
	"right":     124,
	"down":      125,
	"up":        126,
}

func (appleScript) keystroke(key string, modifiers []string) []string {
	stroke := fmt.Sprintf("keystroke %s", quoteAppleScript(key))
	if code, ok := appleKeyCodes[strings.ToLower(key)]; ok {
		stroke = fmt.Sprintf("key code %d", code)
	}

	var mods []string
	for _, mod := range modifiers {
		if m, ok := appleModifiers[strings.ToLower(mod)]; ok {
			mods = append(mods, m)
		}
	}
	if len(mods) > 0 {
		stroke += fmt.Sprintf(" using {%s}", strings.Join(mods, ", "))
	}
	return []string{"osascript", "-e", `tell application "System Events" to ` + stroke}
}

func (appleScript) typeText(text string) []string {
	return []string{"osascript", "-e", `tell application "System Events" to keystroke ` + quoteAppleScript(text)}
}

func quoteAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// xdotool drives X11 through the xdotool command.
type xdotool struct{}

var xdotoolModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"super":   "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

var xdotoolKeys = map[string]string{
	"return":    "Return",
	"enter":     "Return",
	"tab":       "Tab",
	"space":     "space",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"escape":    "Escape",
	"left":      "Left",
	"right":     "Right",
	"down":      "Down",
	"up":        "Up",
}

func (xdotool) keystroke(key string, modifiers []string) []string {
	if k, ok := xdotoolKeys[strings.ToLower(key)]; ok {
		key = k
	}
	combo := make([]string, 0, len(modifiers)+1)
	for _, mod := range modifiers {
		if m, ok := xdotoolModifiers[strings.ToLower(mod)]; ok {
			combo = append(combo, m)
		}
	}
	combo = append(combo, key)
	return []string{"xdotool", "key", "--clearmodifiers", strings.Join(combo, "+")}
}

func (xdotool) typeText(text string) []string {
	return []string{"xdotool", "type", "--", text}
}

func backendFor(goos string) backend {
	if goos == "darwin" {
		return appleScript{}
	}
	return xdotool{}
}

// handlers builds the action table. run executes a command line.
func handlers(b backend, run func(argv []string) error) map[string]plugin.HandlerFunc {
	return map[string]plugin.HandlerFunc{
		"keystroke": func(req *plugin.Request) (any, error) {
			var p KeystrokeParams
			if err := req.DecodeParams(&p); err != nil {
				return nil, err
			}
			if p.Key == "" {
				return nil, errors.New("key is required")
			}
			return nil, run(b.keystroke(p.Key, p.Modifiers))
		},
		"type": func(req *plugin.Request) (any, error) {
			var p TypeParams
			if err := req.DecodeParams(&p); err != nil {
				return nil, err
			}
			if p.Text == "" {
				return nil, errors.New("text is required")
			}
			return nil, run(b.typeText(p.Text))
		},
	}
}

func runCommand(argv []string) error {
	output, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func main() {
	if err := plugin.Serve(os.Stdin, os.Stdout, handlers(backendFor(runtime.GOOS), runCommand)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
